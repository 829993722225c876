package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must namespace keys so different entity kinds never collide.
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// ItemUUID is the ledger key for a source item.
func ItemUUID(sourceID, stableID string) uuid.UUID {
	return UUID("egress:item:" + strings.TrimSpace(sourceID) + ":" + strings.TrimSpace(stableID))
}

// RunUUID is the ledger key for one export run.
func RunUUID(sourceID string, startedAt time.Time) uuid.UUID {
	return UUID("egress:run:" + strings.TrimSpace(sourceID) + ":" + startedAt.UTC().Format(time.RFC3339Nano))
}

// ContentKey returns a hex SHA-256 digest of payload, used as a last-resort
// identity for records with neither a secondary nor a stable id.
func ContentKey(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
