package notion_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-egress/internal/notion"
	"github.com/goliatone/go-egress/internal/runtimeconfig"
	"github.com/goliatone/go-egress/internal/scheduler"
)

func newClient(t *testing.T, srv *httptest.Server) *notion.Client {
	t.Helper()
	cfg := runtimeconfig.DefaultConfig().Notion
	cfg.Secret = "secret_test"
	cfg.BaseURL = srv.URL
	cfg.PageSize = 2
	cfg.RequestsPerSecond = 0
	client, err := notion.New(cfg, notion.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := notion.New(runtimeconfig.NotionConfig{}); err != notion.ErrSecretRequired {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}

func TestQueryDatabaseFollowsCursors(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/databases/db-1/query" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret_test" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("Notion-Version") == "" {
			t.Error("missing Notion-Version header")
		}
		var body map[string]any
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()

		if body["start_cursor"] == nil {
			fmt.Fprint(w, `{"results":[{"id":"p1"},{"id":"p2"}],"has_more":true,"next_cursor":"c2"}`)
			return
		}
		fmt.Fprint(w, `{"results":[{"id":"p3"}],"has_more":false,"next_cursor":null}`)
	}))
	defer srv.Close()

	pages, err := newClient(t, srv).QueryDatabase(context.Background(), "db-1")
	if err != nil {
		t.Fatalf("QueryDatabase returned error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages across 2 requests, got %d", len(pages))
	}
	if len(bodies) != 2 || bodies[1]["start_cursor"] != "c2" {
		t.Fatalf("expected second request to carry cursor, got %v", bodies)
	}
	sorts, _ := bodies[0]["sorts"].([]any)
	if len(sorts) != 1 || !strings.Contains(fmt.Sprint(sorts[0]), "Unit") {
		t.Fatalf("expected sort by Unit, got %v", bodies[0]["sorts"])
	}
}

func TestRateLimitedResponseCarriesRetryHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"object":"error","status":429,"code":"rate_limited","message":"slow down"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).ListBlockChildren(context.Background(), "page-1")
	if !scheduler.IsRateLimited(err) {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if d, ok := scheduler.RetryHint(err, time.Now()); !ok || d != 7*time.Second {
		t.Fatalf("expected 7s retry hint, got %v %v", d, ok)
	}
}

func TestUpstreamErrorsAreCategorised(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"object":"error","status":404,"code":"object_not_found","message":"missing"}`)
	}))
	defer srv.Close()

	_, err := newClient(t, srv).ListBlockChildren(context.Background(), "page-1")
	if scheduler.IsRateLimited(err) {
		t.Fatal("404 must not be treated as rate limited")
	}
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %v", err)
	}
	var typed *goerrors.Error
	if !goerrors.As(err, &typed) || typed.Code != http.StatusNotFound || typed.TextCode != notion.TextCodeUpstream {
		t.Fatalf("unexpected error details %#v", typed)
	}
}

// blockServer serves /v1/blocks/{id}/children from a fixture map and counts
// fetches per id.
type blockServer struct {
	mu       sync.Mutex
	children map[string]string
	fetches  map[string]int
}

func (b *blockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/blocks/"), "/children")
	b.mu.Lock()
	b.fetches[id]++
	b.mu.Unlock()
	results, ok := b.children[id]
	if !ok {
		results = "[]"
	}
	fmt.Fprintf(w, `{"results":%s,"has_more":false,"next_cursor":null}`, results)
}

func TestBlockTreeExpandsNestedAndSyncedBlocks(t *testing.T) {
	fixture := &blockServer{
		fetches: map[string]int{},
		children: map[string]string{
			"page": `[
				{"id":"p1","type":"paragraph","has_children":false,"paragraph":{"rich_text":[]}},
				{"id":"t1","type":"toggle","has_children":true,"toggle":{"rich_text":[]}},
				{"id":"s1","type":"synced_block","has_children":true,"synced_block":{"synced_from":{"block_id":"orig"}}},
				{"id":"s2","type":"synced_block","has_children":true,"synced_block":{"synced_from":{"block_id":"orig"}}},
				{"id":"cp","type":"child_page","has_children":true,"child_page":{"title":"Solution"}}
			]`,
			"t1":   `[{"id":"t1a","type":"paragraph","has_children":false,"paragraph":{}}]`,
			"orig": `[{"id":"o1","type":"paragraph","has_children":true,"paragraph":{}}]`,
			// o1 points back at a synced copy of its own parent.
			"o1": `[{"id":"loop","type":"synced_block","has_children":true,"synced_block":{"synced_from":{"block_id":"orig"}}}]`,
		},
	}
	srv := httptest.NewServer(fixture)
	defer srv.Close()

	roots, err := newClient(t, srv).BlockTree(context.Background(), "page")
	if err != nil {
		t.Fatalf("BlockTree returned error: %v", err)
	}
	if len(roots) != 5 {
		t.Fatalf("expected 5 root blocks, got %d", len(roots))
	}
	if len(roots[1].Children) != 1 || roots[1].Children[0].ID != "t1a" {
		t.Fatalf("expected toggle children, got %+v", roots[1].Children)
	}
	if len(roots[2].Children) != 1 || roots[2].Children[0].ID != "o1" {
		t.Fatalf("expected synced block to mirror original children, got %+v", roots[2].Children)
	}
	if len(roots[3].Children) != 1 || roots[3].Children[0].ID != "o1" {
		t.Fatalf("expected second synced copy to reuse children, got %+v", roots[3].Children)
	}
	if roots[4].Children != nil {
		t.Fatal("child pages must not be expanded")
	}
	for id, n := range fixture.fetches {
		if n != 1 {
			t.Fatalf("expected %s to be fetched once, got %d", id, n)
		}
	}
	if fixture.fetches["cp"] != 0 {
		t.Fatal("child page content must not be fetched")
	}
}

func TestChildPageIDs(t *testing.T) {
	fixture := &blockServer{
		fetches: map[string]int{},
		children: map[string]string{
			"page": `[
				{"id":"a","type":"paragraph","paragraph":{}},
				{"id":"c1","type":"child_page","child_page":{"title":"One"}},
				{"id":"c2","type":"child_page","child_page":{"title":"Two"}}
			]`,
		},
	}
	srv := httptest.NewServer(fixture)
	defer srv.Close()

	ids, err := newClient(t, srv).ChildPageIDs(context.Background(), "page")
	if err != nil {
		t.Fatalf("ChildPageIDs returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Fatalf("unexpected child ids %v", ids)
	}
}
