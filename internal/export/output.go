package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/goliatone/go-egress/internal/scheduler"
)

// printer writes the user-facing progress lines. Workers share it, so writes
// are serialised.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	if w == nil {
		w = io.Discard
	}
	return &printer{w: w}
}

func (p *printer) line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func isSkip(err error) bool {
	return errors.Is(err, scheduler.ErrSkipped)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
