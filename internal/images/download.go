package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-egress/internal/fsutil"
)

const TextCodeDownloadFailed = "IMAGE_DOWNLOAD_FAILED"

var ErrTooManyRedirects = errors.New("images: too many redirects")

// download fetches rawURL into dest. Redirects are handled here rather than by
// the http client so every hop re-evaluates the auth header for its host.
func (l *Localizer) download(ctx context.Context, rawURL, dest string, hops int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("images: build request: %w", err)
	}
	if l.token != "" && !l.objectStorage(req.URL) {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "image request failed").
			WithTextCode(TextCodeDownloadFailed).
			WithMetadata(map[string]any{"url": redact(req.URL)})
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound:
		if hops >= l.maxRedirects {
			return ErrTooManyRedirects
		}
		next, err := resp.Location()
		if err != nil {
			return fmt.Errorf("images: redirect without location: %w", err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		return l.download(ctx, next.String(), dest, hops+1)
	case http.StatusOK:
	default:
		return goerrors.New(fmt.Sprintf("image download returned %d", resp.StatusCode), goerrors.CategoryExternal).
			WithCode(resp.StatusCode).
			WithTextCode(TextCodeDownloadFailed).
			WithMetadata(map[string]any{"url": redact(req.URL)})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("images: read body: %w", err)
	}
	return fsutil.WriteFileAtomic(dest, data, 0o644)
}

func (l *Localizer) objectStorage(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, marker := range l.objectHosts {
		if marker != "" && strings.Contains(host, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// redact drops the query, which carries signatures on pre-signed URLs.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	return clean.String()
}
