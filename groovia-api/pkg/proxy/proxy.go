package proxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/groovia/groovia/groovia-api/pkg/apperrors"
	"github.com/groovia/groovia/groovia-api/pkg/utils"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// Download is an open upstream response. The caller must close Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
}

type Proxy struct {
	client *http.Client
	log    *zap.Logger
}

// New builds a proxy whose upstream requests give up when response headers
// take longer than headerTimeout. The body is not time-limited so large files
// can stream; cancellation comes from the caller's context.
func New(headerTimeout time.Duration, log *zap.Logger) *Proxy {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout

	return &Proxy{
		client: &http.Client{Transport: transport},
		log:    log,
	}
}

// Open fetches rawURL. Any failure, including a non-2xx upstream status, is a
// DownloadFailed error; the upstream status is never passed on.
func (p *Proxy) Open(ctx context.Context, rawURL string) (*Download, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, apperrors.Validation("URL is required")
	}
	if !utils.IsValidRemoteURL(rawURL) {
		p.log.Warn("Rejected download url", zap.String("url", rawURL))
		return nil, apperrors.DownloadFailed(fmt.Errorf("unsupported url %q", rawURL))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		p.log.Error("Proxy download error", zap.Error(err), zap.String("url", rawURL))
		return nil, apperrors.DownloadFailed(err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error("Proxy download error", zap.Error(err), zap.String("url", rawURL))
		return nil, apperrors.DownloadFailed(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		err := fmt.Errorf("failed to fetch source: %s", resp.Status)
		p.log.Error("Proxy download error", zap.Error(err), zap.String("url", rawURL))
		return nil, apperrors.DownloadFailed(err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}

	return &Download{Body: resp.Body, ContentType: contentType}, nil
}
