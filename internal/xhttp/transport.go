package xhttp

import (
	"fmt"
	"net/http"

	"github.com/mkarlsen/stride/internal/version"
)

type strideTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*strideTransport)(nil)

func (t *strideTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "stride/"+version.Get())
	req.Header.Set(version.Header, version.Get())
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

// NewTransport returns an http.RoundTripper with standard stride headers.
func NewTransport() http.RoundTripper {
	return &strideTransport{base: http.DefaultTransport}
}
