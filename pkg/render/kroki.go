package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diagramai/pkg/domain"
)

// KrokiRenderer renders Mermaid markup to SVG through a Kroki server
// (https://kroki.io or self-hosted).
type KrokiRenderer struct {
	baseURL    string
	httpClient *http.Client
}

// NewKrokiRenderer builds a renderer against the given Kroki base URL.
func NewKrokiRenderer(baseURL string) (*KrokiRenderer, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("kroki base URL required")
	}
	return &KrokiRenderer{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Render posts the description to Kroki and returns the SVG bytes.
// A 400 response maps to ErrSyntax.
func (k *KrokiRenderer) Render(ctx context.Context, kind domain.DiagramKind, description string) ([]byte, error) {
	body := applyKindConfig(kind, description)
	url := k.baseURL + "/mermaid/svg"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kroki request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("kroki: %s: %w", strings.TrimSpace(string(msg)), ErrSyntax)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("kroki api error: %s", resp.Status)
	}
	svg, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kroki read: %w", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		return nil, fmt.Errorf("kroki: unexpected response body: %w", ErrSyntax)
	}
	return svg, nil
}

// applyKindConfig prefixes per-kind renderer directives. Sequence diagrams
// get message numbering.
func applyKindConfig(kind domain.DiagramKind, description string) string {
	if kind == domain.KindSequence {
		return "%%{init: {\"sequence\": {\"showSequenceNumbers\": true}}}%%\n" + description
	}
	return description
}
