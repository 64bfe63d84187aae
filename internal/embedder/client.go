package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"expenseindex/internal/apperr"
)

// ClientConfig describes a remote embedding endpoint compatible with the
// OpenAI-style `{model, input}` embeddings request shape.
type ClientConfig struct {
	BaseURL   string
	Path      string
	Model     string
	APIKey    string
	APIHeader string
	Dim       int
	Timeout   time.Duration
}

// Client calls a remote embedding HTTP endpoint.
type Client struct {
	cfg ClientConfig
	hc  *http.Client
}

// NewClient builds a Client for the given endpoint configuration.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg, hc: http.DefaultClient}
}

func (c *Client) Dimension() int { return c.cfg.Dim }

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedReq{Model: c.cfg.Model, Input: texts})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal embed request", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL+c.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	} else if c.cfg.APIHeader != "" {
		req.Header.Set(c.cfg.APIHeader, c.cfg.APIKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "call embedding endpoint", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "read embedding response", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable,
			fmt.Sprintf("embedding endpoint returned %s: %s", resp.Status, string(respBody)), nil)
	}

	var er embedResp
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "parse embedding response", err)
	}
	if len(er.Data) != len(texts) {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable,
			fmt.Sprintf("embedding endpoint returned %d vectors for %d inputs", len(er.Data), len(texts)), nil)
	}

	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}
