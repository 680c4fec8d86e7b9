package encoder

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const embedPath = "/api/embed"

// OllamaEncoder computes embeddings through a local Ollama daemon. The
// configured model must be a multimodal embedding model so that image
// and text vectors share one space.
type OllamaEncoder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewOllamaEncoder returns an encoder talking to the daemon at baseURL.
func NewOllamaEncoder(baseURL, model string, dimensions int) *OllamaEncoder {
	return &OllamaEncoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (e *OllamaEncoder) Model() string   { return e.model }
func (e *OllamaEncoder) Dimensions() int { return e.dimensions }

type embedRequest struct {
	Model  string   `json:"model"`
	Input  string   `json:"input"`
	Images []string `json:"images,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// EmbedImage embeds a single JPEG keyframe.
func (e *OllamaEncoder) EmbedImage(ctx context.Context, jpeg []byte) ([]float32, error) {
	if len(jpeg) == 0 {
		return nil, fmt.Errorf("embed image: empty image data")
	}
	return e.embed(ctx, embedRequest{
		Model:  e.model,
		Images: []string{base64.StdEncoding.EncodeToString(jpeg)},
	})
}

// EmbedText embeds a free-text query.
func (e *OllamaEncoder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed text: empty query")
	}
	return e.embed(ctx, embedRequest{
		Model: e.model,
		Input: text,
	})
}

func (e *OllamaEncoder) embed(ctx context.Context, reqBody embedRequest) ([]float32, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+embedPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embed response: %w", err)
	}

	var decoded embedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("embed response parse: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, fmt.Errorf("embed request: %s: %s", resp.Status, msg)
	}
	if len(decoded.Embeddings) == 0 {
		return nil, fmt.Errorf("embed response: no embeddings returned")
	}

	vec := decoded.Embeddings[0]
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("embed response: got %d dimensions, want %d", len(vec), e.dimensions)
	}
	return Normalize(vec), nil
}

// Ping verifies the daemon is reachable. Used by preflight.
func (e *OllamaEncoder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama not healthy at %s: %s", e.baseURL, resp.Status)
	}
	return nil
}
