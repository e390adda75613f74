// Package vision talks to the vision-capable language model and hosts
// the camera-angle classifier built on top of it.
package vision

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Generator is the model surface the rest of the system depends on.
// Generate returns the full reply in one shot; GenerateStream delivers
// tokens through emit as they arrive and returns the assembled reply.
type Generator interface {
	Generate(ctx context.Context, system string, images [][]byte, user string) (string, error)
	GenerateStream(ctx context.Context, system string, images [][]byte, user string, emit func(token string)) (string, error)
}

// Client calls an OpenAI-compatible chat completions endpoint with image
// attachments.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientConfig holds model connection settings.
type ClientConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewClient creates a model client. The endpoint is the API base URL
// without the /chat/completions suffix.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *Client) buildRequest(system string, images [][]byte, user string, stream bool) ([]byte, error) {
	parts := []contentPart{}
	if user != "" {
		parts = append(parts, contentPart{Type: "text", Text: user})
	}
	for _, img := range images {
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	messages := []chatMessage{}
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: parts})

	return json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   stream,
	})
}

func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("model request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}

// Generate performs a single-shot completion.
func (c *Client) Generate(ctx context.Context, system string, images [][]byte, user string) (string, error) {
	body, err := c.buildRequest(system, images, user, false)
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode model response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("model error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// GenerateStream performs a streaming completion, calling emit for every
// token. The full assembled reply is returned so callers can cache and
// log it exactly as in the single-shot path.
func (c *Client) GenerateStream(ctx context.Context, system string, images [][]byte, user string, emit func(token string)) (string, error) {
	body, err := c.buildRequest(system, images, user, true)
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			log.Printf("[Model] Skipping malformed stream chunk: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		token := chunk.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full.WriteString(token)
		if emit != nil {
			emit(token)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("model stream interrupted: %w", err)
	}
	return full.String(), nil
}

// Configured reports whether the client has enough settings to be called.
func (c *Client) Configured() bool {
	return c.endpoint != "" && c.model != ""
}

var _ Generator = (*Client)(nil)
