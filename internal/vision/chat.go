package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content interface{} `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ChatProvider calls an OpenAI-compatible chat completions endpoint with the
// image inlined as a data URI.
type ChatProvider struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

func NewChatProvider(apiURL, apiKey, model string, timeout time.Duration) *ChatProvider {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatProvider{
		apiURL: apiURL,
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *ChatProvider) Name() string {
	return "openai"
}

func (p *ChatProvider) Complete(ctx context.Context, req Request) (string, error) {
	imgURL := fmt.Sprintf("data:%s;base64,%s", req.MIME, base64.StdEncoding.EncodeToString(req.Image))
	body := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "user", Content: []chatContentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: imgURL, Detail: "auto"}},
			}},
		},
		Temperature: 0.2,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("vision API error: status %d", resp.StatusCode)
	}

	var completion chatResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("decoding vision response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("no choices in vision response")
	}

	switch v := completion.Choices[0].Message.Content.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	case []interface{}:
		// Some gateways return content as a list of parts.
		var sb strings.Builder
		for _, part := range v {
			if m, ok := part.(map[string]interface{}); ok {
				if text, ok := m["text"].(string); ok {
					sb.WriteString(text)
				}
			}
		}
		return sb.String(), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", errors.New("failed to extract content from vision response")
		}
		return string(b), nil
	}
}
