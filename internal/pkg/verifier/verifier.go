// Package verifier asks an OpenAI-compatible vision model whether an ID card
// image matches the name and USN a user signed up with. The answer is advisory
// text for the admin and never changes user state.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campusfind/internal/pkg/config"
	"campusfind/pkg/errs"
)

const prompt = `You are an experienced campus administrator. Check whether the attached ID card image is a valid student ID and whether the details below are correct.

If the ID card is valid, extract the name and USN printed on it and say whether they match the provided full name and USN.
If it is not valid, explain why.

Full Name: %s
USN: %s`

// Input 待核验的用户资料
type Input struct {
	IDCardImage string // URL 或 data URI
	FullName    string
	USN         string
}

// Verifier ID 卡核验
type Verifier interface {
	VerifyID(ctx context.Context, in Input) (string, error)
}

// Client OpenAI 兼容的 chat completions 客户端
type Client struct {
	url    string
	model  string
	apiKey string
	http   *http.Client
}

// New 根据配置创建客户端
func New(cfg config.VerifierConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:    BuildURL(cfg.BaseURL),
		model:  cfg.Model,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// BuildURL 规范化 chat completions 地址
func BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
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

// VerifyID 调用模型，返回模型给出的核验说明
func (c *Client) VerifyID(ctx context.Context, in Input) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: fmt.Sprintf(prompt, in.FullName, in.USN)},
				{Type: "image_url", ImageURL: &imageURL{URL: in.IDCardImage}},
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("encode verifier request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrExternalService, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", errs.ErrExternalService, err)
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: status %d: parse response: %v", errs.ErrExternalService, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", errs.ErrExternalService, resp.StatusCode, msg)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty answer", errs.ErrExternalService)
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
