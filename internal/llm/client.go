package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to an OpenAI-compatible chat completions endpoint
// (Ollama, LM Studio, vLLM, a hosted gateway, ...).
type Client struct {
	url    string       // e.g. "http://localhost:1234"
	client *http.Client // reused across calls
}

// NewClient creates a client for the given base URL.
func NewClient(url string) *Client {
	return &Client{
		url: strings.TrimRight(url, "/"),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one request and returns the raw text of the first choice.
func (c *Client) Complete(ctx context.Context, r Request) (string, error) {
	var messages []Message
	if r.System != "" {
		messages = append(messages, Message{Role: "system", Content: r.System})
	}
	messages = append(messages, Message{Role: "user", Content: r.Prompt})

	jsonData, err := json.Marshal(chatRequest{
		Model:       r.Model,
		Messages:    messages,
		Temperature: r.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("LLM request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM returned status %d", resp.StatusCode)
	}

	var llmResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&llmResp); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}

	if len(llmResp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	return llmResp.Choices[0].Message.Content, nil
}

// ExtractJSON finds the first complete JSON object, or array of objects,
// in s. It handles nesting and skips brackets inside quoted strings, so model
// output wrapped in prose or markdown fences still parses. Bracketed text
// that is not valid JSON, or an array of scalars such as "[5]", is passed
// over.
func ExtractJSON(s string) string {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' && s[start] != '[' {
			continue
		}
		end := matchingBracket(s, start)
		if end < 0 {
			return ""
		}
		candidate := s[start : end+1]
		if !json.Valid([]byte(candidate)) {
			continue
		}
		if candidate[0] == '[' && !strings.HasPrefix(strings.TrimSpace(candidate[1:]), "{") {
			continue
		}
		return candidate
	}
	return ""
}

// matchingBracket returns the index of the bracket closing the one at
// s[start], or -1 if s ends first.
func matchingBracket(s string, start int) int {
	openCh := s[start]
	closeCh := byte('}')
	if openCh == '[' {
		closeCh = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
