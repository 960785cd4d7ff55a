package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sndlabs/snd/internal/mail"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	systemPrompt = "You are snd, a concise email drafter. Output only the " +
		"draft reply text. Keep it brief, precise, and technical when relevant."
)

// OpenAIProducer drafts replies through an OpenAI-compatible chat
// completions endpoint.
type OpenAIProducer struct {
	baseURL   string
	secretKey string
	secrets   SecretSource
	client    *http.Client
}

// NewOpenAIProducer creates a producer against baseURL (the public
// OpenAI endpoint when empty). The API key is resolved from secrets
// under secretKey on every call, so rotated keys take effect without a
// restart.
func NewOpenAIProducer(baseURL, secretKey string, secrets SecretSource) *OpenAIProducer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &OpenAIProducer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		secrets:   secrets,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Name implements Producer.
func (p *OpenAIProducer) Name() string {
	return "openai"
}

// Generate implements Producer.
func (p *OpenAIProducer) Generate(ctx context.Context, req Request) (*Result, error) {
	apiKey, err := p.secrets.Get(p.secretKey)
	if err != nil || apiKey == "" {
		return nil, fmt.Errorf(
			"missing LLM API token in secret key %s: run `snd auth --llm-token`", p.secretKey,
		)
	}

	reqBody := chatRequest{
		Model:       req.Model,
		Temperature: 0.4,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ProducerError{Producer: p.Name(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProducerError{Producer: p.Name(), Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProducerError{
			Producer: p.Name(),
			Err: fmt.Errorf(
				"LLM request failed: %d %s - %s",
				resp.StatusCode, resp.Status, mail.Snippet(string(respBody), 260),
			),
		}
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProducerError{Producer: p.Name(), Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(result.Choices) == 0 {
		return nil, nil
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return nil, nil
	}

	return &Result{Content: content, Model: req.Model}, nil
}

// buildPrompt renders the drafting prompt: vibe, memory notes, an
// optional extra instruction, and the last eight messages of the
// thread.
func buildPrompt(req Request) string {
	last := req.Messages
	if len(last) > 8 {
		last = last[len(last)-8:]
	}

	blocks := make([]string, 0, len(last))
	for _, msg := range last {
		sentAt := time.UnixMilli(msg.SentAt).UTC().Format(time.RFC3339)
		blocks = append(blocks, fmt.Sprintf(
			"From: %s\nAt: %s\nBody: %s",
			msg.FromAddress, sentAt, mail.Snippet(msg.BodyText, 420),
		))
	}

	userNotes := "none"
	if len(req.UserNotes) > 0 {
		userNotes = strings.Join(req.UserNotes, " | ")
	}
	threadNotes := "none"
	if len(req.ThreadNotes) > 0 {
		threadNotes = strings.Join(req.ThreadNotes, " | ")
	}

	lines := []string{
		"Vibe: " + req.Vibe,
		"User notes: " + userNotes,
		"Thread notes: " + threadNotes,
	}
	if req.Instruction != "" {
		lines = append(lines, "Extra instruction: "+req.Instruction)
	}
	lines = append(lines,
		"Write a reply draft for the most recent inbound email in this thread.",
		"Constraints:",
		"- Keep it concise.",
		"- Do not include subject line.",
		"- Do not mention being an AI.",
		"- Ask for clarification only if required.",
		"",
		"Thread context:",
		strings.Join(blocks, "\n\n---\n\n"),
	)

	return strings.Join(lines, "\n")
}

// --- OpenAI-compatible API types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
