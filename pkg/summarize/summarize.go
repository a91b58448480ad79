// Package summarize hands the ranked digest document to an external LLM and
// returns its markdown summary. The pipeline treats the model as an opaque
// consumer; everything semantic lives in the prompt.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"reddigest/pkg/digest"
)

const digestPrompt = `You are writing a digest of Reddit discussions for a technical reader.

Time window: %s to %s
Communities: %s

Below are the top posts, pre-ranked by a heuristic score (1-10) combining engagement, discussion volume, recency, substance, and community approval. Higher scores surfaced first.

%s

Write a concise markdown digest:
1. Open with 2-3 sentences on the period's dominant themes.
2. Group related posts under thematic headings.
3. For each notable post: one or two sentences on what it is and why it matters, citing the community and score.
4. Close with anything notable from the comment threads.

Return ONLY the markdown digest, no preamble.`

// Summarizer calls an LLM chat endpoint with one batch prompt per run.
type Summarizer struct {
	client   *http.Client
	provider string // "openai" or "anthropic"
	model    string
	apiKey   string
	baseURL  string
}

// New creates a summarizer. An empty model picks the provider default.
func New(provider, model, apiKey, baseURL string) *Summarizer {
	if model == "" {
		switch provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	return &Summarizer{
		client:   &http.Client{Timeout: 120 * time.Second},
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		baseURL:  baseURL,
	}
}

// Summarize sends the ranked document to the LLM and returns the digest text.
func (s *Summarizer) Summarize(ctx context.Context, doc *digest.Document) (string, error) {
	if len(doc.Posts) == 0 {
		return "", fmt.Errorf("nothing to summarize: document has no posts")
	}

	prompt := buildPrompt(doc)

	var raw string
	var err error
	switch s.provider {
	case "anthropic":
		raw, err = s.callAnthropic(ctx, prompt)
	default:
		raw, err = s.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return "", err
	}

	return stripCodeFence(raw), nil
}

// buildPrompt renders the ranked posts into the batch prompt.
func buildPrompt(doc *digest.Document) string {
	var lines []string
	for _, p := range doc.Posts {
		line := fmt.Sprintf("- [%.2f] r/%s | %q by %s | %d points, %d comments | %s",
			p.HeuristicScore, p.Subreddit, p.Title, p.Author, p.Score, p.NumComments, p.Permalink)
		if p.Selftext != "" {
			line += "\n  " + p.Selftext
		}
		for _, c := range p.TopComments {
			line += fmt.Sprintf("\n  > %s (%d points): %s", c.Author, c.Score, c.Body)
		}
		lines = append(lines, line)
	}

	return fmt.Sprintf(digestPrompt,
		doc.Metadata.StartTime.Format("2006-01-02"),
		doc.Metadata.EndTime.Format("2006-01-02"),
		strings.Join(doc.Metadata.Subreddits, ", "),
		strings.Join(lines, "\n"))
}

// stripCodeFence unwraps a response the model wrapped in a markdown block.
func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
		raw = raw[3+idx+1:]
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}

func (s *Summarizer) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := s.baseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	payload := map[string]any{
		"model": s.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": 0.3,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (s *Summarizer) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := s.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      s.model,
		"max_tokens": 8192,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}
