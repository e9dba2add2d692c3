package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pipeerrors "legal-team-rag/internal/errors"
)

// DuckDuckGo queries the DuckDuckGo instant answer API for a short
// text snippet.
type DuckDuckGo struct {
	client  *http.Client
	baseURL string
}

func NewDuckDuckGo(baseURL string, timeout time.Duration) *DuckDuckGo {
	return &DuckDuckGo{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (d *DuckDuckGo) Name() string { return "web_search" }

func (d *DuckDuckGo) Invoke(ctx context.Context, query string) (string, error) {
	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1", d.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "web search request failed", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "web search unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pipeerrors.New(pipeerrors.KindTool, fmt.Sprintf("web search returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "failed to read search response", err)
	}

	var result struct {
		AbstractText  string `json:"AbstractText"`
		Answer        string `json:"Answer"`
		RelatedTopics []struct {
			Text string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "failed to decode search response", err)
	}

	var parts []string
	if result.Answer != "" {
		parts = append(parts, result.Answer)
	}
	if result.AbstractText != "" {
		parts = append(parts, result.AbstractText)
	}
	for i, topic := range result.RelatedTopics {
		if i >= 3 {
			break
		}
		if topic.Text != "" {
			parts = append(parts, topic.Text)
		}
	}

	if len(parts) == 0 {
		return "", pipeerrors.New(pipeerrors.KindTool, "no search results")
	}

	return strings.Join(parts, "\n"), nil
}
