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

// Wikipedia looks up an article summary via the Wikipedia REST API.
type Wikipedia struct {
	client  *http.Client
	baseURL string
}

func NewWikipedia(baseURL string, timeout time.Duration) *Wikipedia {
	return &Wikipedia{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (w *Wikipedia) Name() string { return "encyclopedia_lookup" }

func (w *Wikipedia) Invoke(ctx context.Context, query string) (string, error) {
	title := url.PathEscape(strings.ReplaceAll(strings.TrimSpace(query), " ", "_"))
	endpoint := fmt.Sprintf("%s/page/summary/%s", w.baseURL, title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "encyclopedia request failed", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "encyclopedia unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pipeerrors.New(pipeerrors.KindTool, fmt.Sprintf("encyclopedia returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "failed to read encyclopedia response", err)
	}

	var result struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", pipeerrors.Wrap(pipeerrors.KindTool, "failed to decode encyclopedia response", err)
	}

	if result.Extract == "" {
		return "", pipeerrors.New(pipeerrors.KindTool, "no encyclopedia entry found")
	}

	return result.Title + ": " + result.Extract, nil
}
