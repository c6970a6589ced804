package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Event is a single article-lifecycle event shipped to the analytics
// collector. The collector is an external system; delivery is best effort.
type Event struct {
	Name       string    `json:"name"`
	ArticleID  uint64    `json:"article_id"`
	AuthorID   uint64    `json:"author_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventArticleCreated  = "article.created"
	EventArticleUpdated  = "article.updated"
	EventArticleDeleted  = "article.deleted"
	EventArticleReverted = "article.reverted"
)

type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Client posts events to the collector over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) Emit(ctx context.Context, event Event) error {
	url := fmt.Sprintf("%s/events", c.baseURL)

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewReader(body),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf(
			"analytics collector error: status=%d body=%s",
			resp.StatusCode,
			string(b),
		)
	}

	return nil
}

// Noop is used when no collector address is configured.
type Noop struct{}

func (Noop) Emit(ctx context.Context, event Event) error { return nil }

// EmitAsync fires an event from its own goroutine with a bounded timeout so
// a slow collector never blocks a request.
func EmitAsync(emitter Emitter, event Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("[ANALYTICS ERROR] Failed to emit %s for article %d: %v", event.Name, event.ArticleID, err)
		}
	}()
}
