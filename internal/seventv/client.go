// Package seventv is a minimal client for the 7TV v3 GraphQL API, covering
// the search and trending queries the service exposes.
package seventv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const userAgent = "EmoteVault/1.0"

const searchQuery = `
query SearchEmotes($query: String!, $limit: Int, $filter: EmoteSearchFilter) {
  emotes(query: $query, limit: $limit, filter: $filter) {
    items {
      id
      name
      animated
      host {
        url
        files {
          name
          format
          width
          height
        }
      }
    }
  }
}`

const trendingQuery = `
query GetTrendingEmotes($limit: Int, $filter: EmoteSearchFilter, $period: String!) {
  emotes(query: "", limit: $limit, filter: $filter, sort: { value: $period, order: DESCENDING }) {
    items {
      id
      name
      animated
      host {
        url
        files {
          name
          format
          width
          height
        }
      }
    }
  }
}`

// Client issues GraphQL queries against a single 7TV endpoint.
type Client struct {
	endpoint string
	httpc    *http.Client
	logger   *slog.Logger
}

// NewClient constructs a 7TV client. The http.Client is shared with the rest
// of the application so connection pooling applies across components.
func NewClient(endpoint string, httpc *http.Client, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpc:    httpc,
		logger:   logger.With(slog.String("component", "seventv")),
	}
}

// Search returns emotes matching query, most relevant first.
func (c *Client) Search(ctx context.Context, query string, limit int, animatedOnly bool) ([]Emote, error) {
	filter := map[string]any{"case_sensitive": false}
	if animatedOnly {
		filter["animated"] = true
	}

	return c.query(ctx, searchQuery, map[string]any{
		"query":  query,
		"limit":  limit,
		"filter": filter,
	})
}

// Trending returns the top emotes for the given ranking period.
func (c *Client) Trending(ctx context.Context, period Period, limit int, animatedOnly bool) ([]Emote, error) {
	filter := map[string]any{}
	if animatedOnly {
		filter["animated"] = true
	}

	return c.query(ctx, trendingQuery, map[string]any{
		"limit":  limit,
		"filter": filter,
		"period": string(period),
	})
}

func (c *Client) query(ctx context.Context, gql string, variables map[string]any) ([]Emote, error) {
	body, err := json.Marshal(map[string]any{
		"query":     gql,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("encode gql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("7tv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("7tv request failed: %s", resp.Status)
	}

	var out struct {
		Data struct {
			Emotes struct {
				Items []Emote `json:"items"`
			} `json:"emotes"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode 7tv response: %w", err)
	}

	if len(out.Errors) > 0 {
		c.logger.Warn("7tv graphql error", slog.String("message", out.Errors[0].Message))
		return nil, fmt.Errorf("7tv graphql error: %s", out.Errors[0].Message)
	}

	return out.Data.Emotes.Items, nil
}
