package services

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Searcher retrieves candidate taskmaps for a planning query.
type Searcher interface {
	Search(ctx context.Context, query string, domain session.Domain, top int) ([]session.Taskmap, error)
}

// JokeRetriever returns a short, task-appropriate joke.
type JokeRetriever interface {
	RandomJoke(ctx context.Context) (string, error)
}

// SearcherClient talks to the taskmap search backend over HTTP.
type SearcherClient struct {
	httpBackend
}

// NewSearcherClient builds a searcher client for the given base URL.
func NewSearcherClient(baseURL string, timeout time.Duration) *SearcherClient {
	return &SearcherClient{httpBackend: newHTTPBackend(baseURL, timeout)}
}

type searchRequest struct {
	Query  string         `json:"query"`
	Domain session.Domain `json:"domain"`
	Top    int            `json:"top"`
}

type searchResponse struct {
	Candidates []session.Taskmap `json:"candidates"`
}

func (c *SearcherClient) Search(ctx context.Context, query string, domain session.Domain, top int) ([]session.Taskmap, error) {
	var out searchResponse
	if err := c.postJSON(ctx, "/v1/search", searchRequest{Query: query, Domain: domain, Top: top}, &out); err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

// JokeClient talks to the joke retriever backend over HTTP.
type JokeClient struct {
	httpBackend
}

// NewJokeClient builds a joke client for the given base URL.
func NewJokeClient(baseURL string, timeout time.Duration) *JokeClient {
	return &JokeClient{httpBackend: newHTTPBackend(baseURL, timeout)}
}

type jokeResponse struct {
	Text string `json:"text"`
}

func (c *JokeClient) RandomJoke(ctx context.Context) (string, error) {
	var out jokeResponse
	if err := c.postJSON(ctx, "/v1/joke", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}
