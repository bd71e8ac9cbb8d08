package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// List is one page of a list endpoint. Endpoints without pagination return
// every item in a single page.
type List[T any] struct {
	Items    []T
	Count    int
	Next     string
	Previous string
}

type page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next"`
	Previous string `json:"previous"`
	Results  []T    `json:"results"`
}

// decodeList accepts both a bare JSON array and a paginated envelope.
func decodeList[T any](body []byte) (List[T], error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return List[T]{}, fmt.Errorf("failed to decode list: %w", err)
		}
		return List[T]{Items: items, Count: len(items)}, nil
	}

	var p page[T]
	if err := json.Unmarshal(body, &p); err != nil {
		return List[T]{}, fmt.Errorf("failed to decode page: %w", err)
	}
	return List[T]{Items: p.Results, Count: p.Count, Next: p.Next, Previous: p.Previous}, nil
}

func getList[T any](ctx context.Context, c *Client, url string, query map[string]string) (List[T], error) {
	res, err := c.send(ctx, http.MethodGet, url, func(r *resty.Request) {
		if len(query) > 0 {
			r.SetQueryParams(query)
		}
	})
	if err != nil {
		return List[T]{}, err
	}
	return decodeList[T](res.Body())
}

// getJSON, postJSON etc. decode the response body into result when it is
// non-nil.
func (c *Client) getJSON(ctx context.Context, url string, result any) error {
	return c.sendJSON(ctx, http.MethodGet, url, nil, result)
}

func (c *Client) sendJSON(ctx context.Context, method, url string, body, result any) error {
	_, err := c.send(ctx, method, url, func(r *resty.Request) {
		if body != nil {
			r.SetBody(body)
		}
		if result != nil {
			r.SetResult(result)
		}
	})
	return err
}
