package typesense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/qiq-ai/typesense-mcp/internal"
)

// APIError is an error response from the Typesense API
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("typesense: %s (status %d)", e.Message, e.Status)
}

// CollectionField describes one field of the collection schema
type CollectionField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SearchParams are the parameters for one search request
type SearchParams struct {
	Query    string
	QueryBy  []string
	FilterBy string
	PerPage  int
}

// Hit is a single search hit
type Hit struct {
	Document map[string]interface{} `json:"document"`
}

// SearchResult is the response to a search request
type SearchResult struct {
	Found int   `json:"found"`
	Hits  []Hit `json:"hits"`
}

// Client is a minimal Typesense REST client bound to a single collection.
// It is built whole from a Config snapshot and discarded on
// reconfiguration.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

// NewClient builds a client from the given config. A missing host, API
// key, or collection is a construction error, not a request error.
func NewClient(cfg Config, base *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("typesense host is not configured")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("typesense api key is not configured")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, errors.New("typesense collection is not configured")
	}

	headers := http.Header{}
	headers.Set("X-TYPESENSE-API-KEY", cfg.APIKey)

	httpClient := &http.Client{}
	if base != nil {
		httpClient.Transport = &internal.HeaderTransport{Base: base.Transport, Headers: headers}
		httpClient.Timeout = base.Timeout
	} else {
		httpClient.Transport = &internal.HeaderTransport{Headers: headers}
	}

	return &Client{
		baseURL:    cfg.baseURL(),
		collection: strings.TrimSpace(cfg.Collection),
		httpClient: httpClient,
	}, nil
}

// Collection returns the collection name the client is bound to
func (c *Client) Collection() string {
	return c.collection
}

// Schema retrieves the collection's field metadata
func (c *Client) Schema(ctx context.Context) ([]CollectionField, error) {
	var schema struct {
		Name   string            `json:"name"`
		Fields []CollectionField `json:"fields"`
	}
	endpoint := fmt.Sprintf("%s/collections/%s", c.baseURL, url.PathEscape(c.collection))
	if err := c.get(ctx, endpoint, &schema); err != nil {
		return nil, fmt.Errorf("error retrieving collection schema: %w", err)
	}
	return schema.Fields, nil
}

// Search runs one search request against the collection's documents
func (c *Client) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	query := url.Values{}
	query.Set("q", params.Query)
	query.Set("query_by", strings.Join(params.QueryBy, ","))
	if params.FilterBy != "" {
		query.Set("filter_by", params.FilterBy)
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}

	endpoint := fmt.Sprintf("%s/collections/%s/documents/search?%s", c.baseURL, url.PathEscape(c.collection), query.Encode())

	var result SearchResult
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("error searching collection %s: %w", c.collection, err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(body, &detail); err == nil && detail.Message != "" {
			apiErr.Message = detail.Message
		}
		return apiErr
	}

	return json.Unmarshal(body, out)
}

// filterEquals builds an exact-match filter expression for one or more
// values of a field
func filterEquals(field string, values ...string) string {
	if len(values) == 1 {
		return fmt.Sprintf("%s:=`%s`", field, values[0])
	}
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "`" + v + "`"
	}
	return fmt.Sprintf("%s:=[%s]", field, strings.Join(quoted, ","))
}
