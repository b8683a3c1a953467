// Package backend executes named GraphQL operations against the CMS endpoint.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"actionhub/internal/transport"
	"actionhub/internal/utils/logger"
)

var log = logger.New("BACKEND")

// Operations maps an operation id to its GraphQL document.
type Operations map[string]string

// Error is returned for every failed operation. Backend is true when the
// endpoint answered but reported errors in the payload; otherwise the request
// never produced a usable response (Status is 0 for network failures).
type Error struct {
	Status  int
	Message string
	Backend bool
}

func (e *Error) Error() string {
	if e.Backend {
		return fmt.Sprintf("backend error: %s", e.Message)
	}
	if e.Status == 0 {
		return fmt.Sprintf("backend transport error: %s", e.Message)
	}
	return fmt.Sprintf("backend transport error (%d): %s", e.Status, e.Message)
}

// IsError reports whether err carries a *Error.
func IsError(err error) bool {
	var be *Error
	return errors.As(err, &be)
}

// Result is the data member of a successful response.
type Result struct {
	Data json.RawMessage
}

// Executor is what the action pipeline needs from the backend.
type Executor interface {
	Execute(ctx context.Context, operation string, variables map[string]interface{}, credential string) (*Result, error)
}

// Client posts GraphQL requests to a single endpoint.
type Client struct {
	endpoint   string
	operations Operations
	http       transport.Doer
}

// NewClient builds a client. A zero timeout means no client-side limit.
func NewClient(endpoint string, operations Operations, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		operations: operations,
		http:       &http.Client{Timeout: timeout},
	}
}

// HasOperation reports whether id is in the catalogue.
func (c *Client) HasOperation(id string) bool {
	_, ok := c.operations[id]
	return ok
}

type request struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute runs operation with variables, authenticated as credential. There
// are no retries.
func (c *Client) Execute(ctx context.Context, operation string, variables map[string]interface{}, credential string) (*Result, error) {
	query, ok := c.operations[operation]
	if !ok {
		return nil, &Error{Message: "unknown backend operation"}
	}
	if variables == nil {
		variables = map[string]interface{}{}
	}

	body, err := json.Marshal(request{OperationName: operation, Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encode %s variables: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	start := time.Now()
	resp, err := transport.From(ctx, c.http).Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: err.Error()}
	}
	log.Debug("%s -> %d in %s", operation, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Status: resp.StatusCode, Message: statusMessage(resp.StatusCode, raw)}
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, &Error{Status: resp.StatusCode, Message: strings.Join(msgs, "; "), Backend: true}
	}

	return &Result{Data: out.Data}, nil
}

// statusMessage prefers a GraphQL error message in the body, then the status text.
func statusMessage(status int, raw []byte) string {
	var out response
	if json.Unmarshal(raw, &out) == nil && len(out.Errors) > 0 && out.Errors[0].Message != "" {
		return out.Errors[0].Message
	}
	return http.StatusText(status)
}
