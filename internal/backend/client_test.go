package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"actionhub/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOps = Operations{
	"updateTask": "mutation updateTask($id: ID!) { updateMission(id: $id) { data { id } } }",
}

func TestExecute_Success(t *testing.T) {
	var got request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":{"updateMission":{"data":{"id":"7"}}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testOps, time.Second)
	res, err := c.Execute(context.Background(), "updateTask", map[string]interface{}{"id": "7"}, "tok")
	require.NoError(t, err)
	assert.JSONEq(t, `{"updateMission":{"data":{"id":"7"}}}`, string(res.Data))

	assert.Equal(t, "updateTask", got.OperationName)
	assert.Equal(t, testOps["updateTask"], got.Query)
	assert.Equal(t, "7", got.Variables["id"])
}

func TestExecute_BackendReportedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"Forbidden"},{"message":"bad id"}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testOps, time.Second).Execute(context.Background(), "updateTask", nil, "tok")
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.True(t, be.Backend)
	assert.Equal(t, http.StatusOK, be.Status)
	assert.Equal(t, "Forbidden; bad id", be.Message)
}

func TestExecute_TransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, testOps, time.Second).Execute(context.Background(), "updateTask", nil, "tok")
	var be *Error
	require.ErrorAs(t, err, &be)
	assert.False(t, be.Backend)
	assert.Equal(t, http.StatusBadGateway, be.Status)

	down := transport.DoerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	ctx := transport.WithDoer(context.Background(), down)
	_, err = NewClient(srv.URL, testOps, time.Second).Execute(ctx, "updateTask", nil, "tok")
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0, be.Status)
	assert.Contains(t, be.Error(), "connection refused")
}

func TestExecute_UnknownOperation(t *testing.T) {
	calls := 0
	ctx := transport.WithDoer(context.Background(), transport.DoerFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("unreachable")
	}))

	_, err := NewClient("http://cms", testOps, 0).Execute(ctx, "dropTables", nil, "tok")
	assert.True(t, IsError(err))
	assert.Zero(t, calls)
}

func TestClient_HasOperation(t *testing.T) {
	c := NewClient("http://cms", testOps, 0)
	assert.True(t, c.HasOperation("updateTask"))
	assert.False(t, c.HasOperation("dropTables"))
}
