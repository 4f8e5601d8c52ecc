package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/botapigen/bind"
	"github.com/mark3labs/botapigen/resolve"
	"github.com/mark3labs/botapigen/schema"
	"github.com/mark3labs/botapigen/wire"
)

const testDoc = `
types:
  User:
    fields:
      - {name: id, type: Integer, required: true}
      - {name: is_bot, type: Boolean, required: true}
      - {name: username, type: String}
methods:
  getMe:
    returns: User
  sendMessage:
    params:
      - {name: chat_id, type: Integer, required: true}
      - {name: text, type: String, required: true}
    returns: User
`

func testBindings(t *testing.T) *bind.Bindings {
	t.Helper()
	store, err := schema.Parse([]byte(testDoc), "inline")
	require.NoError(t, err)
	graph, err := resolve.Resolve(store)
	require.NoError(t, err)
	b, err := bind.Generate(graph)
	require.NoError(t, err)
	return b
}

func TestInvokeSuccess(t *testing.T) {
	b := testBindings(t)

	var seen *wire.EncodedRequest
	transport := TransportFunc(func(ctx context.Context, req *wire.EncodedRequest) ([]byte, error) {
		seen = req
		return []byte(`{"ok":true,"result":{"id":42,"is_bot":true}}`), nil
	})

	c, err := New(b, transport)
	require.NoError(t, err)

	v, err := c.Invoke(context.Background(), "getMe", nil)
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Equal(t, "getMe", seen.Method)

	id, ok := v.(*wire.Object).Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestInvokeUnknownMethod(t *testing.T) {
	b := testBindings(t)
	c, err := New(b, TransportFunc(func(context.Context, *wire.EncodedRequest) ([]byte, error) {
		t.Fatal("transport must not be reached")
		return nil, nil
	}))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "noSuchMethod", nil)
	require.Error(t, err)
}

func TestInvokeEncodeErrorSkipsTransport(t *testing.T) {
	b := testBindings(t)

	calls := 0
	c, err := New(b, TransportFunc(func(context.Context, *wire.EncodedRequest) ([]byte, error) {
		calls++
		return []byte(`{"ok":true,"result":{}}`), nil
	}))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "sendMessage", map[string]any{"chat_id": int64(1)})
	require.Error(t, err)
	assert.True(t, wire.IsMissingRequired(err))
	assert.Equal(t, 0, calls, "argument errors must surface before any transport activity")
}

func TestInvokeTransportFailure(t *testing.T) {
	b := testBindings(t)

	boom := errors.New("connection refused")
	c, err := New(b, TransportFunc(func(context.Context, *wire.EncodedRequest) ([]byte, error) {
		return nil, boom
	}))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "getMe", nil)
	require.Error(t, err)
	assert.True(t, wire.IsTransportFailure(err))
	assert.True(t, errors.Is(err, boom))

	var ae *wire.APIError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.Retryable())
}

func TestInvokeShapeMismatch(t *testing.T) {
	b := testBindings(t)

	c, err := New(b, TransportFunc(func(context.Context, *wire.EncodedRequest) ([]byte, error) {
		return []byte(`{"ok":true,"result":{"id":"not a number","is_bot":true}}`), nil
	}))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "getMe", nil)
	require.Error(t, err)
	assert.True(t, wire.IsShapeMismatch(err))
}

func TestInvokeRejection(t *testing.T) {
	b := testBindings(t)

	c, err := New(b, TransportFunc(func(context.Context, *wire.EncodedRequest) ([]byte, error) {
		return []byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked"}`), nil
	}))
	require.NoError(t, err)

	_, err = c.Invoke(context.Background(), "getMe", nil)
	require.Error(t, err)
	assert.True(t, wire.IsAPIRejected(err))
}

func TestNewValidatesInputs(t *testing.T) {
	b := testBindings(t)
	_, err := New(nil, TransportFunc(func(context.Context, *wire.EncodedRequest) ([]byte, error) { return nil, nil }))
	require.Error(t, err)
	_, err = New(b, nil)
	require.Error(t, err)
}

func TestHTTPTransportSend(t *testing.T) {
	var gotPath, gotContentType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		// Rejections travel inside the envelope with a non-2xx status.
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request"}`))
	}))
	defer srv.Close()

	tr, err := NewHTTPTransport("123:abc", WithBaseURL(srv.URL))
	require.NoError(t, err)

	raw, err := tr.Send(context.Background(), &wire.EncodedRequest{
		Method:      "sendMessage",
		ContentType: "application/json",
		Body:        []byte(`{"chat_id":1,"text":"hi"}`),
	})
	require.NoError(t, err, "non-2xx statuses are not transport errors")

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, `{"chat_id":1,"text":"hi"}`, gotBody)
	assert.Contains(t, string(raw), `"error_code":400`)
}

func TestHTTPTransportEmptyToken(t *testing.T) {
	_, err := NewHTTPTransport("  ")
	require.Error(t, err)
}
