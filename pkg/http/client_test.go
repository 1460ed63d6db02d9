package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDoKeepsRawQueryAndBody(t *testing.T) {
	var gotQuery, gotBody, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1}`))
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.Do(context.Background(), &RequestOptions{
		Method:   MethodPost,
		URL:      srv.URL,
		RawQuery: "b=2&a=1&signature=ff",
		Body:     map[string]int{"x": 1},
	})
	require.NoError(t, err)
	require.False(t, resp.OK())
	require.Equal(t, `{"code":-1}`, string(resp.Body))
	require.Equal(t, "b=2&a=1&signature=ff", gotQuery)
	require.JSONEq(t, `{"x":1}`, gotBody)
	require.Equal(t, "application/json", gotCT)
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	var dest map[string]interface{}
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &dest)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
}

type denyLimiter struct{}

func (denyLimiter) Wait(context.Context) error { return errors.New("denied") }

func TestLimiterBlocksRequest(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := NewClient(WithLimiter(denyLimiter{})).Do(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL})
	require.ErrorContains(t, err, "rate limit")
	require.False(t, called)
}
