package heartbeat

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	xhttp "SignalTrader/pkg/http"

	"github.com/stretchr/testify/require"
)

func TestBeatPostsPayload(t *testing.T) {
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body.Store(r.Method + " " + string(b))
	}))
	defer srv.Close()

	New(xhttp.NewClient(), srv.URL, time.Second, time.Second, nil).Beat(context.Background())
	require.Equal(t, `POST {"BotOnline":1}`, body.Load())
}

func TestBeatIgnoresFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := New(xhttp.NewClient(), srv.URL, time.Second, time.Second, nil)
	require.NotPanics(t, func() { e.Beat(context.Background()) })

	unreachable := New(xhttp.NewClient(), "http://127.0.0.1:1", time.Second, 100*time.Millisecond, nil)
	require.NotPanics(t, func() { unreachable.Beat(context.Background()) })
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(xhttp.NewClient(), srv.URL, 20*time.Millisecond, time.Second, nil).Run(ctx)
	}()

	require.Eventually(t, func() bool { return hits.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunDisabledReturnsImmediately(t *testing.T) {
	e := New(xhttp.NewClient(), "", 0, 0, nil)
	require.False(t, e.Enabled())
	require.NoError(t, e.Run(context.Background()))
}
