package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestHTTPNotifier_NotifyComplete_Success(t *testing.T) {
	var received Completion
	var receivedAuth, receivedRequestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/menu/next" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		receivedAuth = r.Header.Get("Authorization")
		receivedRequestID = r.Header.Get(RequestIDHeader)

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL+"/menu/next", "handoff-token", time.Second, testLogger())
	err := n.NotifyComplete(context.Background(), Completion{
		SessionID:  "s-1",
		PlaylistID: "p-1",
		Units:      2,
		Answers:    3,
		Wrong:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer handoff-token" {
		t.Errorf("auth = %q, want %q", receivedAuth, "Bearer handoff-token")
	}
	if receivedRequestID == "" {
		t.Error("request id header missing")
	}
	if received.SessionID != "s-1" || received.Wrong != 1 || received.Units != 2 {
		t.Errorf("payload = %+v", received)
	}
}

func TestHTTPNotifier_NoTokenNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want none", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewHTTPNotifier(server.URL, "", time.Second, testLogger())
	if err := n.NotifyComplete(context.Background(), Completion{SessionID: "s-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPNotifier_ReturnsHandoffError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer server.Close()

			n := NewHTTPNotifier(server.URL, "t", time.Second, testLogger())
			err := n.NotifyComplete(context.Background(), Completion{SessionID: "s-1"})

			var herr *HandoffError
			if !errors.As(err, &herr) {
				t.Fatalf("error = %v, want *HandoffError", err)
			}
			if herr.StatusCode != tt.status || herr.IsRetryable() != tt.retryable {
				t.Errorf("HandoffError = %+v, retryable = %v", herr, herr.IsRetryable())
			}
			if herr.Body != `{"detail":"nope"}` {
				t.Errorf("body = %q", herr.Body)
			}
		})
	}
}

func TestHTTPNotifier_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewHTTPNotifier(server.URL, "t", time.Second, testLogger())
	if err := n.NotifyComplete(ctx, Completion{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestStubNotifier(t *testing.T) {
	if err := NewStubNotifier(testLogger()).NotifyComplete(context.Background(), Completion{SessionID: "s"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
