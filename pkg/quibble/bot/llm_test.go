package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(url string) *CompletionClient {
	cfg := DefaultConfig()
	cfg.API.URL = url
	cfg.API.Token = "test-token"
	return NewCompletionClient(cfg, nil)
}

func testPayload() CompletionRequest {
	return CompletionRequest{
		Messages:    []Turn{TextTurn(RoleSystem, "p"), TextTurn(RoleUser, "hi")},
		Temperature: 0.7,
		MaxTokens:   64,
	}
}

func TestCompleteChatShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("request body not valid JSON: %v", err)
		}
		if _, ok := req["messages"]; !ok {
			t.Error("request missing messages field")
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Complete(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello back" {
		t.Errorf("Complete = %q, want %q", got, "hello back")
	}
}

func TestCompleteLegacyShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices":[{"text":"legacy reply"}]}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL).Complete(context.Background(), testPayload())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "legacy reply" {
		t.Errorf("Complete = %q, want %q", got, "legacy reply")
	}
}

func TestCompleteFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "http status error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("boom"))
			},
			check: func(t *testing.T, err error) {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) {
					t.Fatalf("error = %v, want StatusError", err)
				}
				if statusErr.Code != http.StatusInternalServerError {
					t.Errorf("status = %d, want 500", statusErr.Code)
				}
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte("not json at all"))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrInvalidJSON) {
					t.Errorf("error = %v, want ErrInvalidJSON", err)
				}
			},
		},
		{
			name: "malformed response",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices":[{"finish_reason":"stop"}]}`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("error = %v, want ErrMalformedResponse", err)
				}
			},
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Errorf("error = %v, want ErrMalformedResponse", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := testClient(srv.URL).Complete(context.Background(), testPayload())
			if err == nil {
				t.Fatal("expected an error")
			}
			tt.check(t, err)
		})
	}
}

func TestCompleteTransportError(t *testing.T) {
	// Point at a closed server to force a connection failure.
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(url).Complete(context.Background(), testPayload())
	if err == nil {
		t.Fatal("expected a transport error")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) || errors.Is(err, ErrInvalidJSON) || errors.Is(err, ErrMalformedResponse) {
		t.Errorf("transport failure misclassified: %v", err)
	}
}
