package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, status int, reply string, got *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if got != nil {
			if err := json.Unmarshal(body, got); err != nil {
				t.Errorf("request body: %v", err)
			}
		}
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete(t *testing.T) {
	var req chatRequest
	srv := newTestServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  Dear team, ... \n"}}]}`, &req)
	c := NewClient(srv.URL+"/", "key", "gpt-4o-mini", 0.1, 2000)

	got, err := c.Complete(context.Background(), CompletionPrompt, "write an email")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Dear team, ..." {
		t.Errorf("got %q", got)
	}
	if req.Model != "gpt-4o-mini" || req.Temperature != 0.1 || req.MaxTokens != 2000 {
		t.Errorf("request = %+v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "write an email" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		want   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "429"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "empty"},
		{"blank", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, "empty"},
		{"garbage", http.StatusOK, `not json`, "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.reply, nil)
			_, err := NewClient(srv.URL, "key", "m", 0, 10).Complete(context.Background(), "s", "u")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestCompleteWithoutKey(t *testing.T) {
	_, err := NewClient("http://unused", "", "m", 0, 10).Complete(context.Background(), "s", "u")
	if err == nil {
		t.Error("expected error without key")
	}
}

func TestCompleteCancelled(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{}`, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, "key", "m", 0, 10).Complete(ctx, "s", "u")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestEditRequest(t *testing.T) {
	got := EditRequest("Hi Bob", "make it formal")
	want := "<original_text>Hi Bob</original_text>\n<voice_directive>make it formal</voice_directive>"
	if got != want {
		t.Errorf("got %q", got)
	}
}
