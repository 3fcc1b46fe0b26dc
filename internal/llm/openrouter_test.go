package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOpenRouterClient_Complete(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		want          string
		wantRateLimit bool
		wantMalformed bool
		wantRetriable bool
		wantErr       bool
	}{
		{name: "success", status: 200, body: `{"choices":[{"message":{"role":"assistant","content":" 你好 "}}]}`, want: "你好"},
		{name: "rate limited", status: 429, body: `{"error":"slow down"}`, wantErr: true, wantRateLimit: true, wantRetriable: true},
		{name: "server error", status: 502, body: `bad gateway`, wantErr: true, wantRetriable: true},
		{name: "unauthorized", status: 401, body: `{"error":"no key"}`, wantErr: true},
		{name: "no choices", status: 200, body: `{"choices":[]}`, wantErr: true, wantMalformed: true, wantRetriable: true},
		{name: "not json", status: 200, body: `<html>`, wantErr: true, wantMalformed: true, wantRetriable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v1/chat/completions" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer secret" {
					t.Errorf("Authorization = %q", got)
				}
				var req chatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("decode request: %v", err)
				}
				if req.Model != "qwen/qwen-turbo" || len(req.Messages) != 1 || req.Messages[0].Content != "prompt" {
					t.Errorf("unexpected request %+v", req)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewOpenRouterClient(srv.URL+"/api/v1/", "secret", time.Second, nil)
			got, err := c.Complete(context.Background(), "qwen/qwen-turbo", "prompt")

			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if got != tt.want {
					t.Errorf("Complete() = %q, want %q", got, tt.want)
				}
				return
			}
			if errors.Is(err, ErrRateLimited) != tt.wantRateLimit {
				t.Errorf("rate limited = %v, want %v (%v)", errors.Is(err, ErrRateLimited), tt.wantRateLimit, err)
			}
			if errors.Is(err, ErrMalformedResponse) != tt.wantMalformed {
				t.Errorf("malformed = %v, want %v (%v)", errors.Is(err, ErrMalformedResponse), tt.wantMalformed, err)
			}
			if IsRetriable(err) != tt.wantRetriable {
				t.Errorf("IsRetriable = %v, want %v (%v)", IsRetriable(err), tt.wantRetriable, err)
			}
		})
	}
}
