/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	var gotPath, gotAuth string
	var gotPayload chatCompletionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  generated text  "}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", WithSystemPrompt("Be precise."))
	got, err := c.Generate(context.Background(), "gpt-4o-mini", 0.2, "Hello Ann from Lyon")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if got != "generated text" {
		t.Errorf("Generate() = %q, want trimmed content", got)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %s, want /v1/chat/completions", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %s, want bearer key", gotAuth)
	}
	if gotPayload.Model != "gpt-4o-mini" || gotPayload.Temperature != 0.2 {
		t.Errorf("payload = %+v, want model/temperature passed through", gotPayload)
	}
	if len(gotPayload.Messages) != 2 ||
		gotPayload.Messages[0].Role != "system" ||
		gotPayload.Messages[1].Content != "Hello Ann from Lyon" {
		t.Errorf("messages = %+v, want system then user", gotPayload.Messages)
	}
}

func TestGenerateNoSystemPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.Messages) != 1 || payload.Messages[0].Role != "user" {
			t.Errorf("messages = %+v, want single user message", payload.Messages)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	if _, err := c.Generate(context.Background(), "m", 0, "p"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"quota exceeded"}`, http.StatusTooManyRequests)
			},
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "k")
			if _, err := c.Generate(context.Background(), "m", 0, "p"); err == nil {
				t.Error("Generate() expected error, got nil")
			}
		})
	}
}
