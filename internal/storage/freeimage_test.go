package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFreeImageHost_Publish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("key") != "free-key" {
			t.Errorf("unexpected key %q", r.PostForm.Get("key"))
		}
		if r.PostForm.Get("format") != "json" {
			t.Errorf("unexpected format %q", r.PostForm.Get("format"))
		}
		if r.PostForm.Get("source") != base64.StdEncoding.EncodeToString([]byte("image bytes")) {
			t.Errorf("unexpected source %q", r.PostForm.Get("source"))
		}
		_, _ = w.Write([]byte(`{"status_code":200,"image":{"url":"https://iili.io/abc.png"}}`))
	}))
	defer server.Close()

	host := NewFreeImageHost("free-key", WithEndpoint(server.URL))

	url, err := host.Publish(context.Background(), "ignored.png", "image/png", bytes.NewReader([]byte("image bytes")))
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if url != "https://iili.io/abc.png" {
		t.Errorf("url = %q", url)
	}
}

func TestFreeImageHost_Publish_Failure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"error payload", http.StatusBadRequest, `{"status_code":400,"error":{"message":"Invalid API key"}}`},
		{"missing url", http.StatusOK, `{"status_code":200,"image":{}}`},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			host := NewFreeImageHost("k", WithEndpoint(server.URL))

			_, err := host.Publish(context.Background(), "x.png", "", bytes.NewReader([]byte("x")))
			if !errors.Is(err, ErrUploadFailed) {
				t.Errorf("expected ErrUploadFailed, got %v", err)
			}
		})
	}
}
