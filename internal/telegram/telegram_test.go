package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func setup() (mux *http.ServeMux, baseURL *url.URL, teardown func()) {
	mux = http.NewServeMux()
	server := httptest.NewServer(mux)
	surl, _ := url.Parse(server.URL)
	return mux, surl, server.Close
}

func TestNewRequiresCredentials(t *testing.T) {
	u, _ := url.Parse("https://api.telegram.org")

	if _, err := New(u, nil, "", "42"); err == nil {
		t.Error("expected error for missing token")
	}
	if _, err := New(u, nil, "123:abc", ""); err == nil {
		t.Error("expected error for missing chat id")
	}
	if _, err := New(u, nil, "123:abc", "42"); err != nil {
		t.Errorf("expected nil error, got %q", err)
	}
}

func TestSend(t *testing.T) {
	mux, baseURL, teardown := setup()
	defer teardown()

	mux.HandleFunc("/bot123:abc/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding body: %s", err)
		}
		if body.ChatID != "42" || body.Text != "fresh powder" || body.ParseMode != "Markdown" {
			t.Errorf("unexpected payload: %+v", body)
		}
		fmt.Fprintln(w, `{"ok": true}`)
	})

	n, err := New(baseURL, &http.Client{Timeout: 5 * time.Second}, "123:abc", "42")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Send(context.Background(), "fresh powder"); err != nil {
		t.Errorf("expected nil error, got %q", err)
	}
}

func TestSendAPIError(t *testing.T) {
	mux, baseURL, teardown := setup()
	defer teardown()

	mux.HandleFunc("/bot123:abc/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"ok": false, "description": "chat not found"}`)
	})

	n, err := New(baseURL, nil, "123:abc", "42")
	if err != nil {
		t.Fatal(err)
	}
	err = n.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for ok=false response")
	}
	if got := err.Error(); got != "telegram API error: chat not found" {
		t.Errorf("unexpected error: %q", got)
	}
}

func TestSendHTTPError(t *testing.T) {
	mux, baseURL, teardown := setup()
	defer teardown()

	mux.HandleFunc("/bot123:abc/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	n, err := New(baseURL, nil, "123:abc", "42")
	if err != nil {
		t.Fatal(err)
	}
	if err := n.Send(context.Background(), "hello"); err == nil {
		t.Error("expected error for HTTP 403")
	}
}
