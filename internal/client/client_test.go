package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

var baseURL = &url.URL{Scheme: "http", Host: "example.com", Path: "/"}

// TestNewClient confirms that a client can be created with the default baseURL
// and default User-Agent.
func TestNewClient(t *testing.T) {
	c := NewClient(baseURL, nil)

	if c.BaseURL.String() != baseURL.String() {
		t.Errorf("NewClient BaseURL is %v, expected %v", c.BaseURL, baseURL)
	}
	if c.userAgent != userAgent {
		t.Errorf("NewClient User-Agent is %v, expected %v", c.userAgent, userAgent)
	}
}

// TestNewClientHTTPClient confirms that a provided http.Client is used as-is
// and that omitting one falls back to the 90s default.
func TestNewClientHTTPClient(t *testing.T) {
	cc := &http.Client{Timeout: 5 * time.Second}
	c := NewClient(baseURL, cc)
	if c.client != cc {
		t.Error("expected the provided http.Client to be used")
	}
	if c.client.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", c.client.Timeout)
	}

	c = NewClient(baseURL, nil)
	if c.client.Timeout != 90*time.Second {
		t.Errorf("expected 90s default timeout, got %s", c.client.Timeout)
	}
}

// TestNewRequest confirms that NewRequest returns an API request with the
// correct URL, a correctly encoded body and the correct User-Agent and
// Content-Type headers set.
func TestNewRequest(t *testing.T) {
	c := NewClient(baseURL, nil)

	type Payload struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}

	t.Run("valid request", func(tc *testing.T) {
		inURL, outURL := "foo", baseURL.String()+"foo"
		inBody, outBody := &Payload{ChatID: "42", Text: "snow"},
			`{"chat_id":"42","text":"snow"}`+"\n"

		req, err := c.NewRequest(context.Background(), "POST", inURL, inBody)
		if err != nil {
			tc.Errorf("Unexpected error: %s", err)
		}
		if req.URL.String() != outURL {
			tc.Errorf("Expecting URL %v, got %v", outURL, req.URL.String())
		}

		body, _ := io.ReadAll(req.Body)
		if string(body) != outBody {
			tc.Errorf("Expecting body %v, got %v", outBody, string(body))
		}
		if req.Header.Get("User-Agent") != userAgent {
			tc.Errorf("Expecting User-Agent %v, got %v", userAgent, req.Header.Get("User-Agent"))
		}
		if req.Header.Get("Content-Type") != "application/json" {
			tc.Errorf("Expecting Content-Type %v, got %v", "application/json", req.Header.Get("Content-Type"))
		}
	})

	t.Run("request with invalid JSON", func(tc *testing.T) {
		type T struct{ A map[interface{}]interface{} }
		_, err := c.NewRequest(context.Background(), "GET", ".", &T{})
		if err == nil {
			tc.Error("Expected error")
		}
	})

	t.Run("request with an invalid URL", func(tc *testing.T) {
		_, err := c.NewRequest(context.Background(), "GET", ":", nil)
		if err == nil {
			tc.Error("Expected error")
		}
	})

	t.Run("request with an empty body", func(tc *testing.T) {
		req, err := c.NewRequest(context.Background(), "GET", ".", nil)
		if err != nil {
			tc.Error("Unexpected error")
		}
		if req.Body != nil {
			tc.Error("Expected nil body")
		}
	})
}

func TestDoDecodesResponse(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"value": 7}`)
	})

	req, _ := c.NewRequest(context.Background(), "GET", "/ok", nil)
	var out struct {
		Value int `json:"value"`
	}
	if _, err := c.Do(req, &out); err != nil {
		t.Errorf("expected nil error, got %q", err)
	}
	if out.Value != 7 {
		t.Errorf("expected 7, got %d", out.Value)
	}
}

func TestDoClientErrorIsNotRetried(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	calls := 0
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "not found", http.StatusNotFound)
	})

	req, _ := c.NewRequest(context.Background(), "GET", "/missing", nil)
	if _, err := c.Do(req, nil); err == nil {
		t.Error("expected error for HTTP 404")
	}
	if calls != 1 {
		t.Errorf("expected 1 request, got %d", calls)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	calls := 0
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprintln(w, `{"value": 1}`)
	})

	req, _ := c.NewRequest(context.Background(), "GET", "/flaky", nil)
	var out struct {
		Value int `json:"value"`
	}
	if _, err := c.Do(req, &out); err != nil {
		t.Errorf("expected nil error after retries, got %q", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 requests, got %d", calls)
	}
	if out.Value != 1 {
		t.Errorf("expected 1, got %d", out.Value)
	}
}

func TestDoRewindsBodyOnRetry(t *testing.T) {
	c, mux, teardown := setup()
	defer teardown()

	calls := 0
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		if calls == 1 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		if string(body) != `{"text":"again"}`+"\n" {
			t.Errorf("expected body on retry, got %q", string(body))
		}
		fmt.Fprintln(w, `{}`)
	})

	req, _ := c.NewRequest(context.Background(), "POST", "/echo", &struct {
		Text string `json:"text"`
	}{Text: "again"})
	if _, err := c.Do(req, nil); err != nil {
		t.Errorf("expected nil error, got %q", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 requests, got %d", calls)
	}
}

func TestDoCancelledContext(t *testing.T) {
	c, _, teardown := setup()
	defer teardown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := c.NewRequest(ctx, "GET", "/never", nil)
	if _, err := c.Do(req, nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

// Setup establishes a test Server that can be used to provide mock responses
// during testing. It returns a pointer to a client, a mux and a teardown
// function that must be called when testing is complete.
func setup() (c *Client, mux *http.ServeMux, teardown func()) {
	mux = http.NewServeMux()
	server := httptest.NewServer(mux)

	surl, _ := url.Parse(server.URL + "/")
	c = NewClient(surl, nil)

	return c, mux, server.Close
}
