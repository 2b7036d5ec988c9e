package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bosbase/realtime-go/auth"
	"github.com/golang-jwt/jwt/v5"
)

func validToken(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestClient_Do_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/health" {
			t.Errorf("expected /api/health, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/health"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success, got %d", resp.StatusCode)
	}

	var decoded map[string]string
	if err := resp.JSON(&decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["status"] != "ok" {
		t.Errorf("got %v", decoded)
	}
}

func TestClient_Do_AuthHeaderIsRawToken(t *testing.T) {
	token := validToken(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != token {
			t.Errorf("expected raw token auth header, got %q", got)
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	store := auth.NewStore()
	store.Save(token, nil)

	c, err := New(Config{BaseURL: srv.URL}, WithAuth(store))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Do_NoAuthHeaderWhenInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("expected no auth header, got %q", got)
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	store := auth.NewStore()
	store.Save("expired-garbage", nil)

	c, _ := New(Config{BaseURL: srv.URL}, WithAuth(store))
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Do_DefaultHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Language"); got != "en-US" {
			t.Errorf("expected Accept-Language en-US, got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "bosbase-go-sdk" {
			t.Errorf("expected default user agent, got %q", got)
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Do_ClassifiesStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			w.WriteHeader(404)
		case "/boom":
			w.WriteHeader(500)
		default:
			w.WriteHeader(403)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})

	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/missing"})
	if !IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/boom"})
	if !IsServerError(err) || !IsRetryable(err) {
		t.Errorf("expected retryable server error, got %v", err)
	}

	_, err = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/forbidden"})
	if !IsAuth(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestClient_Do_CancelledContextIsAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !IsAbort(err) {
		t.Errorf("expected abort error, got %v", err)
	}
}

func TestClient_DoStream_SSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("expected Accept header, got %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(200)
		_, _ = w.Write([]byte("data: {\"n\":1}\n\n"))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})

	stream, err := c.DoStream(context.Background(), Request{
		Method:  http.MethodGet,
		Path:    "/api/realtime",
		Headers: map[string]string{"Accept": "text/event-stream"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer stream.Close()

	if stream.SSE == nil {
		t.Fatal("expected SSE reader for text/event-stream content type")
	}
	frame, err := stream.SSE.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if frame.Data != `{"n":1}` {
		t.Errorf("got data %q", frame.Data)
	}
}

func TestClient_DoStream_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})

	_, err := c.DoStream(context.Background(), Request{Method: http.MethodGet, Path: "/api/realtime"})
	if !IsAuth(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestClient_BuildURL(t *testing.T) {
	c, _ := New(Config{BaseURL: "https://example.com/"})

	got := c.BuildURL("/api/pubsub", map[string]string{"token": "a b"})
	want := "https://example.com/api/pubsub?token=a+b"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if got := c.BuildURL("api/health", nil); got != "https://example.com/api/health" {
		t.Errorf("got %q", got)
	}
}

func TestClient_New_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected validation error for missing base_url")
	}
}

func TestClient_Do_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(500)
			return
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	retryCfg := DefaultRetryConfig()
	retryCfg.InitialBackoff = time.Millisecond

	c, _ := New(Config{BaseURL: srv.URL, Retry: retryCfg})

	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() {
		t.Errorf("expected success after retries, got %d", resp.StatusCode)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestClient_Do_PostJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
			t.Errorf("expected json content type, got %q", ct)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["clientId"] != "abc" {
			t.Errorf("got body %v", body)
		}
		w.WriteHeader(204)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})

	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/realtime",
		Body:   map[string]any{"clientId": "abc", "subscriptions": []string{"t1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
