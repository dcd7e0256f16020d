package llm

import (
    "context"
    "io"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"
)

func TestRetryHTTP_RetriesThenSucceeds(t *testing.T) {
    var calls int
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls++
        if calls < 3 {
            w.WriteHeader(http.StatusTooManyRequests)
            return
        }
        w.Write([]byte(`ok`))
    }))
    defer ts.Close()

    resp, err := retryHTTP(context.Background(), 3, 1*time.Millisecond, func() (*http.Response, error) {
        return http.Get(ts.URL)
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    defer resp.Body.Close()
    if calls != 3 {
        t.Fatalf("expected 3 attempts, got %d", calls)
    }
    if resp.StatusCode != http.StatusOK {
        t.Fatalf("expected 200, got %d", resp.StatusCode)
    }
}

func TestRetryHTTP_LastAttemptBodyStillReadable(t *testing.T) {
    // Siempre 429: se agotan los intentos y el caller recibe la última
    // respuesta con el body sin cerrar
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusTooManyRequests)
        w.Write([]byte(`{"error":"rate limited"}`))
    }))
    defer ts.Close()

    resp, err := retryHTTP(context.Background(), 2, 1*time.Millisecond, func() (*http.Response, error) {
        return http.Get(ts.URL)
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusTooManyRequests {
        t.Fatalf("expected 429, got %d", resp.StatusCode)
    }
    body, err := io.ReadAll(resp.Body)
    if err != nil {
        t.Fatalf("body should be readable after exhausted retries: %v", err)
    }
    if !strings.Contains(string(body), "rate limited") {
        t.Fatalf("unexpected body: %s", body)
    }
}

func TestRetryHTTP_NonRetriableStatusReturnsImmediately(t *testing.T) {
    var calls int
    ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        calls++
        w.WriteHeader(http.StatusInternalServerError)
    }))
    defer ts.Close()

    resp, err := retryHTTP(context.Background(), 3, 1*time.Millisecond, func() (*http.Response, error) {
        return http.Get(ts.URL)
    })
    if err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    resp.Body.Close()
    if calls != 1 {
        t.Fatalf("500 must not be retried, got %d attempts", calls)
    }
}
