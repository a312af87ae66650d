package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBurst(t *testing.T) {
	// 1 запрос/сек, всплеск 3
	rl := NewRateLimiter(1, 3)
	t.Cleanup(rl.Stop)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/public/x7k2m9pq/feedback", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Первые три запроса проходят в рамках всплеска
	for i := 0; i < 3; i++ {
		if code := doRequest("10.0.0.1:1234"); code != http.StatusOK {
			t.Fatalf("запрос %d: статус = %d, ожидалось 200", i+1, code)
		}
	}

	// Четвёртый — сверх лимита
	if code := doRequest("10.0.0.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("сверх лимита: статус = %d, ожидалось 429", code)
	}

	// Другой IP имеет собственный лимит
	if code := doRequest("10.0.0.2:1234"); code != http.StatusOK {
		t.Errorf("другой IP: статус = %d, ожидалось 200", code)
	}
}

func TestRateLimiterStop(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.Stop()
	// Повторный вызов не должен паниковать
	rl.Stop()

	select {
	case <-rl.done:
	default:
		t.Error("после Stop канал done должен быть закрыт")
	}
}

func TestClientIPForwarded(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("clientIP = %q, ожидалось 10.0.0.1", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("clientIP с X-Forwarded-For = %q, ожидалось 203.0.113.7", got)
	}
}
