package footballdata

import (
	"container/heap"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/usecase"

	crerr "github.com/cockroachdb/errors"
)

func newTestGateway(t *testing.T, baseURL string) *Gateway {
	t.Helper()
	gateway := NewGateway(GatewayConfig{
		BaseURL:        baseURL,
		Token:          "test-token",
		CallsPerMinute: 600,
		CacheTTL:       time.Minute,
		RequestTimeout: 2 * time.Second,
		Logger:         logging.NewNop(),
	})
	t.Cleanup(gateway.Close)
	return gateway
}

func TestGateway_GetServesAndCaches(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if got := r.Header.Get("X-Auth-Token"); got != "test-token" {
			t.Errorf("expected auth token header, got=%q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	t.Cleanup(server.Close)

	gateway := newTestGateway(t, server.URL)

	query := url.Values{}
	query.Set("ids", "101,102")

	first, err := gateway.Get(context.Background(), PriorityLive, "/matches", query)
	if err != nil {
		t.Fatalf("first get failed: %v", err)
	}
	if string(first) != `{"matches":[]}` {
		t.Fatalf("unexpected body: %s", first)
	}

	second, err := gateway.Get(context.Background(), PriorityLive, "/matches", query)
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if string(second) != `{"matches":[]}` {
		t.Fatalf("unexpected cached body: %s", second)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected one upstream hit, got=%d", got)
	}
}

func TestGateway_NotFoundMapsToSentinel(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	gateway := newTestGateway(t, server.URL)

	_, err := gateway.Get(context.Background(), PriorityReconcile, "/matches/9999", nil)
	if !crerr.Is(err, usecase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got=%v", err)
	}
}

func TestGateway_AuthFailureMapsToDependencyUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	gateway := newTestGateway(t, server.URL)

	_, err := gateway.Get(context.Background(), PriorityBulk, "/competitions/PL/matches", nil)
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got=%v", err)
	}
}

func TestGateway_ClosedGatewayRejectsRequests(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	gateway := NewGateway(GatewayConfig{
		BaseURL:        server.URL,
		Token:          "test-token",
		CallsPerMinute: 600,
		Logger:         logging.NewNop(),
	})
	gateway.Close()

	_, err := gateway.Get(context.Background(), PriorityLive, "/matches", nil)
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable after close, got=%v", err)
	}
}

func TestGateway_DispatcherOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"matches":[]}`))
	}))
	t.Cleanup(server.Close)

	// one call per second so the second request has to sit in the
	// pacing wait long enough for its deadline to fire there
	gateway := NewGateway(GatewayConfig{
		BaseURL:        server.URL,
		Token:          "test-token",
		CallsPerMinute: 60,
		CacheTTL:       time.Minute,
		RequestTimeout: 2 * time.Second,
		Logger:         logging.NewNop(),
	})
	t.Cleanup(gateway.Close)

	if _, err := gateway.Get(context.Background(), PriorityLive, "/matches/1", nil); err != nil {
		t.Fatalf("first get failed: %v", err)
	}

	shortCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := gateway.Get(shortCtx, PriorityLive, "/matches/2", nil); err == nil {
		t.Fatalf("expected deadline failure for impatient caller")
	}

	laterCtx, cancelLater := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelLater()
	body, err := gateway.Get(laterCtx, PriorityLive, "/matches/3", nil)
	if err != nil {
		t.Fatalf("expected request after cancelled caller to succeed, got=%v", err)
	}
	if string(body) != `{"matches":[]}` {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestGateway_ThrottledRequestRequeuesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"matches":[{"id":301}]}`))
	}))
	t.Cleanup(server.Close)

	gateway := NewGateway(GatewayConfig{
		BaseURL:        server.URL,
		Token:          "test-token",
		CallsPerMinute: 600,
		CacheTTL:       time.Minute,
		RequestTimeout: 2 * time.Second,
		MaxRequeues:    3,
		Logger:         logging.NewNop(),
	})
	t.Cleanup(gateway.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	body, err := gateway.Get(ctx, PriorityBulk, "/matches", nil)
	if err != nil {
		t.Fatalf("expected requeued request to succeed, got=%v", err)
	}
	if string(body) != `{"matches":[{"id":301}]}` {
		t.Fatalf("unexpected body after requeue: %s", body)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected two upstream hits, got=%d", got)
	}
}

func TestGateway_PersistentThrottleExhaustsRequeues(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	gateway := NewGateway(GatewayConfig{
		BaseURL:        server.URL,
		Token:          "test-token",
		CallsPerMinute: 600,
		CacheTTL:       time.Minute,
		RequestTimeout: 2 * time.Second,
		MaxRequeues:    0,
		Logger:         logging.NewNop(),
	})
	t.Cleanup(gateway.Close)

	_, err := gateway.Get(context.Background(), PriorityReconcile, "/matches", nil)
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got=%v", err)
	}
}

func TestGateway_BudgetCapsConcurrentCallers(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(server.Close)

	gateway := newTestGateway(t, server.URL)
	// shrink the window to two calls so the third caller has to wait
	// out the full minute and gives up on its own deadline instead
	gateway.budget = newCallBudget(2, time.Minute)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()
			_, errs[i] = gateway.Get(ctx, PriorityLive, fmt.Sprintf("/matches/%d", i), nil)
		}(i)
	}
	wg.Wait()

	var served, refused int
	for _, err := range errs {
		if err == nil {
			served++
		} else {
			refused++
		}
	}
	if served != 2 || refused != 1 {
		t.Fatalf("expected two served and one refused, got served=%d refused=%d errs=%v", served, refused, errs)
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected two upstream hits, got=%d", got)
	}
}

func TestRequestHeap_OrdersByPriorityThenArrival(t *testing.T) {
	t.Parallel()

	queue := make(requestHeap, 0, 4)
	push := func(priority int, seq uint64) {
		heap.Push(&queue, &queuedRequest{priority: priority, seq: seq})
	}
	push(PriorityBulk, 1)
	push(PriorityLive, 2)
	push(PriorityReconcile, 3)
	push(PriorityLive, 4)

	wantSeqs := []uint64{2, 4, 3, 1}
	for i, want := range wantSeqs {
		req := heap.Pop(&queue).(*queuedRequest)
		if req.seq != want {
			t.Fatalf("pop %d: expected seq=%d, got=%d", i, want, req.seq)
		}
	}
}

func TestGateway_CheckRetryPolicy(t *testing.T) {
	t.Parallel()

	gateway := &Gateway{}

	throttled := &http.Response{StatusCode: http.StatusTooManyRequests}
	if retry, _ := gateway.checkRetry(context.Background(), throttled, nil); retry {
		t.Fatalf("expected no transport retry on 429")
	}

	upstream := &http.Response{StatusCode: http.StatusBadGateway}
	if retry, _ := gateway.checkRetry(context.Background(), upstream, nil); !retry {
		t.Fatalf("expected retry on 502")
	}

	ok := &http.Response{StatusCode: http.StatusOK}
	if retry, _ := gateway.checkRetry(context.Background(), ok, nil); retry {
		t.Fatalf("expected no retry on 200")
	}

	ctx := context.WithValue(context.Background(), networkRetryKey{}, &atomic.Int32{})
	netErr := crerr.New("connection reset")
	if retry, _ := gateway.checkRetry(ctx, nil, netErr); !retry {
		t.Fatalf("expected one retry on transport error")
	}
	if retry, _ := gateway.checkRetry(ctx, nil, netErr); retry {
		t.Fatalf("expected no second retry on transport error")
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	if got := parseRetryAfter("30"); got != 30*time.Second {
		t.Fatalf("expected 30s, got=%s", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("expected zero for empty header, got=%s", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("expected zero for garbage header, got=%s", got)
	}

	future := time.Now().Add(45 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(future)
	if got < 40*time.Second || got > 45*time.Second {
		t.Fatalf("expected roughly 45s for http date, got=%s", got)
	}
}

func TestSanitizeSensitiveText(t *testing.T) {
	t.Parallel()

	got := sanitizeSensitiveText("dial failed for token=abc123 endpoint", "abc123")
	if got != "dial failed for token=[REDACTED] endpoint" {
		t.Fatalf("unexpected sanitized text: %s", got)
	}
}
