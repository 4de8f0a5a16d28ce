package footballdata

import (
	"container/heap"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	crerr "github.com/cockroachdb/errors"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/footyverse/prediction-league/internal/platform/cache"
	"github.com/footyverse/prediction-league/internal/platform/logging"
	"github.com/footyverse/prediction-league/internal/platform/resilience"
	"github.com/footyverse/prediction-league/internal/usecase"
)

// Request priorities. Higher values dispatch first; ties dispatch in
// arrival order. A 429'd request is re-enqueued one level up so it
// jumps ahead of same-class work once the window reopens.
const (
	PriorityBulk      = 1
	PriorityReconcile = 2
	PriorityLive      = 3
)

const (
	defaultCallsPerMinute = 8
	defaultCacheTTL       = 2 * time.Minute
	defaultRequestTimeout = 10 * time.Second
	defaultMaxRequeues    = 3
	defaultMaxQueueDepth  = 256
)

var errProviderThrottled = crerr.New("football-data throttled request")

type GatewayConfig struct {
	BaseURL        string
	Token          string
	CallsPerMinute int
	CacheTTL       time.Duration
	RequestTimeout time.Duration
	MaxRequeues    int
	MaxQueueDepth  int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type gatewayResult struct {
	body []byte
	err  error
}

type queuedRequest struct {
	path     string
	query    url.Values
	priority int
	seq      uint64
	requeues int
	ctx      context.Context
	done     chan gatewayResult
}

// requestHeap orders by priority desc, then seq asc.
type requestHeap []*queuedRequest

func (h requestHeap) Len() int { return len(h) }
func (h requestHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) { *h = append(*h, x.(*queuedRequest)) }
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Gateway serializes every upstream call through a single dispatcher
// so the whole process shares one request budget. Callers block until
// their request is served, rejected, or their context expires.
type Gateway struct {
	cfg        GatewayConfig
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	budget     *callBudget
	responses  *cache.Store
	breaker    *resilience.CircuitBreaker
	flight     resilience.SingleFlight
	logger     *logging.Logger

	mu     sync.Mutex
	queue  requestHeap
	seq    uint64
	closed bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewGateway(cfg GatewayConfig) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.CallsPerMinute < 1 {
		cfg.CallsPerMinute = defaultCallsPerMinute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxRequeues < 0 {
		cfg.MaxRequeues = defaultMaxRequeues
	}
	if cfg.MaxQueueDepth < 1 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	g := &Gateway{
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.CallsPerMinute)), 1),
		budget:    newCallBudget(cfg.CallsPerMinute, time.Minute),
		responses: cache.NewStore(cfg.CacheTTL),
		breaker:   resilience.NewCircuitBreaker(cfg.CircuitBreaker),
		logger:    cfg.Logger,
		queue:     make(requestHeap, 0, 32),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	g.httpClient = g.newRetryableClient()

	go g.dispatch()
	return g
}

func (g *Gateway) newRetryableClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient = &http.Client{Timeout: g.cfg.RequestTimeout}
	client.RetryMax = 3
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.CheckRetry = g.checkRetry
	return client
}

type networkRetryKey struct{}

// checkRetry retries transport errors once and 5xx responses up to
// RetryMax. A 429 is never retried at the transport level; the
// dispatcher re-enqueues it behind the budget instead.
func (g *Gateway) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		counter, _ := ctx.Value(networkRetryKey{}).(*atomic.Int32)
		if counter == nil {
			return false, nil
		}
		return counter.Add(1) <= 1, nil
	}
	if resp == nil {
		return false, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return resp.StatusCode >= http.StatusInternalServerError, nil
}

// Get fetches path with query through the shared queue. Identical
// in-flight requests collapse to a single upstream call and fresh
// responses are replayed from the short-lived cache.
func (g *Gateway) Get(ctx context.Context, priority int, path string, query url.Values) ([]byte, error) {
	key := requestKey(path, query)

	if cached, ok := g.responses.Get(ctx, key); ok {
		if body, ok := cached.([]byte); ok {
			metricCacheHits.Inc()
			return body, nil
		}
	}

	out, err, _ := g.flight.Do(key, func() (any, error) {
		body, reqErr := g.enqueueAndWait(ctx, priority, path, query)
		if reqErr != nil {
			return nil, reqErr
		}
		g.responses.Set(ctx, key, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	body, ok := out.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected response payload type %T", out)
	}
	return body, nil
}

func (g *Gateway) enqueueAndWait(ctx context.Context, priority int, path string, query url.Values) ([]byte, error) {
	req := &queuedRequest{
		path:     path,
		query:    query,
		priority: priority,
		ctx:      ctx,
		done:     make(chan gatewayResult, 1),
	}
	if err := g.push(req); err != nil {
		return nil, err
	}

	select {
	case res := <-req.done:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Gateway) push(req *queuedRequest) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return fmt.Errorf("%w: provider gateway is shut down", usecase.ErrDependencyUnavailable)
	}
	if len(g.queue) >= g.cfg.MaxQueueDepth {
		g.mu.Unlock()
		return fmt.Errorf("%w: provider request queue is full", usecase.ErrDependencyUnavailable)
	}
	g.seq++
	req.seq = g.seq
	heap.Push(&g.queue, req)
	depth := len(g.queue)
	g.mu.Unlock()

	metricQueueDepth.Set(float64(depth))
	select {
	case g.wake <- struct{}{}:
	default:
	}
	return nil
}

func (g *Gateway) pop() *queuedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return nil
	}
	req := heap.Pop(&g.queue).(*queuedRequest)
	metricQueueDepth.Set(float64(len(g.queue)))
	return req
}

func (g *Gateway) dispatch() {
	defer close(g.done)
	for {
		req := g.pop()
		if req == nil {
			select {
			case <-g.wake:
				continue
			case <-g.stop:
				g.drain()
				return
			}
		}

		if req.ctx.Err() != nil {
			req.done <- gatewayResult{err: req.ctx.Err()}
			continue
		}
		proceed, stopping := g.waitBudget(req)
		if stopping {
			return
		}
		if !proceed {
			continue
		}

		g.serve(req)
	}
}

// waitBudget blocks until the sliding window has a free slot. It
// reports whether the request should still be served; when proceed is
// false the request has already received its result, so the dispatcher
// must not serve it again. stopping is true only when the gateway is
// shutting down.
func (g *Gateway) waitBudget(req *queuedRequest) (proceed, stopping bool) {
	for {
		ok, wait := g.budget.TryReserve()
		if ok {
			if err := g.limiter.Wait(req.ctx); err != nil {
				// the slot is spent either way; fail this request only
				req.done <- gatewayResult{err: err}
				return false, false
			}
			return true, false
		}
		if wait < 50*time.Millisecond {
			wait = 50 * time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-req.ctx.Done():
			timer.Stop()
			req.done <- gatewayResult{err: req.ctx.Err()}
			return false, false
		case <-g.stop:
			timer.Stop()
			req.done <- gatewayResult{err: fmt.Errorf("%w: provider gateway is shut down", usecase.ErrDependencyUnavailable)}
			g.drain()
			return false, true
		}
	}
}

func (g *Gateway) serve(req *queuedRequest) {
	if g.cfg.CircuitBreaker.Enabled {
		if err := g.breaker.Allow(); err != nil {
			g.logger.WarnContext(req.ctx, "football-data circuit breaker rejected request", "state", g.breaker.State(), "path", req.path)
			req.done <- gatewayResult{err: fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)}
			return
		}
	}

	body, retryAfter, err := g.execute(req)
	if err != nil && crerr.Is(err, errProviderThrottled) {
		g.budget.Penalize(retryAfter)
		if req.requeues < g.cfg.MaxRequeues {
			req.requeues++
			if req.priority < PriorityLive {
				req.priority++
			}
			metricRequeues.Inc()
			g.logger.WarnContext(req.ctx, "football-data throttled, requeueing",
				"path", req.path, "attempt", req.requeues, "retry_after", retryAfter.String())
			if pushErr := g.push(req); pushErr != nil {
				req.done <- gatewayResult{err: pushErr}
			}
			return
		}
		metricRequests.WithLabelValues("throttled").Inc()
		req.done <- gatewayResult{err: fmt.Errorf("%w: provider rate limit persisted after retries", usecase.ErrDependencyUnavailable)}
		return
	}

	if g.cfg.CircuitBreaker.Enabled {
		if isCircuitFailure(err) {
			g.breaker.RecordFailure()
		} else {
			g.breaker.RecordSuccess()
		}
	}

	if err != nil {
		metricRequests.WithLabelValues("error").Inc()
		req.done <- gatewayResult{err: err}
		return
	}
	metricRequests.WithLabelValues("ok").Inc()
	req.done <- gatewayResult{body: body}
}

func (g *Gateway) execute(req *queuedRequest) ([]byte, time.Duration, error) {
	fullURL := g.cfg.BaseURL + req.path
	if encoded := req.query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	ctx := context.WithValue(req.ctx, networkRetryKey{}, &atomic.Int32{})
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("X-Auth-Token", g.cfg.Token)
	httpReq.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	metricRequestSeconds.Observe(time.Since(started).Seconds())
	if err != nil {
		sanitized := sanitizeSensitiveText(err.Error(), g.cfg.Token)
		g.logger.WarnContext(req.ctx, "football-data request failed", "path", req.path, "error", sanitized)
		return nil, 0, fmt.Errorf("%w: reach match data provider", usecase.ErrDependencyUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("read provider response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, 0, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), errProviderThrottled
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, fmt.Errorf("%w: provider resource %s", usecase.ErrNotFound, req.path)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, fmt.Errorf("%w: provider rejected credentials (status %d)", usecase.ErrDependencyUnavailable, resp.StatusCode)
	default:
		g.logger.WarnContext(req.ctx, "football-data unexpected status",
			"path", req.path, "status", resp.StatusCode, "body", truncateForLog(body))
		return nil, 0, fmt.Errorf("%w: provider status %d", usecase.ErrDependencyUnavailable, resp.StatusCode)
	}
}

// Close stops the dispatcher and fails queued requests.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	close(g.stop)
	<-g.done
}

func (g *Gateway) drain() {
	for {
		req := g.pop()
		if req == nil {
			return
		}
		req.done <- gatewayResult{err: fmt.Errorf("%w: provider gateway is shut down", usecase.ErrDependencyUnavailable)}
	}
}

func (g *Gateway) QueueDepth() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

func isCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	// only availability failures trip the breaker; 404s and caller
	// mistakes do not
	return crerr.Is(err, usecase.ErrDependencyUnavailable)
}

func requestKey(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}

func sanitizeSensitiveText(value, token string) string {
	if token == "" {
		return value
	}
	return strings.ReplaceAll(value, token, "[REDACTED]")
}

func truncateForLog(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
