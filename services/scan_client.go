package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"cantonscan/config"
	"cantonscan/models"
)

const (
	// A node with this many consecutive errors is skipped during failover.
	maxConsecutiveErrors = 5
	// After this long since its last error, an exhausted node is eligible again.
	nodeCooldown = 60 * time.Second
)

type cacheEntry struct {
	data     json.RawMessage
	storedAt time.Time
}

// inflightCall collapses concurrent identical requests into one network call.
// data/err are set before done is closed; waiters read them only after done.
type inflightCall struct {
	done chan struct{}
	data json.RawMessage
	err  error
}

// ScanClient executes read requests against the best available upstream node,
// handling rate limits, transient failures and duplicate concurrent calls.
// All shared state (node list, cache, in-flight registry) is owned by the
// instance and guarded by mu, so independent clients never share state.
type ScanClient struct {
	cfg        *config.Config
	httpClient *http.Client

	mu               sync.Mutex
	nodes            []*models.ScanNode
	currentNodeIndex int
	cache            map[string]cacheEntry
	inflight         map[string]*inflightCall

	ttl              time.Duration
	maxRetries       int
	rateLimitWaitMax time.Duration
}

func NewScanClient(cfg *config.Config) *ScanClient {
	// An empty roster would leave the active-node index with nothing valid
	// to point at, so fall back to the built-in nodes.
	nodeConfigs := cfg.Scan.Nodes
	if len(nodeConfigs) == 0 {
		log.Printf("No scan nodes configured, using built-in defaults")
		nodeConfigs = config.DefaultNodes()
	}

	nodes := make([]*models.ScanNode, 0, len(nodeConfigs))
	for _, nc := range nodeConfigs {
		nodes = append(nodes, &models.ScanNode{
			URL:      nc.URL,
			Name:     nc.Name,
			Priority: nc.Priority,
		})
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Priority < nodes[j].Priority
	})

	maxRetries := cfg.Scan.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	// Per-attempt bound: a hung upstream connection fails the attempt instead
	// of blocking the retry loop forever.
	timeout := cfg.ScanTimeoutDuration()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ScanClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		nodes:            nodes,
		cache:            make(map[string]cacheEntry),
		inflight:         make(map[string]*inflightCall),
		ttl:              cfg.CacheTTLDuration(),
		maxRetries:       maxRetries,
		rateLimitWaitMax: cfg.RateLimitWaitMaxDuration(),
	}
}

// cacheKey normalizes (path, query) into one string. url.Values.Encode sorts
// keys, so parameter order never splits the cache.
func cacheKey(endpoint string, params url.Values) string {
	if len(params) == 0 {
		return endpoint
	}
	return endpoint + "?" + params.Encode()
}

// Get fetches a read endpoint with caching and in-flight deduplication.
// A valid cached entry is returned without touching the network; otherwise
// concurrent callers for the same key share a single upstream request and
// receive the same result or error.
func (c *ScanClient) Get(endpoint string, params url.Values) (json.RawMessage, error) {
	key := cacheKey(endpoint, params)

	c.mu.Lock()
	if entry, ok := c.cache[key]; ok && time.Since(entry.storedAt) < c.ttl {
		c.mu.Unlock()
		return entry.data, nil
	}
	if call, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-call.done
		return call.data, call.err
	}
	call := &inflightCall{done: make(chan struct{})}
	c.inflight[key] = call
	c.mu.Unlock()

	data, err := c.fetchInner(endpoint, params, c.maxRetries)

	c.mu.Lock()
	if err == nil {
		c.cache[key] = cacheEntry{data: data, storedAt: time.Now()}
	}
	// Removed exactly once, success or failure, so future calls can retry.
	delete(c.inflight, key)
	c.mu.Unlock()

	call.data = data
	call.err = err
	close(call.done)

	return data, err
}

// GetJSON fetches an endpoint and decodes the response into out.
func (c *ScanClient) GetJSON(endpoint string, params url.Values, out interface{}) error {
	data, err := c.Get(endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}

func (c *ScanClient) fetchInner(endpoint string, params url.Values, retries int) (json.RawMessage, error) {
	var lastErr *models.APIError

	for attempt := 0; attempt < retries; attempt++ {
		c.mu.Lock()
		node := c.nodes[c.currentNodeIndex]
		wait, limited := rateLimitWait(node, time.Now())
		if limited {
			if wait > 0 && wait < c.rateLimitWaitMax {
				c.mu.Unlock()
				log.Printf("Rate limited on %s, waiting %s", node.Name, wait)
				time.Sleep(wait)
			} else {
				log.Printf("Rate limit too long on %s, switching node", node.Name)
				c.switchToNextNodeLocked()
				c.mu.Unlock()
				continue
			}
		} else {
			c.mu.Unlock()
		}

		reqURL := node.URL + endpoint
		if len(params) > 0 {
			reqURL += "?" + params.Encode()
		}

		req, reqErr := http.NewRequest(http.MethodGet, reqURL, nil)
		if reqErr != nil {
			return nil, &models.APIError{
				Message: fmt.Sprintf("failed to create request: %v", reqErr),
				Code:    models.ErrCodeRejected,
			}
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure, no HTTP status: fail over.
			c.mu.Lock()
			node.ConsecutiveErrors++
			node.LastError = time.Now()
			lastErr = &models.APIError{
				Message: fmt.Sprintf("request to %s failed: %v", node.Name, err),
				Code:    models.ErrCodeUnavailable,
			}
			if attempt < retries-1 {
				c.switchToNextNodeLocked()
				c.mu.Unlock()
				continue
			}
			c.mu.Unlock()
			return nil, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		rl := extractRateLimitInfo(resp)

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			retryAfter := 60
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if v, perr := strconv.Atoi(ra); perr == nil {
					retryAfter = v
				}
			}
			c.mu.Lock()
			if rl != nil {
				node.RateLimit = rl
			}
			node.ConsecutiveErrors++
			node.LastError = time.Now()
			c.switchToNextNodeLocked()
			c.mu.Unlock()

			lastErr = &models.APIError{
				Message:    fmt.Sprintf("rate limit exceeded on %s", node.Name),
				Status:     resp.StatusCode,
				Code:       models.ErrCodeRateLimited,
				RetryAfter: retryAfter,
			}
			if attempt < retries-1 {
				log.Printf("Rate limited on %s, switching node (attempt %d/%d)", node.Name, attempt+1, retries)
				continue
			}
			return nil, lastErr

		case resp.StatusCode >= 500:
			c.mu.Lock()
			if rl != nil {
				node.RateLimit = rl
			}
			node.ConsecutiveErrors++
			node.LastError = time.Now()
			lastErr = &models.APIError{
				Message: fmt.Sprintf("upstream error from %s", node.Name),
				Status:  resp.StatusCode,
				Code:    models.ErrCodeUnavailable,
			}
			if attempt < retries-1 {
				c.switchToNextNodeLocked()
				c.mu.Unlock()
				continue
			}
			c.mu.Unlock()
			return nil, lastErr

		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			// Request-shape error: retrying the identical request cannot
			// succeed, so no retry and no node switch.
			return nil, &models.APIError{
				Message: fmt.Sprintf("request rejected by %s", node.Name),
				Status:  resp.StatusCode,
				Code:    models.ErrCodeRejected,
			}

		default:
			if readErr != nil {
				c.mu.Lock()
				node.ConsecutiveErrors++
				node.LastError = time.Now()
				lastErr = &models.APIError{
					Message: fmt.Sprintf("failed to read response from %s: %v", node.Name, readErr),
					Code:    models.ErrCodeUnavailable,
				}
				if attempt < retries-1 {
					c.switchToNextNodeLocked()
					c.mu.Unlock()
					continue
				}
				c.mu.Unlock()
				return nil, lastErr
			}
			c.mu.Lock()
			if rl != nil {
				node.RateLimit = rl
			}
			node.ConsecutiveErrors = 0
			c.mu.Unlock()
			return json.RawMessage(body), nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, &models.APIError{
		Message: "all retry attempts failed",
		Code:    models.ErrCodeUnavailable,
	}
}

// switchToNextNodeLocked advances to the next eligible node, walking forward
// circularly and skipping nodes with too many consecutive errors. On a full
// wrap it cooldown-heals exhausted nodes but does not restart the walk; the
// index then stays where the wrap ended. Caller holds mu.
func (c *ScanClient) switchToNextNodeLocked() {
	start := c.currentNodeIndex
	for {
		c.currentNodeIndex = (c.currentNodeIndex + 1) % len(c.nodes)
		if c.nodes[c.currentNodeIndex].ConsecutiveErrors < maxConsecutiveErrors {
			return
		}
		if c.currentNodeIndex == start {
			break
		}
	}

	now := time.Now()
	for _, n := range c.nodes {
		if n.ConsecutiveErrors >= maxConsecutiveErrors && !n.LastError.IsZero() &&
			now.Sub(n.LastError) > nodeCooldown {
			n.ConsecutiveErrors = 0
		}
	}
}

// rateLimitWait reports whether the node is currently rate limited and, if
// so, how long until its window resets. Passing the reset instant clears the
// cached state.
func rateLimitWait(node *models.ScanNode, now time.Time) (time.Duration, bool) {
	if node.RateLimit == nil {
		return 0, false
	}
	reset := time.Unix(node.RateLimit.Reset, 0)
	if now.Before(reset) {
		if node.RateLimit.Remaining <= 0 {
			return reset.Sub(now), true
		}
		return 0, false
	}
	node.RateLimit = nil
	return 0, false
}

func extractRateLimitInfo(resp *http.Response) *models.RateLimitInfo {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	reset := resp.Header.Get("X-RateLimit-Reset")
	limit := resp.Header.Get("X-RateLimit-Limit")
	if remaining == "" || reset == "" || limit == "" {
		return nil
	}

	rem, err1 := strconv.Atoi(remaining)
	res, err2 := strconv.ParseInt(reset, 10, 64)
	lim, err3 := strconv.Atoi(limit)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil
	}
	return &models.RateLimitInfo{Remaining: rem, Reset: res, Limit: lim}
}

// GetNodeStatus returns a snapshot of every node and which one is active.
func (c *ScanClient) GetNodeStatus() []models.NodeStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]models.NodeStatus, 0, len(c.nodes))
	for i, n := range c.nodes {
		statuses = append(statuses, models.NodeStatus{
			Node:     *n,
			IsActive: i == c.currentNodeIndex,
		})
	}
	return statuses
}

// ClearCache drops all cached responses (testing / forced refresh).
func (c *ScanClient) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
}

// CacheSize returns the number of cached responses.
func (c *ScanClient) CacheSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
