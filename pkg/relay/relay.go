package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Request is the body the dashboard posts to the relay. URL is a path under
// the upstream API base; the browser never sees the bearer credential.
type Request struct {
	Method string          `json:"method"`
	URL    string          `json:"url"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// errorBody is the structured translation of a non-2xx upstream response.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Relay forwards dashboard calls to the swap-intent API, injecting the bearer
// token server-side. Clients are rate limited per source IP.
type Relay struct {
	upstreamBase string
	token        string
	http         *http.Client
	log          logrus.FieldLogger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a relay against the upstream API base URL.
func New(upstreamBase, token string, log logrus.FieldLogger) *Relay {
	return &Relay{
		upstreamBase: strings.TrimRight(upstreamBase, "/"),
		token:        token,
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          log,
		limiters:     make(map[string]*rate.Limiter),
	}
}

// Register mounts the relay endpoint on an echo instance.
func (r *Relay) Register(e *echo.Echo) {
	e.POST("/api/relay", r.Handle)
}

// Handle proxies one call. Upstream non-2xx responses come back as
// {error, details} with the upstream status code preserved.
func (r *Relay) Handle(c echo.Context) error {
	if !r.allow(c.RealIP()) {
		return c.JSON(http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
	}

	var req Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid relay request", Details: err.Error()})
	}
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "unsupported method"})
	}
	if !strings.HasPrefix(req.URL, "/") || strings.Contains(req.URL, "..") {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid upstream path"})
	}

	var body io.Reader
	if len(req.Data) > 0 {
		body = bytes.NewReader(req.Data)
	}

	upstream, err := http.NewRequestWithContext(c.Request().Context(), req.Method, r.upstreamBase+req.URL, body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid upstream request", Details: err.Error()})
	}
	upstream.Header.Set("Authorization", "Bearer "+r.token)
	if body != nil {
		upstream.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.http.Do(upstream)
	if err != nil {
		r.log.WithError(err).Warn("relay upstream call failed")
		return c.JSON(http.StatusBadGateway, errorBody{Error: "upstream unreachable", Details: err.Error()})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.JSON(http.StatusBadGateway, errorBody{Error: "upstream read failed", Details: err.Error()})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.JSON(resp.StatusCode, errorBody{Error: "upstream error", Details: string(respBody)})
	}
	return c.Blob(resp.StatusCode, echo.MIMEApplicationJSON, respBody)
}

// allow enforces a small per-IP budget: 5 req/s with a burst of 10.
func (r *Relay) allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	limiter, ok := r.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(5), 10)
		r.limiters[ip] = limiter
	}
	return limiter.Allow()
}
