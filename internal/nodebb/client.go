// Package nodebb wraps the NodeBB write API (v2) used to mirror platform users,
// courses and enrollments into the forum.
package nodebb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/edly-io/nodebb-sync/internal/config"
)

const (
	// StatusConnectionError is the pseudo status returned when the forum could not be reached.
	StatusConnectionError = 599

	// ActorField carries the uid the forum performs a call as.
	ActorField = "_uid"

	envelopeField = "payload"
	breakerName   = "nodebb-api"
)

var errServerStatus = errors.New("forum answered with a server error")

// Payload is the JSON body sent to the forum.
type Payload map[string]any

// Result is what a forum call produced. Body is set on 2xx, Reason otherwise.
type Result struct {
	Reason string
	Body   map[string]any
}

// Int reads a numeric field of the body.
func (r Result) Int(key string) (int, bool) {
	switch v := r.Body[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	default:
		return 0, false
	}
}

// Text reads a non-empty string field of the body.
func (r Result) Text(key string) (string, bool) {
	s, ok := r.Body[key].(string)
	return s, ok && s != ""
}

// String renders the result for logs.
func (r Result) String() string {
	if r.Reason != "" {
		return r.Reason
	}

	out, err := json.Marshal(r.Body)
	if err != nil {
		return ""
	}

	return string(out)
}

type response struct {
	status int
	reason string
	body   []byte
}

// Client performs calls against the forum write API.
type Client struct {
	baseURL    string
	adminUID   int
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[response]
}

// NewClient builds a Client from the NodeBB config section.
func NewClient(cfg config.NodeBB) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIToken, TokenType: "Bearer"})

	c := &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		adminUID: cfg.AdminUID,
		timeout:  cfg.Timeout,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}

	c.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second, //nolint:mnd
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5 //nolint:mnd
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("forum circuit breaker changed state")
			breakerState.Set(float64(to))
		},
	})

	return c
}

// AdminUID is the uid calls are made as unless the caller sets one.
func (c *Client) AdminUID() int {
	return c.adminUID
}

// Call sends payload to path and returns the status and result.
//
// The actor field defaults to the admin uid. A nil actor short-circuits to
// 404 without touching the network.
func (c *Client) Call(ctx context.Context, method, path string, payload Payload) (int, Result) {
	body := make(Payload, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}

	if _, ok := body[ActorField]; !ok {
		body[ActorField] = c.adminUID
	}

	if body[ActorField] == nil {
		return http.StatusNotFound, Result{Reason: http.StatusText(http.StatusNotFound)}
	}

	started := time.Now()
	resp, err := c.do(ctx, method, path, body)
	requestDuration.WithLabelValues(method).Observe(time.Since(started).Seconds())

	if err != nil && !errors.Is(err, errServerStatus) {
		requestsTotal.WithLabelValues(method, statusClass(StatusConnectionError)).Inc()
		log.Debug().Err(err).Str("method", method).Str("path", path).Msg("forum unreachable")

		return StatusConnectionError, Result{Reason: err.Error()}
	}

	requestsTotal.WithLabelValues(method, statusClass(resp.status)).Inc()

	if resp.status < 200 || resp.status > 299 {
		return resp.status, Result{Reason: resp.reason}
	}

	return resp.status, Result{Body: decode(resp.body)}
}

// Post calls Call with POST.
func (c *Client) Post(ctx context.Context, path string, payload Payload) (int, Result) {
	return c.Call(ctx, http.MethodPost, path, payload)
}

// Put calls Call with PUT.
func (c *Client) Put(ctx context.Context, path string, payload Payload) (int, Result) {
	return c.Call(ctx, http.MethodPut, path, payload)
}

// Delete calls Call with DELETE.
func (c *Client) Delete(ctx context.Context, path string, payload Payload) (int, Result) {
	return c.Call(ctx, http.MethodDelete, path, payload)
}

// Get calls Call with GET.
func (c *Client) Get(ctx context.Context, path string, payload Payload) (int, Result) {
	return c.Call(ctx, http.MethodGet, path, payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload Payload) (response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return response{}, err
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return response{}, err
	}

	return c.breaker.Execute(func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return response{}, err
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		res, err := c.httpClient.Do(req)
		if err != nil {
			return response{}, err
		}
		defer res.Body.Close()

		out := response{status: res.StatusCode, reason: reasonPhrase(res)}
		if out.body, err = io.ReadAll(res.Body); err != nil {
			return response{}, err
		}

		if out.status >= http.StatusInternalServerError {
			return out, errServerStatus
		}

		return out, nil
	})
}

// decode parses a 2xx body and unwraps the payload envelope.
// Empty or invalid JSON yields an empty body.
func decode(raw []byte) map[string]any {
	out := map[string]any{}

	if len(bytes.TrimSpace(raw)) == 0 {
		return out
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		log.Debug().Err(err).Msg("forum returned invalid JSON")
		return map[string]any{}
	}

	if inner, ok := out[envelopeField].(map[string]any); ok {
		return inner
	}

	return out
}

func reasonPhrase(res *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(res.Status, strconv.Itoa(res.StatusCode)))
	if reason == "" {
		reason = http.StatusText(res.StatusCode)
	}

	return reason
}
