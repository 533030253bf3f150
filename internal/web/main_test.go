package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/dispatch"
)

type fakeDispatcher struct {
	events []dispatch.Event
	jobs   int
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev dispatch.Event) (int, error) {
	if f.err != nil {
		return 0, f.err
	}

	f.events = append(f.events, ev)

	return f.jobs, nil
}

type memoryStorage map[string][]byte

func (m memoryStorage) Get(key string) ([]byte, error) { return m[key], nil }

func (m memoryStorage) Set(key string, val []byte, _ time.Duration) error {
	m[key] = val
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Title:     "nodebb-sync",
		Webserver: config.Webserver{Port: 8080, ShutDownTime: 1, DedupTTL: time.Hour},
	}
}

func post(t *testing.T, s *Service, body string, headers map[string]string) (int, response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, EventsPath, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var out response
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))

	return resp.StatusCode, out
}

const userCreated = `{"id":"evt-1","type":"user.created","user":{"id":7,"username":"alice","email":"alice@example.com"}}`

func TestReceive(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantJobs   int
	}{
		{name: "accepted", body: userCreated, wantStatus: fiber.StatusAccepted, wantJobs: 1},
		{name: "malformed", body: `{"type":`, wantStatus: fiber.StatusBadRequest},
		{
			name:       "unknown type",
			body:       `{"type":"grade.changed"}`,
			err:        fmt.Errorf("%w: grade.changed", dispatch.ErrUnknownEvent),
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			name:       "invalid",
			body:       `{"type":"user.created"}`,
			err:        fmt.Errorf("%w: user section missing", dispatch.ErrInvalidEvent),
			wantStatus: fiber.StatusUnprocessableEntity,
		},
		{
			name:       "queue down",
			body:       userCreated,
			err:        errors.New("enqueue user.create for user.created: closed"),
			wantStatus: fiber.StatusServiceUnavailable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := &fakeDispatcher{jobs: 1, err: tc.err}
			s := New(testConfig(), d, nil)

			status, res := post(t, s, tc.body, nil)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantJobs, res.Jobs)

			if tc.wantStatus == fiber.StatusAccepted {
				require.Len(t, d.events, 1)
				assert.Equal(t, dispatch.UserCreated, d.events[0].Type)
				assert.Equal(t, "alice", d.events[0].User.Username)
			} else {
				assert.NotEmpty(t, res.Error)
			}
		})
	}
}

func TestReceiveDropsRedeliveredEvents(t *testing.T) {
	d := &fakeDispatcher{jobs: 1}
	store := memoryStorage{}
	s := New(testConfig(), d, store)

	status, res := post(t, s, userCreated, map[string]string{HeaderEventID: "delivery-1"})
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.False(t, res.Duplicate)

	status, res = post(t, s, userCreated, map[string]string{HeaderEventID: "delivery-1"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, res.Duplicate)

	// without the header the body id is the key
	status, _ = post(t, s, userCreated, nil)
	assert.Equal(t, fiber.StatusAccepted, status)

	status, res = post(t, s, userCreated, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.True(t, res.Duplicate)

	assert.Len(t, d.events, 2)
	assert.Contains(t, store, "delivery-1")
	assert.Contains(t, store, "evt-1")
}

func TestReceiveDoesNotRememberFailedEvents(t *testing.T) {
	d := &fakeDispatcher{err: errors.New("closed")}
	store := memoryStorage{}
	s := New(testConfig(), d, store)

	status, _ := post(t, s, userCreated, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Empty(t, store)
}

func TestAuthorize(t *testing.T) {
	hash, err := argon2id.CreateHash("s3cret", &argon2id.Params{
		Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)

	testCases := []struct {
		name       string
		hash       string
		header     string
		wantStatus int
	}{
		{name: "auth disabled", wantStatus: fiber.StatusAccepted},
		{name: "valid token", hash: hash, header: "Bearer s3cret", wantStatus: fiber.StatusAccepted},
		{name: "wrong token", hash: hash, header: "Bearer nope", wantStatus: fiber.StatusUnauthorized},
		{name: "missing token", hash: hash, wantStatus: fiber.StatusUnauthorized},
		{name: "basic auth", hash: hash, header: "Basic czNjcmV0", wantStatus: fiber.StatusUnauthorized},
		{name: "broken hash", hash: "not-a-hash", header: "Bearer s3cret", wantStatus: fiber.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Webserver.TokenHash = tc.hash

			d := &fakeDispatcher{jobs: 1}
			s := New(cfg, d, nil)

			headers := map[string]string{}
			if tc.header != "" {
				headers[fiber.HeaderAuthorization] = tc.header
			}

			status, _ := post(t, s, userCreated, headers)
			assert.Equal(t, tc.wantStatus, status)
		})
	}
}

func TestCheckAlive(t *testing.T) {
	s := New(testConfig(), &fakeDispatcher{}, nil)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, CheckAlivePath, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	s.alive.Store(false)

	resp, err = s.App.Test(httptest.NewRequest(http.MethodGet, CheckAlivePath, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	s := New(testConfig(), &fakeDispatcher{}, nil)

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNewStorageSQLite(t *testing.T) {
	store, err := NewStorage(config.DB{GormEngine: config.EngineSQLite, Name: "sync.db"})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = NewStorage(config.DB{GormEngine: "oracle"})
	require.ErrorIs(t, err, config.ErrUnknownGormEngine)
}
