package daemon

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edly-io/nodebb-sync/internal/config"
	"github.com/edly-io/nodebb-sync/internal/db/models"
	"github.com/edly-io/nodebb-sync/internal/queue/memory"
	"github.com/edly-io/nodebb-sync/internal/queue/nats"
	"github.com/edly-io/nodebb-sync/internal/web"
)

func testConfig() *config.Config {
	return &config.Config{
		Title:   "nodebb-sync",
		Enabled: true,
		DB:      config.DB{GormEngine: config.EngineSQLite, Name: ":memory:"},
		NodeBB: config.NodeBB{
			URL: "http://127.0.0.1:1", AdminUID: 1, APIToken: "token", Timeout: time.Second,
		},
		Tasks: config.Tasks{
			RetryDelay: time.Second, HighPriorityQueue: "high_priority", DefaultQueue: "default", Workers: 1,
		},
		Queue:     config.Queue{Driver: config.QueueDriverMemory},
		Webserver: config.Webserver{Port: 8080, ShutDownTime: 1},
	}
}

func TestOpenMappingDB(t *testing.T) {
	db, err := OpenMappingDB(config.DB{GormEngine: config.EngineSQLite, Name: ":memory:"})
	require.NoError(t, err)

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m))
	}

	_, err = OpenDB(config.DB{GormEngine: "oracle"})
	require.ErrorIs(t, err, config.ErrUnknownGormEngine)
}

func TestOpenQueue(t *testing.T) {
	cfg := testConfig()

	q, err := OpenQueue(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Queue{}, q)

	cfg.Queue.Driver = config.QueueDriverNATS
	_, err = OpenQueue(cfg)
	require.ErrorIs(t, err, nats.ErrURLRequired)

	cfg.Queue.Driver = "kafka"
	_, err = OpenQueue(cfg)
	require.ErrorIs(t, err, config.ErrUnknownQueueDriver)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, config.ErrConfigNil)
}

func TestEventsReachTheQueue(t *testing.T) {
	cfg := testConfig()

	d, err := New(cfg)
	require.NoError(t, err)

	q, ok := d.queue.(*memory.Queue)
	require.True(t, ok)

	t.Cleanup(func() { _ = q.Close() })

	body := `{"type":"enrollment.changed","enrollment":{"username":"alice","course_key":"course-v1:edX+A+1","is_active":true}}`
	req := httptest.NewRequest(http.MethodPost, web.EventsPath, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := d.web.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	// workers are not started, so the job stays queued
	assert.Equal(t, 1, q.Pending())
}

func TestDisabledIntegrationDropsEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	d, err := New(cfg)
	require.NoError(t, err)

	q, ok := d.queue.(*memory.Queue)
	require.True(t, ok)

	body := `{"type":"user.deleted","user":{"id":1,"username":"alice"}}`
	req := httptest.NewRequest(http.MethodPost, web.EventsPath, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := d.web.App.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, 0, q.Pending())
}
