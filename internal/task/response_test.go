package task

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edly-io/nodebb-sync/internal/nodebb"
	"github.com/edly-io/nodebb-sync/internal/queue"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		status   int
		expected Outcome
	}{
		{http.StatusOK, Success},
		{http.StatusCreated, Success},
		{http.StatusNoContent, Success},
		{http.StatusBadRequest, Permanent},
		{http.StatusNotFound, Permanent},
		{http.StatusConflict, Permanent},
		{http.StatusInternalServerError, Transient},
		{http.StatusServiceUnavailable, Transient},
		{nodebb.StatusConnectionError, Transient},
		{http.StatusContinue, Unexpected},
		{http.StatusFound, Unexpected},
	}

	for _, tc := range testCases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.status))
		})
	}
}

func TestHandle(t *testing.T) {
	err := Handle(UserCreate, "alice", http.StatusServiceUnavailable, nodebb.Result{Reason: "Service Unavailable"})
	require.Error(t, err)
	assert.True(t, queue.IsRetry(err))

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Status)

	assert.NoError(t, Handle(UserCreate, "alice", http.StatusNotFound, nodebb.Result{Reason: "Not Found"}))
	assert.NoError(t, Handle(UserCreate, "alice", http.StatusOK, nodebb.Result{Body: map[string]any{"uid": 1}}))
	assert.NoError(t, Handle(UserCreate, "alice", http.StatusMovedPermanently, nodebb.Result{Reason: "Moved"}))
}
