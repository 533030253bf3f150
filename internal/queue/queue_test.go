package queue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWrapping(t *testing.T) {
	base := errors.New("503 Service Unavailable")

	err := Retry(base)
	assert.True(t, IsRetry(err))
	require.ErrorIs(t, err, base)
	assert.True(t, IsRetry(fmt.Errorf("group.join: %w", err)))

	assert.False(t, IsRetry(base))
	assert.NoError(t, Retry(nil))
}

func TestRetryPolicyAllows(t *testing.T) {
	unbounded := RetryPolicy{Delay: time.Second}
	assert.True(t, unbounded.Allows(1))
	assert.True(t, unbounded.Allows(10_000))

	capped := RetryPolicy{Delay: time.Second, MaxRetries: 2}
	assert.True(t, capped.Allows(1))
	assert.True(t, capped.Allows(2))
	assert.False(t, capped.Allows(3))
}

func TestJobEnvelope(t *testing.T) {
	job, err := NewJob("group.join", map[string]string{"username": "alice"}, time.Minute)
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, 0, job.Attempt)
	assert.WithinDuration(t, time.Now().Add(time.Minute), job.NotBefore, 5*time.Second)

	raw, err := job.Next(time.Second).Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, job.ID, decoded.ID)
	assert.Equal(t, 1, decoded.Attempt)

	var payload struct {
		Username string `json:"username"`
	}
	require.NoError(t, decoded.Decode(&payload))
	assert.Equal(t, "alice", payload.Username)

	_, err = Unmarshal([]byte("{"))
	require.Error(t, err)
}
