package jobqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func resetManager() {
	globalManager = nil
	managerOnce = sync.Once{}
}

func TestGetManager(t *testing.T) {
	resetManager()

	manager1 := GetManager()
	manager2 := GetManager()

	assert.NotNil(t, manager1)
	assert.Same(t, manager1, manager2, "GetManager should return the same instance")

	assert.NotNil(t, manager1.queue)
	assert.False(t, manager1.running)
	assert.Same(t, manager1.queue, manager1.GetQueue())
}

func TestGetManagerWorkerCount(t *testing.T) {
	t.Setenv("JOBQUEUE_WORKERS", "7")
	resetManager()
	assert.Equal(t, 7, GetManager().queue.workers)

	t.Setenv("JOBQUEUE_WORKERS", "-2")
	resetManager()
	assert.Equal(t, defaultWorkerCount, GetManager().queue.workers)

	t.Setenv("JOBQUEUE_WORKERS", "many")
	resetManager()
	assert.Equal(t, defaultWorkerCount, GetManager().queue.workers)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("JOBQUEUE_NAMESPACE", "dd-test")
	t.Setenv("JOBQUEUE_MAX_RETRIES", "5")
	t.Setenv("JOBQUEUE_RETRY_BACKOFF_SECONDS", "30")

	opts := optionsFromEnv()
	assert.Equal(t, "dd-test", opts.Namespace)
	assert.Equal(t, 5, opts.MaxRetries)
	assert.Equal(t, 30*time.Second, opts.RetryBackoff)
	assert.Equal(t, defaultStuckAfter, opts.StuckAfter)
}

func TestManager_IsRunning(t *testing.T) {
	resetManager()
	manager := GetManager()

	assert.False(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = true
	manager.mu.Unlock()
	assert.True(t, manager.IsRunning())

	manager.mu.Lock()
	manager.running = false
	manager.mu.Unlock()
	assert.False(t, manager.IsRunning())
}

func TestManager_StopWithoutStart(t *testing.T) {
	resetManager()
	manager := GetManager()

	manager.Stop()
	assert.False(t, manager.IsRunning())
}
