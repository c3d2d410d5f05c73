package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/cache"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

const (
	defaultWorkerCount  = 3
	statsReportInterval = 5 * time.Minute
)

// Manager owns the process-wide queue and its periodic depth report.
type Manager struct {
	queue *Queue

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the process-wide manager, creating it on first use.
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = &Manager{
			queue: NewQueueWithOptions(cache.GetClient(), optionsFromEnv()),
		}
	})
	return globalManager
}

// optionsFromEnv reads JOBQUEUE_WORKERS, JOBQUEUE_NAMESPACE,
// JOBQUEUE_MAX_RETRIES and JOBQUEUE_RETRY_BACKOFF_SECONDS.
func optionsFromEnv() Options {
	return Options{
		Workers:      env.GetEnvInt("JOBQUEUE_WORKERS", defaultWorkerCount),
		Namespace:    env.GetEnv("JOBQUEUE_NAMESPACE", DefaultNamespace),
		MaxRetries:   env.GetEnvInt("JOBQUEUE_MAX_RETRIES", DefaultMaxRetries),
		RetryBackoff: time.Duration(env.GetEnvInt("JOBQUEUE_RETRY_BACKOFF_SECONDS", 60)) * time.Second,
	}.withDefaults()
}

func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start runs the queue workers and the stats reporter.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	m.queue.Start()
	m.wg.Add(1)
	go m.reportStats(ctx)
	log.Info("[JobQueue Manager] Started")
}

// Stop halts the reporter first, then drains the queue workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}

	m.cancel()
	m.wg.Wait()
	m.queue.Stop()
	m.running = false
	log.Info("[JobQueue Manager] Stopped")
}

func (m *Manager) reportStats(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(statsReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.logStats(ctx)
		}
	}
}

func (m *Manager) logStats(ctx context.Context) {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Errorf("[JobQueue Manager] Queue size: %v", err)
		return
	}
	processing, _ := m.queue.GetProcessingSize(ctx)
	stats, _ := m.queue.GetJobStats(ctx)
	log.Infof("[JobQueue Manager] pending=%d processing=%d completed=%d failed=%d",
		pending, processing, stats[JobStatusCompleted], stats[JobStatusFailed])
}

// IsRunning reports whether Start has been called without a matching Stop.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
