package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/cache"
)

const (
	DefaultNamespace  = "donationdesk:jobs"
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour

	defaultRetryBackoff  = time.Minute
	defaultStuckAfter    = 10 * time.Minute
	defaultSweepInterval = time.Minute
	popTimeout           = time.Second
)

// Handler processes one job. A returned error marks the job failed and
// schedules a retry while retries remain.
type Handler func(ctx context.Context, job *Job) error

// Options tune a Queue. Zero values fall back to the package defaults.
type Options struct {
	Workers       int
	Namespace     string
	MaxRetries    int
	RetryBackoff  time.Duration
	StuckAfter    time.Duration
	SweepInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkerCount
	}
	if o.Namespace == "" {
		o.Namespace = DefaultNamespace
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.StuckAfter <= 0 {
		o.StuckAfter = defaultStuckAfter
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = defaultSweepInterval
	}
	return o
}

// keySet holds the Redis keys of one queue namespace.
//
//	<ns>:job:<id>    job document (JSON, expires after JobTTL)
//	<ns>:pending     list of ready job IDs
//	<ns>:processing  list of claimed job IDs
//	<ns>:delayed     sorted set of job IDs waiting for a retry, scored by due time
//	<ns>:stats       hash of terminal status counters
type keySet struct {
	ns         string
	pending    string
	processing string
	delayed    string
	stats      string
}

func newKeySet(ns string) keySet {
	return keySet{
		ns:         ns,
		pending:    ns + ":pending",
		processing: ns + ":processing",
		delayed:    ns + ":delayed",
		stats:      ns + ":stats",
	}
}

func (k keySet) job(id string) string {
	return k.ns + ":job:" + id
}

// Queue is a Redis backed job queue with a fixed set of workers.
type Queue struct {
	client  *redis.Client
	keys    keySet
	opts    Options
	workers int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	handlersMu sync.RWMutex
	handlers   map[JobType]Handler
}

// NewQueue creates a queue on the shared cache client.
func NewQueue(workers int) *Queue {
	return NewQueueWithClient(cache.GetClient(), workers)
}

// NewQueueWithClient creates a queue with default options on the given client.
func NewQueueWithClient(client *redis.Client, workers int) *Queue {
	return NewQueueWithOptions(client, Options{Workers: workers})
}

func NewQueueWithOptions(client *redis.Client, opts Options) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		client:   client,
		keys:     newKeySet(opts.Namespace),
		opts:     opts,
		workers:  opts.Workers,
		handlers: make(map[JobType]Handler),
	}
}

// RegisterHandler sets the handler for a job type, replacing any previous one.
func (q *Queue) RegisterHandler(jobType JobType, handler Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = handler
}

func (q *Queue) dispatch(ctx context.Context, job *Job) error {
	q.handlersMu.RLock()
	handler, ok := q.handlers[job.Type]
	q.handlersMu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	return handler(ctx, job)
}

// Start launches the workers and the maintenance loop. Calling Start on a
// running queue is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.running = true

	log.Infof("[JobQueue] Starting %d workers on %s", q.workers, q.keys.ns)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.runWorker(ctx, i)
	}
	q.wg.Add(1)
	go q.runMaintenance(ctx)
}

// Stop cancels the workers and waits for in-flight jobs to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	cancel := q.cancel
	q.mu.Unlock()

	log.Info("[JobQueue] Stopping workers...")
	cancel()
	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) runWorker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		if ctx.Err() != nil {
			return
		}
		job, err := q.claim(ctx)
		switch {
		case err == nil:
			log.Infof("[JobQueue] Worker %d running job %s (%s)", id, job.ID, job.Type)
			// Handlers run detached from ctx so Stop lets them finish.
			q.run(context.WithoutCancel(ctx), job)
		case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled):
		default:
			log.Errorf("[JobQueue] Worker %d: claim failed: %v", id, err)
			select {
			case <-ctx.Done():
			case <-time.After(popTimeout):
			}
		}
	}
}

// runMaintenance promotes due retries and recovers jobs abandoned in the
// processing list.
func (q *Queue) runMaintenance(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.promoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
				log.Errorf("[JobQueue] Promote retries: %v", err)
			}
			if _, err := q.recoverStuck(ctx, time.Now()); err != nil && ctx.Err() == nil {
				log.Errorf("[JobQueue] Recover stuck jobs: %v", err)
			}
		}
	}
}

// EnqueueJob stores a new pending job and makes it visible to the workers.
func (q *Queue) EnqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error) {
	ctx := context.Background()
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: q.opts.MaxRetries,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, JobTTL)
		pipe.LPush(ctx, q.keys.pending, job.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s job: %w", jobType, err)
	}
	log.Infof("[JobQueue] Enqueued job %s (%s)", job.ID, job.Type)
	return job, nil
}

// claim moves the next pending ID to the processing list and loads its job.
// IDs whose document has expired or is unreadable are dropped.
func (q *Queue) claim(ctx context.Context) (*Job, error) {
	id, err := q.client.BLMove(ctx, q.keys.pending, q.keys.processing, "RIGHT", "LEFT", popTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.client.LRem(ctx, q.keys.processing, 1, id)
		return nil, fmt.Errorf("load claimed job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) run(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.save(ctx, job)

	err := q.dispatch(ctx, job)
	if err == nil {
		q.complete(ctx, job)
		return
	}

	job.MarkAsFailed(err.Error())
	if !job.IsRetryable() {
		log.Errorf("[JobQueue] Job %s failed permanently after %d attempts: %v", job.ID, job.RetryCount, err)
		q.finish(ctx, job, JobStatusFailed)
		return
	}

	job.MarkAsRetrying()
	due := time.Now().Add(q.backoff(job.RetryCount))
	log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), retry at %s: %v",
		job.ID, job.RetryCount, job.MaxRetries, due.Format(time.RFC3339), err)
	q.schedule(ctx, job, due)
}

// backoff grows linearly with the number of failed attempts.
func (q *Queue) backoff(attempt int) time.Duration {
	return time.Duration(attempt) * q.opts.RetryBackoff
}

func (q *Queue) complete(ctx context.Context, job *Job) {
	job.MarkAsCompleted()
	log.Infof("[JobQueue] Job %s completed", job.ID)
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, q.keys.job(job.ID))
		pipe.LRem(ctx, q.keys.processing, 1, job.ID)
		pipe.HIncrBy(ctx, q.keys.stats, string(JobStatusCompleted), 1)
		return nil
	})
	if err != nil {
		log.Errorf("[JobQueue] Complete job %s: %v", job.ID, err)
	}
}

// finish keeps the failed job document for inspection until it expires.
func (q *Queue) finish(ctx context.Context, job *Job, status JobStatus) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Encode job %s: %v", job.ID, err)
		return
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, JobTTL)
		pipe.LRem(ctx, q.keys.processing, 1, job.ID)
		pipe.HIncrBy(ctx, q.keys.stats, string(status), 1)
		return nil
	})
	if err != nil {
		log.Errorf("[JobQueue] Finish job %s: %v", job.ID, err)
	}
}

func (q *Queue) schedule(ctx context.Context, job *Job, due time.Time) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Encode job %s: %v", job.ID, err)
		return
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, q.keys.job(job.ID), data, JobTTL)
		pipe.LRem(ctx, q.keys.processing, 1, job.ID)
		pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(due.Unix()), Member: job.ID})
		return nil
	})
	if err != nil {
		log.Errorf("[JobQueue] Schedule retry of job %s: %v", job.ID, err)
	}
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Encode job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, q.keys.job(job.ID), data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Save job %s: %v", job.ID, err)
	}
}

// promoteDue moves retries whose due time has passed back to the pending
// list and reports how many were moved.
func (q *Queue) promoteDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.ZRangeByScore(ctx, q.keys.delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, id := range ids {
		// ZRem decides the winner when several processes promote at once.
		removed, err := q.client.ZRem(ctx, q.keys.delayed, id).Result()
		if err != nil {
			return moved, err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.keys.pending, id).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

// recoverStuck requeues processing jobs whose worker has not finished
// within StuckAfter, usually because the process died mid-job.
func (q *Queue) recoverStuck(ctx context.Context, now time.Time) (int, error) {
	ids, err := q.client.LRange(ctx, q.keys.processing, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil || job.Status != JobStatusProcessing {
			q.client.LRem(ctx, q.keys.processing, 1, id)
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) < q.opts.StuckAfter {
			continue
		}

		log.Warnf("[JobQueue] Requeueing stuck job %s (%s), running since %s", job.ID, job.Type, started.Format(time.RFC3339))
		job.Status = JobStatusPending
		job.ErrorMsg = "recovered after worker stall"
		job.UpdatedAt = now
		q.save(ctx, job)
		if err := q.client.LRem(ctx, q.keys.processing, 1, id).Err(); err != nil {
			return recovered, err
		}
		if err := q.client.RPush(ctx, q.keys.pending, id).Err(); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// GetJob loads a job document by ID. Completed jobs are deleted and return
// redis.Nil.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	data, err := q.client.Get(ctx, q.keys.job(jobID)).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &job, nil
}

// GetJobStats returns the terminal status counters.
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, q.keys.stats).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		n, err := strconv.ParseInt(count, 10, 64)
		if err != nil {
			continue
		}
		stats[JobStatus(status)] = n
	}
	return stats, nil
}

// GetQueueSize returns the number of jobs waiting for a worker, including
// scheduled retries.
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	pending, err := q.client.LLen(ctx, q.keys.pending).Result()
	if err != nil {
		return 0, err
	}
	delayed, err := q.client.ZCard(ctx, q.keys.delayed).Result()
	if err != nil {
		return 0, err
	}
	return pending + delayed, nil
}

// GetProcessingSize returns the number of claimed jobs.
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.keys.processing).Result()
}
