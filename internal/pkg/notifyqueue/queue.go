package notifyqueue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/logger"
	"github.com/ManuelReschke/PayFox/internal/pkg/statistics"
)

const (
	// Redis key layout
	JobKeyPrefix    = "notify:job:"
	ScheduledSetKey = "notify:scheduled"

	// Jobs not claimed within this TTL are dropped; delivery is best-effort.
	JobTTL = 24 * time.Hour

	defaultPollInterval = 500 * time.Millisecond
)

// Queue schedules best-effort notification jobs in Redis and delivers them
// once due. Enqueue happens only after the payment row is persisted, so the
// persist-then-notify order holds even though delivery runs detached from
// the request.
type Queue struct {
	client       *redis.Client
	dispatcher   Dispatcher
	delay        time.Duration
	workers      int
	pollInterval time.Duration
	stopCh       chan struct{}
	wg           sync.WaitGroup
	mu           sync.Mutex
	running      bool
}

// NewQueueFromEnv reads NOTIFY_DELAY_SECONDS and NOTIFY_WORKERS.
func NewQueueFromEnv(client *redis.Client, dispatcher Dispatcher) *Queue {
	delaySeconds, err := strconv.Atoi(env.GetEnv("NOTIFY_DELAY_SECONDS", "2"))
	if err != nil || delaySeconds < 0 {
		delaySeconds = 2
	}
	workers, err := strconv.Atoi(env.GetEnv("NOTIFY_WORKERS", "2"))
	if err != nil {
		workers = 2
	}
	return NewQueue(client, dispatcher, time.Duration(delaySeconds)*time.Second, workers)
}

// NewQueue creates a notification queue with the given settle delay.
func NewQueue(client *redis.Client, dispatcher Dispatcher, delay time.Duration, workers int) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if delay < 0 {
		delay = 0
	}
	return &Queue{
		client:       client,
		dispatcher:   dispatcher,
		delay:        delay,
		workers:      workers,
		pollInterval: defaultPollInterval,
		stopCh:       make(chan struct{}),
	}
}

// Start launches the delivery workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true
	logger.L().Info("starting notification workers", zap.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop signals the workers and waits for them to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	logger.L().Info("notification workers stopped")
}

// Enqueue schedules a notification for the payment, due after the
// configured settle delay.
func (q *Queue) Enqueue(ctx context.Context, payment models.Payment, snap statistics.Snapshot) error {
	job := NewJob(payment, snap, q.delay)

	data, err := job.Marshal()
	if err != nil {
		return err
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		return err
	}
	return q.client.ZAdd(ctx, ScheduledSetKey, redis.Z{
		Score:  float64(job.ReadyAt.UnixMilli()),
		Member: job.ID,
	}).Err()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			for q.deliverNext() {
			}
		}
	}
}

// deliverNext claims and delivers one due job. Returns true if a job was
// claimed, so the caller keeps draining until the schedule is empty.
func (q *Queue) deliverNext() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	job, ok := q.claimDue(ctx)
	if !ok {
		return false
	}

	if err := q.dispatcher.Dispatch(ctx, &job.Payment, job.Snapshot); err != nil {
		// Best-effort by contract: log and drop, never retry.
		logger.L().Warn("notification delivery failed",
			zap.String("job_id", job.ID),
			zap.String("payment_id", job.Payment.PaymentID),
			zap.Error(err))
	}
	return true
}

// claimDue pops one due job id from the schedule. ZRem is the claim; only
// the worker whose removal reports one removed member may deliver, which
// keeps delivery at-most-once across workers.
func (q *Queue) claimDue(ctx context.Context) (*Job, bool) {
	now := strconv.FormatInt(time.Now().UTC().UnixMilli(), 10)
	ids, err := q.client.ZRangeByScore(ctx, ScheduledSetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: 1,
	}).Result()
	if err != nil || len(ids) == 0 {
		return nil, false
	}

	id := ids[0]
	removed, err := q.client.ZRem(ctx, ScheduledSetKey, id).Result()
	if err != nil || removed == 0 {
		return nil, false
	}

	data, err := q.client.GetDel(ctx, JobKeyPrefix+id).Bytes()
	if err != nil {
		logger.L().Warn("claimed notification job has no payload",
			zap.String("job_id", id),
			zap.Error(err))
		return nil, false
	}

	job, err := UnmarshalJob(data)
	if err != nil {
		logger.L().Warn("dropping undecodable notification job",
			zap.String("job_id", id),
			zap.Error(err))
		return nil, false
	}
	return job, true
}
