package notifyqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/statistics"
)

// Job is one scheduled notification. The payment and snapshot are captured
// at enqueue time so delivery does not re-read storage.
type Job struct {
	ID        string              `json:"id"`
	Payment   models.Payment      `json:"payment"`
	Snapshot  statistics.Snapshot `json:"snapshot"`
	CreatedAt time.Time           `json:"created_at"`
	ReadyAt   time.Time           `json:"ready_at"`
}

// Dispatcher delivers a rendered notification. Satisfied by
// telegram.Notifier.
type Dispatcher interface {
	Dispatch(ctx context.Context, payment *models.Payment, snap statistics.Snapshot) error
}

// NewJob creates a notification job that becomes due after delay.
func NewJob(payment models.Payment, snap statistics.Snapshot, delay time.Duration) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New().String(),
		Payment:   payment,
		Snapshot:  snap,
		CreatedAt: now,
		ReadyAt:   now.Add(delay),
	}
}

// Marshal serializes the job for Redis storage.
func (j *Job) Marshal() ([]byte, error) {
	return json.Marshal(j)
}

// UnmarshalJob deserializes a job from Redis.
func UnmarshalJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}
