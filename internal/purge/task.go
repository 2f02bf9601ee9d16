// Package purge schedules and executes CDN cache invalidation for objects
// removed from the bucket.
package purge

import (
	"encoding/json"
	"errors"
	"time"
)

// Task is a deferred purge of a set of public URLs. It is consumed once.
type Task struct {
	URLs        []string  `json:"urls"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Encode serialises the task for the queue.
func (t Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask parses a queued task.
func DecodeTask(data []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return Task{}, err
	}
	if len(t.URLs) == 0 {
		return Task{}, errors.New("purge task has no urls")
	}
	return t, nil
}
