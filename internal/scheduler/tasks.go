package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskDialerCycleRun = "dialer.cycle.run"

type CycleRunPayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requestedAt"`
}

func NewCycleRunTask(payload CycleRunPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDialerCycleRun, data), nil
}

func ParseCycleRunPayload(task *asynq.Task) (CycleRunPayload, error) {
	var payload CycleRunPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CycleRunPayload{}, err
	}
	return payload, nil
}
