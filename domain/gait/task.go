package gait

import (
	"gaitspec/domain/core"
)

// Task is a locomotion task name from the closed supported set. Dataset
// rows carrying any other task name fail with core.ErrUnknownTask rather
// than being coerced.
type Task string

const (
	TaskLevelWalking   Task = "level_walking"
	TaskInclineWalking Task = "incline_walking"
	TaskDeclineWalking Task = "decline_walking"
	TaskStairAscent    Task = "stair_ascent"
	TaskStairDescent   Task = "stair_descent"
	TaskRun            Task = "run"
)

// SupportedTasks returns the closed task enumeration in stable order.
func SupportedTasks() []Task {
	return []Task{
		TaskLevelWalking,
		TaskInclineWalking,
		TaskDeclineWalking,
		TaskStairAscent,
		TaskStairDescent,
		TaskRun,
	}
}

// ParseTask validates a task name against the supported set
func ParseTask(s string) (Task, error) {
	for _, t := range SupportedTasks() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", core.NewUnknownTaskError(s)
}

// IsSupported reports whether the task is in the supported set
func (t Task) IsSupported() bool {
	_, err := ParseTask(string(t))
	return err == nil
}

// String returns the task name
func (t Task) String() string { return string(t) }
