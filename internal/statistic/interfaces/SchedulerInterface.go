package interfaces

import "context"

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
	PollNow(ctx context.Context) error
	Close()
}
