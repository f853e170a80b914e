package monitor

import (
	"context"

	"github.com/dd0wney/cluso-busnet/pkg/events"
)

// Source yields events. *events.Subscriber satisfies it.
type Source interface {
	Next(ctx context.Context) (events.Event, error)
}

// ChannelSource adapts an event channel, such as a LocalBus subscription.
type ChannelSource <-chan events.Event

// Next returns the next event or ctx's error. A closed channel yields events.ErrClosed.
func (c ChannelSource) Next(ctx context.Context) (events.Event, error) {
	select {
	case <-ctx.Done():
		return events.Event{}, ctx.Err()
	case ev, ok := <-c:
		if !ok {
			return events.Event{}, events.ErrClosed
		}
		return ev, nil
	}
}
