package pipeline

import "claimcheck/internal/models"

// Observer receives a snapshot after every run state change. Snapshots are
// delivered one at a time in publication order and are owned by the observer.
type Observer interface {
	Publish(state models.RunState)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(state models.RunState)

// Publish calls f
func (f ObserverFunc) Publish(state models.RunState) {
	f(state)
}

// ChannelObserver keeps only the newest undelivered snapshot, so a slow reader
// never stalls the run and always ends up with the latest state.
type ChannelObserver struct {
	ch chan models.RunState
}

// NewChannelObserver creates a coalescing channel observer
func NewChannelObserver() *ChannelObserver {
	return &ChannelObserver{ch: make(chan models.RunState, 1)}
}

// Publish replaces any pending snapshot with state
func (c *ChannelObserver) Publish(state models.RunState) {
	for {
		select {
		case c.ch <- state:
			return
		default:
			select {
			case <-c.ch:
			default:
			}
		}
	}
}

// C returns the snapshot channel
func (c *ChannelObserver) C() <-chan models.RunState {
	return c.ch
}
