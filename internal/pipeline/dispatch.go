package pipeline

import (
	"sync"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"

	"github.com/sirupsen/logrus"
)

// dispatcher delivers one run's snapshots to its observers in the order they
// were queued, on its own goroutine so slow observers never hold the run lock.
type dispatcher struct {
	observers []Observer
	logger    *logrus.Logger

	mu     sync.Mutex
	queue  []models.RunState
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newDispatcher(observers []Observer, log *logrus.Logger) *dispatcher {
	d := &dispatcher{
		observers: observers,
		logger:    log,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *dispatcher) enqueue(state models.RunState) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, state)
	d.mu.Unlock()
	d.signal()
}

// close delivers everything already queued and stops the dispatcher
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.signal()
	<-d.done
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, state := range batch {
			for _, observer := range d.observers {
				d.deliver(observer, state)
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}

func (d *dispatcher) deliver(observer Observer, state models.RunState) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.WithFields(map[string]interface{}{
				"component":   component,
				"run_id":      state.RunID,
				"panic":       r,
				"stack_trace": logger.GetStackTrace(),
			}).Error("Run observer panicked")
		}
	}()
	observer.Publish(state.Clone())
}
