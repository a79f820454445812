package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"claimcheck/internal/logger"
	"claimcheck/internal/models"
	"claimcheck/internal/pipeline"
	"claimcheck/internal/reconcile"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrSessionNotFound is returned for unknown session identifiers
var ErrSessionNotFound = errors.New("session not found")

// Run identifies the current run of a session
type Run struct {
	SessionID string
	RunID     string
	Context   context.Context
}

// Subscription delivers the newest snapshot of a session's current run
type Subscription struct {
	C     <-chan models.RunState
	Done  <-chan struct{}
	Close func()
}

type session struct {
	id          string
	runID       string
	cancel      context.CancelFunc
	state       models.RunState
	editor      *reconcile.Editor
	subscribers map[int]*pipeline.ChannelObserver
	nextSub     int
	done        chan struct{}
	updatedAt   time.Time
}

// Registry tracks one current run per session. Results from superseded runs are discarded.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	runs     map[string]string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		runs:     make(map[string]string),
		logger:   logger.Log,
		now:      time.Now,
	}
}

// Begin starts a new run for sessionID, cancelling any run in flight and
// resetting the display buffer to input. An empty sessionID creates a new session.
func (r *Registry) Begin(parent context.Context, sessionID, input string) Run {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(pipeline.ContextWithSessionID(parent, sessionID))

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		s = &session{
			id:          sessionID,
			editor:      reconcile.NewEditor(input),
			subscribers: make(map[int]*pipeline.ChannelObserver),
			done:        make(chan struct{}),
		}
		r.sessions[sessionID] = s
	} else {
		if s.cancel != nil {
			s.cancel()
		}
		delete(r.runs, s.runID)
		s.editor.Reset(input)
	}

	s.runID = runID
	s.cancel = cancel
	s.state = models.RunState{
		RunID:     runID,
		SessionID: sessionID,
		Input:     input,
		Status:    models.RunExtracting,
		Claims:    []models.ProcessedClaim{},
	}
	s.updatedAt = r.now()
	r.runs[runID] = sessionID
	s.notify()

	r.logger.WithFields(map[string]interface{}{
		"session_id": sessionID,
		"run_id":     runID,
	}).Info("Run started for session")

	return Run{SessionID: sessionID, RunID: runID, Context: ctx}
}

// Apply stores state if runID is still its session's current run. It reports
// whether the snapshot was accepted.
func (r *Registry) Apply(runID string, state models.RunState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessionID, ok := r.runs[runID]
	if !ok {
		r.logger.WithField("run_id", runID).Debug("Discarding snapshot from stale run")
		return false
	}
	s := r.sessions[sessionID]
	if s == nil || s.runID != runID {
		r.logger.WithField("run_id", runID).Debug("Discarding snapshot from stale run")
		return false
	}

	s.state = state.Clone()
	s.state.RunID = runID
	s.state.SessionID = sessionID
	s.updatedAt = r.now()
	s.notify()
	return true
}

// Observer returns a pipeline observer that applies snapshots for runID and
// passes the accepted ones on to next. Snapshots of a stale run go nowhere.
func (r *Registry) Observer(runID string, next ...pipeline.Observer) pipeline.Observer {
	return pipeline.ObserverFunc(func(state models.RunState) {
		if !r.Apply(runID, state) {
			return
		}
		for _, observer := range next {
			observer.Publish(state)
		}
	})
}

// Current reports whether runID is the current run of its session
func (r *Registry) Current(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[runID]
	return ok
}

// Snapshot returns the latest state of the session's current run
func (r *Registry) Snapshot(sessionID string) (models.RunState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return models.RunState{}, ErrSessionNotFound
	}
	return s.state.Clone(), nil
}

// Editor returns the session's display buffer editor
func (r *Registry) Editor(sessionID string) (*reconcile.Editor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.editor, nil
}

// Subscribe streams snapshots of the session, starting with the current one
func (r *Registry) Subscribe(sessionID string) (*Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	observer := pipeline.NewChannelObserver()
	observer.Publish(s.state.Clone())
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = observer

	var once sync.Once
	return &Subscription{
		C:    observer.C(),
		Done: s.done,
		Close: func() {
			once.Do(func() {
				r.mu.Lock()
				defer r.mu.Unlock()
				delete(s.subscribers, id)
			})
		},
	}, nil
}

// Cancel stops the session's current run. Its later snapshots are still
// accepted so the cancelled state becomes visible.
func (r *Registry) Cancel(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// End cancels the session's run and forgets the session
func (r *Registry) End(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	r.remove(s)
	return nil
}

// Prune ends finished sessions idle for longer than maxAge and returns how many were removed
func (r *Registry) Prune(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxAge)
	removed := 0
	for _, s := range r.sessions {
		if s.state.Terminal() && s.updatedAt.Before(cutoff) {
			r.remove(s)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) remove(s *session) {
	if s.cancel != nil {
		s.cancel()
	}
	delete(r.runs, s.runID)
	delete(r.sessions, s.id)
	close(s.done)
}

func (s *session) notify() {
	for _, subscriber := range s.subscribers {
		subscriber.Publish(s.state.Clone())
	}
}
