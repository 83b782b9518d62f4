// Package resources tracks terminal sessions, their program runs and idle time.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/antibyte/c64basic/pkg/configuration"
	"github.com/antibyte/c64basic/pkg/logger"
)

var (
	ErrTooManySessions = errors.New("maximum number of sessions reached")
	ErrSessionNotFound = errors.New("session not found")
	ErrRunActive       = errors.New("program already running")
)

// Limits bounds sessions and their runs. Zero durations disable the limit.
type Limits struct {
	MaxSessions      int
	MaxExecutionTime time.Duration
	MaxInactiveTime  time.Duration
	CleanupInterval  time.Duration
}

// LimitsFromConfig reads [Session].
func LimitsFromConfig() Limits {
	return Limits{
		MaxSessions:      configuration.GetInt("Session", "max_sessions", 50),
		MaxExecutionTime: configuration.GetDuration("Session", "max_execution_time", 5*time.Minute),
		MaxInactiveTime:  configuration.GetDuration("Session", "max_inactive_time", 30*time.Minute),
		CleanupInterval:  configuration.GetDuration("Session", "session_cleanup_interval", time.Minute),
	}
}

// Session verwaltet den Zustand einer einzelnen Terminal-Session
type Session struct {
	ID        string
	Name      string
	IPAddress string
	CreatedAt time.Time

	mu           sync.Mutex
	lastActivity time.Time
	cancelRun    context.CancelFunc
	runGen       uint64
	runs         int64
}

// LastActivity returns the time of the last Touch.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Running reports whether a run started with StartRun is still active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelRun != nil
}

// Runs returns the number of runs started in this session.
func (s *Session) Runs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *Session) stopRun() bool {
	s.mu.Lock()
	cancel := s.cancelRun
	s.cancelRun = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		return true
	}
	return false
}

// SessionManager is the registry of live sessions.
type SessionManager struct {
	limits Limits
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	onRemove []func(id string)
}

// NewSessionManager erstellt einen neuen Session-Manager
func NewSessionManager(limits Limits) *SessionManager {
	return &SessionManager{
		limits:   limits,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// OnRemove registers fn to be called after a session is unregistered or
// cleaned up.
func (sm *SessionManager) OnRemove(fn func(id string)) {
	sm.mu.Lock()
	sm.onRemove = append(sm.onRemove, fn)
	sm.mu.Unlock()
}

// Register adds a session. Registering a known id only touches it.
func (sm *SessionManager) Register(id, name, ipAddress string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if s, ok := sm.sessions[id]; ok {
		s.mu.Lock()
		s.lastActivity = now
		s.mu.Unlock()
		return s, nil
	}
	if sm.limits.MaxSessions > 0 && len(sm.sessions) >= sm.limits.MaxSessions {
		logger.SessionWarn("Session limit %d reached, rejecting %s", sm.limits.MaxSessions, ipAddress)
		return nil, ErrTooManySessions
	}
	s := &Session{
		ID:           id,
		Name:         name,
		IPAddress:    ipAddress,
		CreatedAt:    now,
		lastActivity: now,
	}
	sm.sessions[id] = s
	logger.SessionInfo("Session registered: %s (%s, IP: %s)", id, name, ipAddress)
	return s, nil
}

// Get returns the session with id.
func (sm *SessionManager) Get(id string) (*Session, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	return s, ok
}

// Touch marks the session active now.
func (sm *SessionManager) Touch(id string) error {
	s, ok := sm.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	now := sm.now()
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
	return nil
}

// Unregister removes the session and cancels its run.
func (sm *SessionManager) Unregister(id string) error {
	sm.mu.Lock()
	s, ok := sm.sessions[id]
	if ok {
		delete(sm.sessions, id)
	}
	hooks := sm.onRemove
	sm.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.stopRun()
	for _, fn := range hooks {
		fn(id)
	}
	logger.SessionInfo("Session unregistered: %s (Duration: %v, Runs: %d)", id, sm.now().Sub(s.CreatedAt), s.Runs())
	return nil
}

// StartRun derives the context of one program run from parent, bounded by
// MaxExecutionTime. The returned cancel must be called when the run ends.
func (sm *SessionManager) StartRun(parent context.Context, id string) (context.Context, context.CancelFunc, error) {
	s, ok := sm.Get(id)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if sm.limits.MaxExecutionTime > 0 {
		ctx, cancel = context.WithTimeout(parent, sm.limits.MaxExecutionTime)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}

	s.mu.Lock()
	if s.cancelRun != nil {
		s.mu.Unlock()
		cancel()
		return nil, nil, ErrRunActive
	}
	s.runGen++
	gen := s.runGen
	s.cancelRun = cancel
	s.runs++
	s.lastActivity = sm.now()
	s.mu.Unlock()

	done := func() {
		cancel()
		s.mu.Lock()
		if s.runGen == gen {
			s.cancelRun = nil
		}
		s.mu.Unlock()
	}
	logger.SessionDebug("Run started in session %s", id)
	return ctx, done, nil
}

// StopRun cancels the active run of the session, if any.
func (sm *SessionManager) StopRun(id string) bool {
	s, ok := sm.Get(id)
	if !ok {
		return false
	}
	stopped := s.stopRun()
	if stopped {
		logger.SessionDebug("Run stopped in session %s", id)
	}
	return stopped
}

// CleanupInactive removes sessions idle longer than MaxInactiveTime and
// returns their ids.
func (sm *SessionManager) CleanupInactive() []string {
	if sm.limits.MaxInactiveTime <= 0 {
		return nil
	}
	now := sm.now()
	var idle []string
	sm.mu.RLock()
	for id, s := range sm.sessions {
		if now.Sub(s.LastActivity()) > sm.limits.MaxInactiveTime {
			idle = append(idle, id)
		}
	}
	sm.mu.RUnlock()

	for _, id := range idle {
		// kann inzwischen schon entfernt sein
		sm.Unregister(id)
	}
	if len(idle) > 0 {
		logger.SessionInfo("Cleaned up %d inactive sessions", len(idle))
	}
	return idle
}

// Run cleans up idle sessions every CleanupInterval until ctx is done.
func (sm *SessionManager) Run(ctx context.Context) {
	interval := sm.limits.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactive()
		}
	}
}

// Count returns the number of registered sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Limits returns the configured limits.
func (sm *SessionManager) Limits() Limits {
	return sm.limits
}
