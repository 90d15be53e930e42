package websocket

import (
	"time"

	"go.uber.org/zap"

	"github.com/nadasuara/server/internal/session"
)

// SessionCleanupService expires sessions that stopped sending audio but
// never stopped or disconnected. Dead TCP connections are caught by the
// ping/pong deadlines; this catches live connections that simply went
// quiet.
type SessionCleanupService struct {
	registry    *session.Registry
	idleTimeout time.Duration
	interval    time.Duration
	logger      *zap.Logger
	stopChan    chan struct{}
}

// NewSessionCleanupService creates a new session cleanup service.
func NewSessionCleanupService(registry *session.Registry, idleTimeout time.Duration, logger *zap.Logger) *SessionCleanupService {
	return &SessionCleanupService{
		registry:    registry,
		idleTimeout: idleTimeout,
		interval:    time.Minute,
		logger:      logger,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *SessionCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Session cleanup service started",
		zap.Duration("idleTimeout", s.idleTimeout))
}

// Stop gracefully stops the cleanup service
func (s *SessionCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Session cleanup service stopped")
}

func (s *SessionCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup closes every active session idle past the timeout. The
// session is left registered; its connection handler unregisters it when
// the connection goes away.
func (s *SessionCleanupService) runCleanup() {
	cutoff := time.Now().Add(-s.idleTimeout)
	expired := 0

	s.registry.ForEach(func(sess *session.Session) {
		if sess.State() == session.StateClosed {
			return
		}
		// Sessions that never started have no activity timestamp; the
		// connection deadlines cover those.
		if sess.LastActivity().IsZero() {
			return
		}
		if sess.LastActivity().Before(cutoff) {
			s.logger.Info("Expiring idle session",
				zap.String("sessionID", sess.ID),
				zap.String("deviceID", sess.DeviceID),
				zap.Time("lastActivity", sess.LastActivity()))
			sess.Close()
			expired++
		}
	})

	if expired > 0 {
		s.logger.Info("Session cleanup completed", zap.Int("expired", expired))
	}
}
