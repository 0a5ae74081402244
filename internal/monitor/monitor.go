package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/awareness/internal/session"
	"github.com/OCAP2/awareness/internal/sim"
)

// DefaultInterval is how often the status file is rewritten.
const DefaultInterval = time.Second

// StatusSource publishes simulation status snapshots.
type StatusSource interface {
	Status() sim.Status
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger         *slog.Logger
	SessionContext *session.Context
	Source         StatusSource
	StatusFile     string
	Interval       time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status, rendered and raw.
func (s *Service) GetProgramStatus() (output string, status sim.Status) {
	status = s.deps.Source.Status()
	raw, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	return string(raw), status
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	statusFile, err := os.Create(s.deps.StatusFile)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create status file: %w", err)
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer statusFile.Close()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "file", s.deps.StatusFile)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.write(statusFile)
				return
			case <-ticker.C:
				if s.deps.SessionContext != nil && !s.deps.SessionContext.Running() {
					continue
				}
				s.write(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) write(f *os.File) {
	out, _ := s.GetProgramStatus()
	if err := f.Truncate(0); err != nil {
		s.deps.Logger.Error("Error truncating status file", "error", err)
		return
	}
	if _, err := f.WriteAt([]byte(out+"\n"), 0); err != nil {
		s.deps.Logger.Error("Error writing status file", "error", err)
	}
}

// Stop stops the status monitor and waits for the final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
