package health

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/tableside/pkg/log"
	"github.com/cuemby/tableside/pkg/metrics"
	"github.com/rs/zerolog"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Component is the name the result is reported under
	Component() string
}

// Config contains common configuration for all health checks
type Config struct {
	// Interval is the time between health checks
	Interval time.Duration

	// Timeout bounds a single check
	Timeout time.Duration

	// Retries is the number of consecutive failures before marking as unhealthy
	Retries int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval: 30 * time.Second,
		Timeout:  5 * time.Second,
		Retries:  3,
	}
}

// Status tracks the current health of one checked component
type Status struct {
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastCheck            time.Time
	LastResult           Result
	Healthy              bool
}

// NewStatus creates a Status that is healthy until proven otherwise
func NewStatus() *Status {
	return &Status{Healthy: true}
}

// Update updates the status based on a new health check result
func (s *Status) Update(result Result, config Config) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0
		s.Healthy = true
		return
	}

	s.ConsecutiveFailures++
	s.ConsecutiveSuccesses = 0
	if s.ConsecutiveFailures >= config.Retries {
		s.Healthy = false
	}
}

// Monitor runs checkers on an interval and reports each component to the
// metrics health registry.
type Monitor struct {
	config   Config
	checkers []Checker
	logger   zerolog.Logger

	mu       sync.Mutex
	statuses map[string]*Status
}

// NewMonitor creates a monitor over checkers
func NewMonitor(config Config, checkers ...Checker) *Monitor {
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.Retries <= 0 {
		config.Retries = 1
	}

	statuses := make(map[string]*Status, len(checkers))
	for _, c := range checkers {
		statuses[c.Component()] = NewStatus()
	}
	return &Monitor{
		config:   config,
		checkers: checkers,
		logger:   log.WithComponent("health"),
		statuses: statuses,
	}
}

// Run checks immediately and then every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		m.CheckAll(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs every checker once
func (m *Monitor) CheckAll(ctx context.Context) {
	for _, c := range m.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.config.Timeout)
		result := c.Check(checkCtx)
		cancel()

		m.mu.Lock()
		status := m.statuses[c.Component()]
		wasHealthy := status.Healthy
		status.Update(result, m.config)
		healthy := status.Healthy
		m.mu.Unlock()

		message := ""
		if !healthy {
			message = result.Message
		}
		metrics.UpdateComponent(c.Component(), healthy, message)

		if wasHealthy != healthy {
			m.logger.Info().
				Str("check", c.Component()).
				Bool("healthy", healthy).
				Str("result", result.Message).
				Msg("health changed")
		}
	}
}

// Status returns a copy of a component's status
func (m *Monitor) Status(component string) (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[component]
	if !ok {
		return Status{}, false
	}
	return *s, true
}
