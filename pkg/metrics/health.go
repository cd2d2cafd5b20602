package metrics

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Overall statuses reported by GetHealth and GetReadiness
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// Component names.
//
// The journal and upstream components are updated inline by the journal and
// the board fetcher. The view and api_tcp components are only reported when
// watch runs its health monitor.
const (
	ComponentJournal  = "journal"
	ComponentUpstream = "upstream"
	ComponentView     = "view"
	ComponentAPI      = "api_tcp"
)

// CriticalComponents must be registered and healthy for readiness. Any other
// unhealthy component only degrades overall health.
var CriticalComponents = []string{ComponentJournal, ComponentUpstream}

// HealthStatus is the body of the /health and /ready responses
type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

type componentHealth struct {
	healthy bool
	message string
}

type healthRegistry struct {
	mu         sync.RWMutex
	components map[string]componentHealth
	startTime  time.Time
	version    string
}

var registry = newHealthRegistry()

func newHealthRegistry() *healthRegistry {
	return &healthRegistry{
		components: make(map[string]componentHealth),
		startTime:  time.Now(),
	}
}

// SetVersion sets the version string for health responses
func SetVersion(version string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.version = version
}

// RegisterComponent records the health of a component, replacing any earlier state
func RegisterComponent(name string, healthy bool, message string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.components[name] = componentHealth{healthy: healthy, message: message}
}

// UpdateComponent is RegisterComponent under the name callers use after startup
func UpdateComponent(name string, healthy bool, message string) {
	RegisterComponent(name, healthy, message)
}

func isCritical(name string) bool {
	for _, c := range CriticalComponents {
		if c == name {
			return true
		}
	}
	return false
}

func (r *healthRegistry) status(status, message string, components map[string]string) HealthStatus {
	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    r.version,
		Uptime:     time.Since(r.startTime).Round(time.Second).String(),
	}
}

// GetHealth reports every registered component. An unhealthy critical
// component makes the whole process unhealthy; other failures degrade it.
func GetHealth() HealthStatus {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	status := StatusHealthy
	components := make(map[string]string, len(registry.components))
	for name, comp := range registry.components {
		if comp.healthy {
			components[name] = StatusHealthy
			continue
		}
		components[name] = StatusUnhealthy + ": " + comp.message
		if isCritical(name) {
			status = StatusUnhealthy
		} else if status == StatusHealthy {
			status = StatusDegraded
		}
	}
	return registry.status(status, "", components)
}

// GetReadiness reports whether the journal and upstream are both usable
func GetReadiness() HealthStatus {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	status := StatusReady
	var waiting []string
	components := make(map[string]string, len(CriticalComponents))
	for _, name := range CriticalComponents {
		comp, ok := registry.components[name]
		switch {
		case !ok:
			components[name] = "not registered"
		case !comp.healthy:
			components[name] = "not ready: " + comp.message
		default:
			components[name] = StatusReady
			continue
		}
		status = StatusNotReady
		waiting = append(waiting, name)
	}

	message := ""
	if len(waiting) > 0 {
		sort.Strings(waiting)
		message = "waiting for " + waiting[0]
		for _, name := range waiting[1:] {
			message += ", " + name
		}
	}
	return registry.status(status, message, components)
}

func writeStatus(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// HealthHandler serves GetHealth. Only an unhealthy status answers 503; a
// degraded process still serves cached views.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := GetHealth()
		code := http.StatusOK
		if health.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, health)
	}
}

// ReadyHandler serves GetReadiness
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := GetReadiness()
		code := http.StatusOK
		if readiness.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeStatus(w, code, readiness)
	}
}

// LivenessHandler answers 200 while the process runs
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		registry.mu.RLock()
		uptime := time.Since(registry.startTime).Round(time.Second).String()
		registry.mu.RUnlock()

		writeStatus(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": uptime,
		})
	}
}
