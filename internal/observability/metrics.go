package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	sessionStarts  int64
	sessionEnds    map[string]int64
	sessionRefresh int64
}

// Snapshot is a copy of the session counters.
type Snapshot struct {
	SessionStarts    int64            `json:"session_starts"`
	SessionRefreshes int64            `json:"session_refreshes"`
	SessionEnds      map[string]int64 `json:"session_ends"`
	Requests         int64            `json:"requests"`
	Errors           int64            `json:"errors"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		sessionEnds:  make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSessionStarted counts a login, registration or restored session.
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionStarts++
}

// RecordSessionRefreshed counts a token replacement.
func (m *Metrics) RecordSessionRefreshed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionRefresh++
}

// RecordSessionEnded counts a teardown by trigger.
func (m *Metrics) RecordSessionEnded(trigger string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionEnds[trigger]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{SessionEnds: map[string]int64{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		SessionStarts:    m.sessionStarts,
		SessionRefreshes: m.sessionRefresh,
		SessionEnds:      make(map[string]int64, len(m.sessionEnds)),
	}
	for trigger, count := range m.sessionEnds {
		snap.SessionEnds[trigger] = count
	}
	for _, count := range m.requestCount {
		snap.Requests += count
	}
	for _, count := range m.errorCount {
		snap.Errors += count
	}
	return snap
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
