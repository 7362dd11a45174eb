package observability

import (
	"strconv"
	"sync"
	"time"
)

type counterKey struct {
	path   string
	method string
	label  string
}

// Metrics keeps in-process request and error counters. There is no external
// metrics backend; the counters exist for the request logger and the error
// middleware to record into.
type Metrics struct {
	mu       sync.Mutex
	requests map[counterKey]int64
	errors   map[counterKey]int64
}

// NewMetrics initializes empty counters.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[counterKey]int64),
		errors:   make(map[counterKey]int64),
	}
}

// RecordRequest counts a completed request, labeled by status code.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[counterKey{path, method, strconv.Itoa(status)}]++
}

// RecordError counts a failed request, labeled by error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[counterKey{path, method, code}]++
}
