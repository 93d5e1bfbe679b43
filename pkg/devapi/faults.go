package devapi

import (
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Fault forces a response for matching paths. Rate is the probability in [0,1].
type Fault struct {
	StatusCode int     `json:"status_code"`
	Message    string  `json:"message,omitempty"`
	Rate       float64 `json:"rate"`
}

// Faults injects latency, random failures and per-path faults.
type Faults struct {
	mu       sync.RWMutex
	latency  time.Duration
	failRate float64
	byPrefix map[string]Fault
	roll     func() float64
}

func newFaults(latency time.Duration, failRate float64) *Faults {
	return &Faults{
		latency:  latency,
		failRate: failRate,
		byPrefix: map[string]Fault{},
		roll:     rand.Float64,
	}
}

// SetLatency changes the delay added to every request.
func (f *Faults) SetLatency(d time.Duration) {
	f.mu.Lock()
	f.latency = d
	f.mu.Unlock()
}

// SetFailRate changes the probability of a random 500.
func (f *Faults) SetFailRate(rate float64) {
	f.mu.Lock()
	f.failRate = rate
	f.mu.Unlock()
}

// Set forces fault for every path starting with prefix.
func (f *Faults) Set(prefix string, fault Fault) {
	f.mu.Lock()
	f.byPrefix[prefix] = fault
	f.mu.Unlock()
}

// Clear removes every per-path fault.
func (f *Faults) Clear() {
	f.mu.Lock()
	f.byPrefix = map[string]Fault{}
	f.mu.Unlock()
}

func (f *Faults) match(path string) (Fault, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var best string
	var found Fault
	for prefix, fault := range f.byPrefix {
		if strings.HasPrefix(path, prefix) && len(prefix) >= len(best) {
			best, found = prefix, fault
		}
	}
	return found, best != ""
}

// Middleware applies latency first, then a matching fault, then the random failure rate.
func (f *Faults) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.RLock()
		latency, failRate := f.latency, f.failRate
		f.mu.RUnlock()
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-r.Context().Done():
				return
			}
		}
		if fault, ok := f.match(r.URL.Path); ok && f.roll() < rateOrOne(fault.Rate) {
			status := fault.StatusCode
			if status == 0 {
				status = http.StatusInternalServerError
			}
			msg := fault.Message
			if msg == "" {
				msg = http.StatusText(status)
			}
			writeEnvelope(w, status, msg, nil, nil)
			return
		}
		if failRate > 0 && f.roll() < failRate {
			writeEnvelope(w, http.StatusInternalServerError, "injected failure", nil, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateOrOne(rate float64) float64 {
	if rate <= 0 {
		return 1
	}
	return rate
}
