package session

import (
	"sync"
	"time"
)

// DefaultValidationInterval is how often the stored token is re-checked.
const DefaultValidationInterval = time.Minute

// Validator runs check on a fixed interval until stopped. It backstops timers that
// were missed while the device slept.
type Validator struct {
	mu       sync.Mutex
	interval time.Duration
	check    func()
	stop     chan struct{}
}

// NewValidator returns a stopped validator.
func NewValidator(interval time.Duration, check func()) *Validator {
	if interval <= 0 {
		interval = DefaultValidationInterval
	}
	return &Validator{interval: interval, check: check}
}

// Start begins the recurring check. Starting a running validator is a no-op.
func (v *Validator) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stop != nil {
		return
	}
	stop := make(chan struct{})
	v.stop = stop
	go v.run(stop)
}

// Stop cancels the recurring check without waiting for an in-flight tick.
func (v *Validator) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.stop != nil {
		close(v.stop)
		v.stop = nil
	}
}

// Running reports whether the validator is started.
func (v *Validator) Running() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stop != nil
}

func (v *Validator) run(stop <-chan struct{}) {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			select {
			case <-stop:
				return
			default:
			}
			v.check()
		}
	}
}
