package connection

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tcmaker/core/internal/apperr"
	"github.com/tcmaker/core/internal/retry"
)

// Timeouts holds the per-connector request deadlines of spec §4.2/§5:
// 30s for ordinary GETs, raised to 240s for full-library enumeration.
type Timeouts struct {
	Request     time.Duration
	FullLibrary time.Duration
}

// DefaultTimeouts matches spec §5's stated defaults.
var DefaultTimeouts = Timeouts{Request: 30 * time.Second, FullLibrary: 240 * time.Second}

// Base embeds the plumbing every concrete connector shares: its identity,
// a circuit breaker around the activation probe (grounded on
// tomtom215-cartographus's use of sony/gobreaker for resilient external
// calls), and a token-bucket limiter bounding the outbound request rate
// (grounded on snapetech-plexTuner's golang.org/x/time/rate use).
type Base struct {
	interfaceID int
	kind        Kind
	timeouts    Timeouts

	breaker *gobreaker.CircuitBreaker[any]
	limiter *rate.Limiter

	active bool
}

// NewBase constructs the shared connector plumbing. requestsPerSecond
// bounds the connector's own outbound call rate; 0 disables limiting.
func NewBase(interfaceID int, kind Kind, timeouts Timeouts, requestsPerSecond float64) *Base {
	settings := gobreaker.Settings{
		Name:        string(kind),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &Base{
		interfaceID: interfaceID,
		kind:        kind,
		timeouts:    timeouts,
		breaker:     gobreaker.NewCircuitBreaker[any](settings),
		limiter:     limiter,
	}
}

func (b *Base) InterfaceID() int { return b.interfaceID }
func (b *Base) Kind() Kind       { return b.kind }
func (b *Base) Active() bool     { return b.active }

func (b *Base) SetActive(active bool) { b.active = active }

// Timeouts exposes the configured request deadlines.
func (b *Base) Timeouts() Timeouts { return b.timeouts }

// Call runs fn through the rate limiter, the circuit breaker, and
// retry.Do, in that order — the standard envelope every outbound request
// a connector makes should be wrapped in. The breaker trips on repeated
// activation/request failures so a dead endpoint is short-circuited
// instead of hammered (spec §4.2 "failure yields an ActivationError and
// the connector is marked inactive").
func (b *Base) Call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return apperr.New(op, apperr.Cancelled, err)
		}
	}

	_, err := b.breaker.Execute(func() (any, error) {
		return nil, retry.Do(ctx, fn)
	})
	if err != nil {
		if kind, ok := apperr.KindOf(err); ok {
			return apperr.New(op, kind, err)
		}
		return apperr.New(op, apperr.Transient, err)
	}
	return nil
}
