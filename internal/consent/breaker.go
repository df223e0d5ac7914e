package consent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/peptide-safety-engine/internal/domain"
)

// BreakerConfig configures the circuit breaker around a consent provider.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:        "consent",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
	}
}

// BreakerConfigFrom fills unset fields of cfg with defaults.
func BreakerConfigFrom(cfg domain.ConsentConfig) BreakerConfig {
	b := DefaultBreakerConfig()
	if cfg.BreakerMaxReqs > 0 {
		b.MaxRequests = cfg.BreakerMaxReqs
	}
	if cfg.BreakerInterval > 0 {
		b.Interval = cfg.BreakerInterval
	}
	if cfg.BreakerTimeout > 0 {
		b.Timeout = cfg.BreakerTimeout
	}
	return b
}

// BreakerProvider stops calling a failing consent provider for a while.
// While open it fails fast with domain.ErrConsentUnavailable.
type BreakerProvider struct {
	next    domain.ConsentStatusProvider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps next in a circuit breaker that trips once at
// least three requests have been seen and 60% of them failed.
func NewBreakerProvider(next domain.ConsentStatusProvider, cfg BreakerConfig, logger *logrus.Logger) *BreakerProvider {
	return &BreakerProvider{
		next: next,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Consent provider circuit breaker changed state")
			},
		}),
	}
}

// ConsentStatus asks the wrapped provider unless the breaker is open.
func (p *BreakerProvider) ConsentStatus(ctx context.Context, patientID, protocolID string) (domain.ConsentStatus, error) {
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.next.ConsentStatus(ctx, patientID, protocolID)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConsentUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrConsentUnavailable, err)
		}
		return domain.ConsentStatus{}, err
	}
	return result.(domain.ConsentStatus), nil
}

// State returns the current breaker state.
func (p *BreakerProvider) State() gobreaker.State {
	return p.breaker.State()
}
