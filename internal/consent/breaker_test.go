package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// countingProvider returns status or err and counts calls.
type countingProvider struct {
	status domain.ConsentStatus
	err    error
	calls  int
}

func (p *countingProvider) ConsentStatus(context.Context, string, string) (domain.ConsentStatus, error) {
	p.calls++
	return p.status, p.err
}

func TestBreakerProvider_PassesThrough(t *testing.T) {
	next := &countingProvider{status: domain.NewConsentStatus(domain.RequiredConsentElements)}
	p := NewBreakerProvider(next, DefaultBreakerConfig(), quietLogger())

	status, err := p.ConsentStatus(context.Background(), "patient-1", "protocol-1")
	require.NoError(t, err)
	assert.True(t, status.Obtained)
	assert.Equal(t, gobreaker.StateClosed, p.State())
}

func TestBreakerProvider_TripsOnRepeatedFailures(t *testing.T) {
	next := &countingProvider{err: errors.New("store offline")}
	p := NewBreakerProvider(next, DefaultBreakerConfig(), quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.ConsentStatus(ctx, "patient-1", "protocol-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConsentUnavailable))
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	_, err := p.ConsentStatus(ctx, "patient-1", "protocol-1")
	assert.True(t, errors.Is(err, domain.ErrConsentUnavailable))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 3, next.calls, "an open breaker does not call the provider")
}

func TestBreakerProvider_Recovers(t *testing.T) {
	next := &countingProvider{err: errors.New("store offline")}
	cfg := DefaultBreakerConfig()
	cfg.Timeout = 10 * time.Millisecond
	p := NewBreakerProvider(next, cfg, quietLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = p.ConsentStatus(ctx, "patient-1", "protocol-1")
	}
	require.Equal(t, gobreaker.StateOpen, p.State())

	next.err = nil
	assert.Eventually(t, func() bool {
		_, err := p.ConsentStatus(ctx, "patient-1", "protocol-1")
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestBreakerConfigFrom(t *testing.T) {
	cfg := BreakerConfigFrom(domain.ConsentConfig{BreakerTimeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, DefaultBreakerConfig().Interval, cfg.Interval)
	assert.Equal(t, uint32(5), cfg.MaxRequests)
}
