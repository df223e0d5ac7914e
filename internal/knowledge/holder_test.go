package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/domain"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func versioned(t *testing.T, version string) *Catalog {
	t.Helper()
	c, err := NewCatalog(version, sampleEntries(), nil)
	require.NoError(t, err)
	return c
}

func TestHolder_Swap(t *testing.T) {
	v1, v2 := versioned(t, "v1"), versioned(t, "v2")
	h, err := NewHolder(v1, quietLogger())
	require.NoError(t, err)

	snapshot := h.Snapshot()
	prev, err := h.Swap(v2)
	require.NoError(t, err)

	assert.Same(t, v1, prev)
	assert.Equal(t, "v1", snapshot.Version(), "an existing snapshot keeps its version")
	assert.Equal(t, "v2", h.Snapshot().Version())

	_, err = h.Swap(nil)
	assert.Error(t, err)
}

func TestNewHolder_RequiresCatalog(t *testing.T) {
	_, err := NewHolder(nil, quietLogger())
	assert.Error(t, err)
}

func TestHolder_Reload(t *testing.T) {
	h, err := NewHolder(versioned(t, "v1"), quietLogger())
	require.NoError(t, err)
	ctx := context.Background()

	failing := func(context.Context) (*Catalog, error) { return nil, errors.New("source down") }
	assert.Error(t, h.Reload(ctx, failing))
	assert.Equal(t, "v1", h.Catalog().Version())

	same := versioned(t, "v1")
	require.NoError(t, h.Reload(ctx, func(context.Context) (*Catalog, error) { return same, nil }))
	assert.NotSame(t, same, h.Catalog(), "an unchanged version is not swapped")

	require.NoError(t, h.Reload(ctx, func(context.Context) (*Catalog, error) { return versioned(t, "v2"), nil }))
	assert.Equal(t, "v2", h.Catalog().Version())
}

func TestHolder_ReloadEditedCatalogWithSameVersion(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	h, err := NewHolder(versioned(t, "v1"), logger)
	require.NoError(t, err)

	entries := sampleEntries()
	entries[0].DosingBoundary.MaxStandardDose = 300
	edited, err := NewCatalog("v1", entries, nil)
	require.NoError(t, err)

	require.NoError(t, h.Reload(context.Background(), func(context.Context) (*Catalog, error) { return edited, nil }))

	assert.Same(t, edited, h.Catalog())
	entry, ok := h.Snapshot().Lookup("bpc157")
	require.True(t, ok)
	assert.Equal(t, 300.0, entry.DosingBoundary.MaxStandardDose)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Compound catalog content changed without a version bump" {
			warned = true
			assert.Equal(t, "v1", e.Data["version"])
		}
	}
	assert.True(t, warned)
}

func TestFingerprint(t *testing.T) {
	a, err := Fingerprint(versioned(t, "v1"))
	require.NoError(t, err)
	b, err := Fingerprint(versioned(t, "v1"))
	require.NoError(t, err)
	c, err := Fingerprint(versioned(t, "v2"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestHolder_Watch(t *testing.T) {
	h, err := NewHolder(versioned(t, "v1"), quietLogger())
	require.NoError(t, err)

	next := versioned(t, "v2")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Watch(ctx, 5*time.Millisecond, func(context.Context) (*Catalog, error) { return next, nil })
		close(done)
	}()

	assert.Eventually(t, func() bool { return h.Catalog().Version() == "v2" }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestHolder_ConcurrentReaders(t *testing.T) {
	h, err := NewHolder(versioned(t, "v0"), quietLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				var kb domain.KnowledgeBase = h.Snapshot()
				entry, ok := kb.Lookup("bpc157")
				if assert.True(t, ok) {
					assert.Equal(t, 500.0, entry.DosingBoundary.MaxStandardDose)
				}
			}
		}()
	}
	for i := 1; i <= 20; i++ {
		_, err := h.Swap(versioned(t, "v"+string(rune('0'+i%10))))
		require.NoError(t, err)
	}
	wg.Wait()
}
