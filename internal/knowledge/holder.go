package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peptide-safety-engine/internal/domain"
)

// Holder publishes the current catalog. Readers take a snapshot per
// evaluation; a reload replaces the pointer and never touches a catalog
// already handed out.
type Holder struct {
	current atomic.Pointer[Catalog]
	logger  *logrus.Logger
}

// NewHolder creates a holder serving initial.
func NewHolder(initial *Catalog, logger *logrus.Logger) (*Holder, error) {
	if initial == nil {
		return nil, errors.New("initial catalog is required")
	}
	h := &Holder{logger: logger}
	h.current.Store(initial)
	return h, nil
}

// Snapshot returns the catalog current at the time of the call.
func (h *Holder) Snapshot() domain.KnowledgeBase {
	return h.current.Load()
}

// Catalog returns the current catalog.
func (h *Holder) Catalog() *Catalog {
	return h.current.Load()
}

// Swap installs next and returns the catalog it replaced.
func (h *Holder) Swap(next *Catalog) (*Catalog, error) {
	if next == nil {
		return nil, errors.New("catalog is required")
	}
	prev := h.current.Swap(next)

	h.logger.WithFields(logrus.Fields{
		"previous_version": prev.Version(),
		"version":          next.Version(),
		"compounds":        len(next.CompoundIDs()),
	}).Info("Compound catalog swapped")

	return prev, nil
}

// Reload loads a fresh catalog and swaps it in. A failed load leaves the
// current catalog in place. A catalog keeping the current version is only
// swapped when its content differs, and that case is logged as a warning
// since results would report a version that no longer identifies the data.
func (h *Holder) Reload(ctx context.Context, load Loader) error {
	next, err := load(ctx)
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}

	current := h.Catalog()
	if next.Version() == current.Version() {
		changed, err := contentChanged(current, next)
		if err != nil {
			return fmt.Errorf("reloading catalog: %w", err)
		}
		if !changed {
			h.logger.WithField("version", next.Version()).Debug("Compound catalog unchanged")
			return nil
		}
		h.logger.WithField("version", next.Version()).
			Warn("Compound catalog content changed without a version bump")
	}
	_, err = h.Swap(next)
	return err
}

func contentChanged(current, next *Catalog) (bool, error) {
	a, err := Fingerprint(current)
	if err != nil {
		return false, err
	}
	b, err := Fingerprint(next)
	if err != nil {
		return false, err
	}
	return a != b, nil
}

// Watch reloads the catalog every interval until ctx is done.
func (h *Holder) Watch(ctx context.Context, interval time.Duration, load Loader) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Reload(ctx, load); err != nil {
				h.logger.WithError(err).Warn("Compound catalog reload failed, keeping current version")
			}
		}
	}
}
