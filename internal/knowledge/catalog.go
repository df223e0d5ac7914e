// Package knowledge provides the compound knowledge base: an immutable
// catalog of interactions, contraindications and dosing boundaries, the
// loaders that build it and a holder that swaps catalog versions atomically.
package knowledge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/peptide-safety-engine/internal/domain"
)

// ErrInvalidCatalog is returned when catalog data fails validation.
var ErrInvalidCatalog = errors.New("invalid compound catalog")

// Catalog is an immutable compound knowledge base. It copies its input on
// construction and hands out copies, so no caller can mutate a catalog that
// other evaluations are reading.
type Catalog struct {
	version     string
	entries     map[string]domain.CompoundEntry
	index       map[string]string
	drugClasses map[string][]string
}

// NewCatalog validates and indexes compound entries. Identifiers, aliases
// and drug class names are normalized to trimmed lower case.
func NewCatalog(version string, entries []domain.CompoundEntry, drugClasses map[string][]string) (*Catalog, error) {
	c := &Catalog{
		version:     strings.TrimSpace(version),
		entries:     make(map[string]domain.CompoundEntry, len(entries)),
		index:       make(map[string]string, len(entries)),
		drugClasses: make(map[string][]string, len(drugClasses)),
	}
	if c.version == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidCatalog)
	}

	for i, entry := range entries {
		id := normalizeKey(entry.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: compound %d has no id", ErrInvalidCatalog, i)
		}
		if err := validateEntry(id, &entry); err != nil {
			return nil, err
		}

		clone := cloneEntry(entry)
		clone.ID = id
		for j, alias := range clone.Aliases {
			clone.Aliases[j] = normalizeKey(alias)
		}

		for _, key := range append([]string{id}, clone.Aliases...) {
			if key == "" {
				return nil, fmt.Errorf("%w: compound %q has an empty alias", ErrInvalidCatalog, id)
			}
			if owner, exists := c.index[key]; exists && owner != id {
				return nil, fmt.Errorf("%w: key %q is claimed by %q and %q", ErrInvalidCatalog, key, owner, id)
			}
			if _, exists := c.entries[key]; exists && key == id {
				return nil, fmt.Errorf("%w: duplicate compound %q", ErrInvalidCatalog, id)
			}
			c.index[key] = id
		}
		c.entries[id] = clone
	}

	for class, members := range drugClasses {
		key := normalizeKey(class)
		if key == "" {
			return nil, fmt.Errorf("%w: drug class with empty name", ErrInvalidCatalog)
		}
		normalized := make([]string, 0, len(members))
		for _, m := range members {
			if m = normalizeKey(m); m != "" {
				normalized = append(normalized, m)
			}
		}
		c.drugClasses[key] = append(c.drugClasses[key], normalized...)
	}

	return c, nil
}

func validateEntry(id string, entry *domain.CompoundEntry) error {
	for _, sev := range []domain.Severity{domain.SeverityCritical, domain.SeverityMajor, domain.SeverityModerate, domain.SeverityMinor} {
		for _, in := range entry.Interactions.BySeverity(sev) {
			if strings.TrimSpace(in.InteractingDrug) == "" {
				return fmt.Errorf("%w: compound %q has a %s interaction without interacting drug", ErrInvalidCatalog, id, sev)
			}
		}
	}
	for _, list := range [][]string{entry.Contraindications.Absolute, entry.Contraindications.Relative} {
		for _, ci := range list {
			if strings.TrimSpace(ci) == "" {
				return fmt.Errorf("%w: compound %q has an empty contraindication", ErrInvalidCatalog, id)
			}
		}
	}
	if b := entry.DosingBoundary; b != nil {
		if b.MinStandardDose < 0 || b.MaxStandardDose <= 0 || b.MinStandardDose > b.MaxStandardDose {
			return fmt.Errorf("%w: compound %q has dosing boundary [%g, %g]", ErrInvalidCatalog, id, b.MinStandardDose, b.MaxStandardDose)
		}
		if b.MaxWeeklyIncrease < 0 || b.MaxContinuousDurationWeeks < 0 {
			return fmt.Errorf("%w: compound %q has negative titration limits", ErrInvalidCatalog, id)
		}
	}
	return nil
}

// Lookup resolves a compound by id or alias.
func (c *Catalog) Lookup(compoundID string) (domain.CompoundEntry, bool) {
	id, ok := c.index[normalizeKey(compoundID)]
	if !ok {
		return domain.CompoundEntry{}, false
	}
	return cloneEntry(c.entries[id]), true
}

// DrugClassMembers returns the members of a drug class, or nil.
func (c *Catalog) DrugClassMembers(class string) []string {
	members, ok := c.drugClasses[normalizeKey(class)]
	if !ok {
		return nil
	}
	return append([]string(nil), members...)
}

// Version identifies the catalog data set.
func (c *Catalog) Version() string {
	return c.version
}

// CompoundIDs returns the canonical compound identifiers in sorted order.
func (c *Catalog) CompoundIDs() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns copies of every compound entry sorted by id.
func (c *Catalog) Entries() []domain.CompoundEntry {
	ids := c.CompoundIDs()
	out := make([]domain.CompoundEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneEntry(c.entries[id]))
	}
	return out
}

// DrugClasses returns a copy of the drug class table.
func (c *Catalog) DrugClasses() map[string][]string {
	out := make(map[string][]string, len(c.drugClasses))
	for k, v := range c.drugClasses {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Snapshot lets a fixed catalog serve as its own KnowledgeSource.
func (c *Catalog) Snapshot() domain.KnowledgeBase {
	return c
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func cloneEntry(e domain.CompoundEntry) domain.CompoundEntry {
	out := e
	out.Aliases = append([]string(nil), e.Aliases...)
	out.Interactions = domain.InteractionSet{
		Critical: append([]domain.Interaction(nil), e.Interactions.Critical...),
		Major:    append([]domain.Interaction(nil), e.Interactions.Major...),
		Moderate: append([]domain.Interaction(nil), e.Interactions.Moderate...),
		Minor:    append([]domain.Interaction(nil), e.Interactions.Minor...),
	}
	out.Contraindications = domain.Contraindications{
		Absolute: append([]string(nil), e.Contraindications.Absolute...),
		Relative: append([]string(nil), e.Contraindications.Relative...),
	}
	if e.DosingBoundary != nil {
		b := *e.DosingBoundary
		out.DosingBoundary = &b
	}
	return out
}
