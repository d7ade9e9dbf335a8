package retrieval

import (
	"time"

	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"
)

// Visibility is the opaque tenant predicate supplied by the access-control
// layer. The engine never interprets it; storage ANDs the fragment into every
// candidate-selection query.
type Visibility struct {
	Fragment string
	Args     []any
}

// IsZero reports whether no visibility predicate was supplied
func (v Visibility) IsZero() bool {
	return v.Fragment == ""
}

// Filter is the shared pre-filter every retriever applies before its ranking
// step. All dimensions combine with AND; the predicate is pushed into
// candidate selection so top-k always means k matching rows.
type Filter struct {
	Tags        []string
	DateFrom    *time.Time
	DateTo      *time.Time
	SourceTypes []valueobjects.SourceType
	Sectors     []valueobjects.Sector
	Visibility  Visibility
}

// Validate rejects contradictory filters before any retriever runs
func (f Filter) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return pkgerrors.NewValidationError("date_from must not be after date_to")
	}
	return nil
}

// AllowsSourceType reports whether the source-type dimension admits units of
// the given type. An empty dimension admits everything.
func (f Filter) AllowsSourceType(st valueobjects.SourceType) bool {
	if len(f.SourceTypes) == 0 {
		return true
	}
	for _, s := range f.SourceTypes {
		if s == st {
			return true
		}
	}
	return false
}

// IsZero reports whether the filter constrains nothing
func (f Filter) IsZero() bool {
	return len(f.Tags) == 0 &&
		f.DateFrom == nil && f.DateTo == nil &&
		len(f.SourceTypes) == 0 && len(f.Sectors) == 0 &&
		f.Visibility.IsZero()
}

// Matches evaluates the filter against a memory unit in process. Storage
// implementations push the same semantics into SQL; this form backs the
// in-memory fakes and keeps both evaluations comparable in tests.
func (f Filter) Matches(unit MemoryView) bool {
	if unit.Deleted {
		return false
	}
	for _, want := range f.Tags {
		found := false
		for _, have := range unit.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != nil && unit.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && unit.CreatedAt.After(*f.DateTo) {
		return false
	}
	if !f.AllowsSourceType(unit.SourceType) {
		return false
	}
	if len(f.Sectors) > 0 {
		found := false
		for _, s := range f.Sectors {
			if s == unit.Sector {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MemoryView is the minimal projection of a memory unit the filter needs
type MemoryView struct {
	Tags       []string
	CreatedAt  time.Time
	SourceType valueobjects.SourceType
	Sector     valueobjects.Sector
	Deleted    bool
}
