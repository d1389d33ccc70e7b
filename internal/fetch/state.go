package fetch

import (
	"time"

	"monodash/internal/model"
)

// Phase is the lifecycle state of one dashboard section.
type Phase int

const (
	// PhaseLoading means a refresh is in flight and no result has
	// settled yet for the current generation.
	PhaseLoading Phase = iota

	// PhaseEmpty means the refresh settled with no items and no
	// total failure: either every source returned nothing, or no
	// source was usable at all.
	PhaseEmpty

	// PhaseError means every usable source failed. Partial failures
	// never produce this phase.
	PhaseError

	// PhaseData means at least one item is available.
	PhaseData
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseEmpty:
		return "empty"
	case PhaseError:
		return "error"
	case PhaseData:
		return "data"
	default:
		return "unknown"
	}
}

// SourceError records one source's failure within a refresh, for the
// status line and the persisted error log.
type SourceError struct {
	Source  string
	Message string
}

// SectionState is the authoritative render state of one section. Items are
// retained across a failed refresh so previously fetched (or cached) data
// stays on screen alongside the error.
type SectionState struct {
	Section model.Section
	Phase   Phase

	// Items is the sorted, merged item list. During PhaseLoading it
	// still holds the previous result; during PhaseError it holds
	// whatever data survives from before the failure.
	Items []model.Item

	// Errors lists the sources that failed in the last settled
	// refresh. Non-empty under PhaseData means a partial failure.
	Errors []SourceError

	// FromCache marks Items as loaded from the local cache rather
	// than a live fetch.
	FromCache bool

	// UpdatedAt is when Items last changed from a live fetch or a
	// cache seed.
	UpdatedAt time.Time
}

// Failed reports whether the named source failed in the last refresh.
func (s SectionState) Failed(name string) bool {
	for _, e := range s.Errors {
		if e.Source == name {
			return true
		}
	}
	return false
}

func copyState(s SectionState) SectionState {
	out := s
	out.Items = append([]model.Item(nil), s.Items...)
	out.Errors = append([]SourceError(nil), s.Errors...)
	return out
}
