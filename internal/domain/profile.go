package domain

import (
	"strings"
	"time"
)

// ProfileDocument is one business location. Reviews hang off it in the store
// keyed by (profile id, review id).
type ProfileDocument struct {
	ID                 string    `json:"businessProfileId"`
	Name               string    `json:"businessProfileName"`
	ExecutionTimestamp time.Time `json:"executionTimestamp"`
}

// ProfileRef identifies a profile across the mixed historical schemes:
// string ids, numeric ids (with or without leading zeros), and display
// names. All query sites match through it instead of ad hoc OR clauses.
type ProfileRef struct {
	raw       string
	canonical string
}

func NewProfileRef(s string) ProfileRef {
	raw := strings.TrimSpace(s)
	return ProfileRef{raw: raw, canonical: canonicalID(raw)}
}

// ParseProfileRef returns nil for empty or "all" selectors.
func ParseProfileRef(s string) *ProfileRef {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil
	}
	ref := NewProfileRef(s)
	return &ref
}

func (p ProfileRef) Raw() string       { return p.raw }
func (p ProfileRef) Canonical() string { return p.canonical }

// Matches reports whether the ref selects the profile with the given id and
// display name. Ids compare canonically, names case-insensitively.
func (p ProfileRef) Matches(id, name string) bool {
	if p.canonical != "" && p.canonical == canonicalID(id) {
		return true
	}
	return name != "" && strings.EqualFold(p.raw, name)
}

// canonicalID strips leading zeros from purely numeric identifiers so that
// "0042" and "42" select the same profile. Non-numeric ids pass through.
func canonicalID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return s
		}
	}
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
