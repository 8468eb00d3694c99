package cache

import "strings"

// EvictionPolicy names a cache eviction strategy.
type EvictionPolicy string

const (
	// PolicyNull leaves the choice to the provider (weighted LRU for the local provider).
	PolicyNull EvictionPolicy = "NULL"
	// PolicyLRU evicts the least recently used entries first.
	PolicyLRU EvictionPolicy = "LRU"
	// PolicyLFU evicts the least frequently used entries first.
	PolicyLFU EvictionPolicy = "LFU"
	// PolicyExpireAfterWrite drops entries a fixed time after insertion.
	PolicyExpireAfterWrite EvictionPolicy = "EXPIRE_AFTER_WRITE"
	// PolicyExpireAfterAccess drops entries a fixed time after their last read.
	PolicyExpireAfterAccess EvictionPolicy = "EXPIRE_AFTER_ACCESS"
)

// ParsePolicy maps a free-form policy name to a known policy. Matching is
// case-insensitive and ignores surrounding blanks; an empty name maps to
// PolicyNull. The boolean is false for unknown names.
func ParsePolicy(name string) (EvictionPolicy, bool) {
	switch p := EvictionPolicy(strings.ToUpper(strings.TrimSpace(name))); p {
	case "":
		return PolicyNull, true
	case PolicyNull, PolicyLRU, PolicyLFU, PolicyExpireAfterWrite, PolicyExpireAfterAccess:
		return p, true
	default:
		return PolicyNull, false
	}
}

// Expiring reports whether the policy bounds entry lifetime.
func (p EvictionPolicy) Expiring() bool {
	return p == PolicyExpireAfterWrite || p == PolicyExpireAfterAccess
}
