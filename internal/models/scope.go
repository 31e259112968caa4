package models

import "strings"

// ScopeMode selects which rooms participate in a computation.
type ScopeMode string

const (
	ScopeActiveGroups   ScopeMode = "active_groups"
	ScopeExcludedGroups ScopeMode = "excluded_groups"
	ScopeAll            ScopeMode = "all"
)

// RoomScope is the allow/deny room configuration for a query. The allow set
// may contain room ids or room names; the deny set holds room names only.
type RoomScope struct {
	Mode           ScopeMode `json:"mode"`
	ActiveGroups   []string  `json:"active_groups,omitempty"`
	ExcludedGroups []string  `json:"excluded_groups,omitempty"`
}

// Resolve normalizes the scope per the precedence rule: a non-empty allow
// set forces active_groups and the deny set is ignored; otherwise a
// non-empty deny set means excluded_groups; otherwise all.
func (s RoomScope) Resolve() RoomScope {
	allow := cleanSet(s.ActiveGroups)
	deny := cleanSet(s.ExcludedGroups)
	if len(allow) > 0 {
		return RoomScope{Mode: ScopeActiveGroups, ActiveGroups: allow}
	}
	if len(deny) > 0 {
		return RoomScope{Mode: ScopeExcludedGroups, ExcludedGroups: deny}
	}
	return RoomScope{Mode: ScopeAll}
}

// Includes reports whether a room belongs to the resolved scope.
func (s RoomScope) Includes(roomID, roomName string) bool {
	resolved := s.Resolve()
	switch resolved.Mode {
	case ScopeActiveGroups:
		for _, entry := range resolved.ActiveGroups {
			if strings.EqualFold(entry, roomID) || strings.EqualFold(entry, roomName) {
				return true
			}
		}
		return false
	case ScopeExcludedGroups:
		for _, entry := range resolved.ExcludedGroups {
			if strings.EqualFold(entry, roomName) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func cleanSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
