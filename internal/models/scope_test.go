package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrecedence(t *testing.T) {
	// Allow wins and the deny set is dropped.
	s := RoomScope{
		ActiveGroups:   []string{"general", " general ", ""},
		ExcludedGroups: []string{"offtopic"},
	}
	resolved := s.Resolve()
	assert.Equal(t, ScopeActiveGroups, resolved.Mode)
	assert.Equal(t, []string{"general"}, resolved.ActiveGroups)
	assert.Empty(t, resolved.ExcludedGroups)

	resolved = RoomScope{ExcludedGroups: []string{"offtopic"}}.Resolve()
	assert.Equal(t, ScopeExcludedGroups, resolved.Mode)

	resolved = RoomScope{}.Resolve()
	assert.Equal(t, ScopeAll, resolved.Mode)
}

func TestIncludesAllowMode(t *testing.T) {
	s := RoomScope{ActiveGroups: []string{"!room:id", "Dev Chat"}}
	assert.True(t, s.Includes("!room:id", "whatever"))
	assert.True(t, s.Includes("other", "dev chat"))
	assert.False(t, s.Includes("other", "random"))
}

func TestIncludesDenyMode(t *testing.T) {
	s := RoomScope{ExcludedGroups: []string{"OffTopic"}}
	assert.False(t, s.Includes("id1", "offtopic"))
	assert.True(t, s.Includes("id2", "general"))
}

func TestIncludesAllMode(t *testing.T) {
	assert.True(t, RoomScope{}.Includes("any", "room"))
}
