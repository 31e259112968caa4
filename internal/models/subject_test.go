package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectDisplayName(t *testing.T) {
	assert.Equal(t, "you", Subject{}.DisplayName())
	assert.Equal(t, "Dana", Subject{Name: " Dana "}.DisplayName())
}

func TestSubjectPossessive(t *testing.T) {
	assert.Equal(t, "your", Subject{}.Possessive())
	assert.Equal(t, "Dana's", Subject{Name: "Dana"}.Possessive())
	assert.Equal(t, "Chris'", Subject{Name: "Chris"}.Possessive())
}

func TestSubjectMentioned(t *testing.T) {
	s := Subject{Name: "Dana", Aliases: []string{"dee"}}
	assert.True(t, s.Mentioned("ping Dana about this"))
	assert.True(t, s.Mentioned("maybe DEE knows"))
	assert.False(t, s.Mentioned("nobody in particular"))
	assert.False(t, Subject{}.Mentioned("anything"))
}
