package models

import "strings"

// Subject is the person the analytics are computed for. Name and aliases
// drive prompt personalization and mention checks.
type Subject struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// DisplayName falls back to a neutral pronoun when no name is configured.
func (s Subject) DisplayName() string {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return "you"
	}
	return name
}

// Possessive renders the English possessive of the display name.
func (s Subject) Possessive() string {
	name := s.DisplayName()
	if name == "you" {
		return "your"
	}
	if strings.HasSuffix(name, "s") || strings.HasSuffix(name, "S") {
		return name + "'"
	}
	return name + "'s"
}

// Mentioned reports whether the body names the subject directly, by name
// or by any alias.
func (s Subject) Mentioned(body string) bool {
	lower := strings.ToLower(body)
	candidates := append([]string{s.Name}, s.Aliases...)
	for _, candidate := range candidates {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" {
			continue
		}
		if strings.Contains(lower, candidate) {
			return true
		}
	}
	return false
}
