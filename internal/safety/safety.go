// Package safety implements the pre-turn safety gate: phrase-list checks
// for privacy, sensitivity, offensive speech and suicide signals, plus the
// personality question matcher.
//
// The checks are deliberately simple and total: any utterance produces
// exactly one assessment, and an empty utterance is always safe.
package safety

import (
	"strings"
	"sync"
)

// Category names one safety check.
type Category string

const (
	CategoryPrivacy     Category = "privacy"
	CategorySensitivity Category = "sensitivity"
	CategoryOffensive   Category = "offensive"
	CategorySuicide     Category = "suicide"
)

// Assessment is the outcome of running all checks on one utterance. A zero
// Assessment means the utterance passed every check.
type Assessment struct {
	PrivacyViolation     bool
	SensitivityViolation bool
	Offensive            bool
	Suicide              bool
}

// Safe reports whether no check flagged the utterance.
func (a Assessment) Safe() bool {
	return !a.PrivacyViolation && !a.SensitivityViolation && !a.Offensive && !a.Suicide
}

// Checker runs the phrase-list safety checks. Lists are swappable at
// runtime; see Watch.
type Checker struct {
	mu    sync.RWMutex
	lists map[Category][]string
}

// NewChecker builds a checker with the compiled-in phrase lists.
func NewChecker() *Checker {
	return &Checker{lists: defaultLists()}
}

// SetList replaces the phrase list for one category.
func (c *Checker) SetList(cat Category, phrases []string) {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	c.mu.Lock()
	c.lists[cat] = normalized
	c.mu.Unlock()
}

// Check runs every safety check on the utterance. Empty input passes all
// checks so the gate never blocks silent turns.
func (c *Checker) Check(utterance string) Assessment {
	if strings.TrimSpace(utterance) == "" {
		return Assessment{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return Assessment{
		PrivacyViolation:     matchList(utterance, c.lists[CategoryPrivacy]),
		SensitivityViolation: matchList(utterance, c.lists[CategorySensitivity]),
		Offensive:            matchList(utterance, c.lists[CategoryOffensive]),
		Suicide:              matchList(utterance, c.lists[CategorySuicide]),
	}
}

// matchList matches single-word entries against whole tokens and multi-word
// entries as substrings, the same way the stop-phrase matcher works.
func matchList(utterance string, phrases []string) bool {
	lowered := strings.ToLower(utterance)
	var tokens []string

	for _, phrase := range phrases {
		if strings.ContainsRune(phrase, ' ') {
			if strings.Contains(lowered, phrase) {
				return true
			}
			continue
		}
		if tokens == nil {
			tokens = strings.Fields(lowered)
		}
		for _, tok := range tokens {
			if strings.Trim(tok, ".,!?'\"") == phrase {
				return true
			}
		}
	}
	return false
}
