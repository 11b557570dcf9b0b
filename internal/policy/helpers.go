package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// closeSession marks the session closed and resets the per-conversation
// flags so the next conversation greets the user again.
func closeSession(s *session.Session, out *session.OutputInteraction) {
	s.State = session.StateClosed
	s.Greetings = false
	s.Task.State.RequirementsDisplayed = false
	s.Task.State.ValidationPage = 0
	out.CloseInteraction = true
}

// repeatScreen copies the previous turn's screen onto the response so the
// display does not go blank while the voice channel answers something else.
// Headless sessions never carry screens.
func repeatScreen(s *session.Session, out *session.OutputInteraction) {
	if s.Headless {
		return
	}
	if screen := s.LastScreen(); screen != nil {
		out.Screen = screen.Clone()
	}
}

var degreeRe = regexp.MustCompile(`(\d+) ?degrees F\b`)

// filterSpeech rewrites spellings the speech synthesizer mangles.
func filterSpeech(text string) string {
	text = degreeRe.ReplaceAllString(text, "${1}ºF")
	return strings.ReplaceAll(text, " degrees Fahrenheit", "ºF")
}

// requirementsNoun names the requirements list in the session's domain.
func requirementsNoun(d session.Domain) string {
	if d == session.DomainCooking {
		return "ingredients"
	}
	return "tools and materials"
}

// taskNoun names the task kind in the session's domain.
func taskNoun(d session.Domain) string {
	if d == session.DomainCooking {
		return "recipe"
	}
	return "task"
}

// speakList joins items into a spoken enumeration: "a, b and, finally, c".
func speakList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return fmt.Sprintf("%s and, finally, %s",
			strings.Join(items[:len(items)-1], ", "), items[len(items)-1])
	}
}

// ordinal renders 1 -> "1st", 2 -> "2nd", ...
func ordinal(n int) string {
	suffix := "th"
	if n < 11 || n > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// containsWord reports whether any whole token of the utterance equals the
// given word, or the phrase (multi-word) occurs as a substring.
func containsWord(utterance, wordOrPhrase string) bool {
	utterance = strings.ToLower(utterance)
	wordOrPhrase = strings.ToLower(wordOrPhrase)
	if strings.Contains(wordOrPhrase, " ") {
		return strings.Contains(utterance, wordOrPhrase)
	}
	for _, tok := range strings.Fields(utterance) {
		if strings.Trim(tok, ".,!?'\"") == wordOrPhrase {
			return true
		}
	}
	return false
}
