package safety

import "strings"

// personality answer buckets. Each known question maps to one of these.
var personalityAnswers = []string{
	"I can't reveal my name, but I'm happy to keep helping you.",
	"I live in the cloud, so that makes me cloudian.",
	"I don't have an opinion on that. I can help you with cooking and home improvement instead. Shall we resume?",
}

// personalityQuestions maps a lowercase question fragment to an answer
// bucket index.
var personalityQuestions = map[string]int{
	"what is your name":     0,
	"what's your name":      0,
	"who are you":           0,
	"who made you":          0,
	"where do you live":     1,
	"where are you from":    1,
	"what are you":          1,
	"are you a robot":       1,
	"are you human":         1,
	"what do you think of":  2,
	"what is your opinion":  2,
	"do you like":           2,
	"what is your favorite": 2,
}

// Personality answers off-topic "who are you" style questions. It returns
// the canned answer and true when the utterance is a personality question.
func Personality(utterance string) (string, bool) {
	lowered := strings.ToLower(utterance)
	for question, bucket := range personalityQuestions {
		if strings.Contains(lowered, question) {
			return personalityAnswers[bucket], true
		}
	}
	return "", false
}
