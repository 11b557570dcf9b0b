package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/services"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// planningTranslation maps phase-intent classifier labels to canonical
// intents during planning and validation.
var planningTranslation = map[string]string{
	"select":              "SelectIntent",
	"cancel":              "CancelIntent",
	"restart":             "CancelIntent",
	"search":              "SearchIntent",
	"yes":                 "YesIntent",
	"no":                  "NoIntent",
	"repeat":              "RepeatIntent",
	"confused":            "ConfusedIntent",
	"show_more_results":   "MoreResultsIntent",
	"show_requirements":   "ShowRequirementsIntent",
	"show_more_details":   "ConfusedIntent",
	"next":                "NextIntent",
	"previous":            "PreviousIntent",
	"stop":                "StopIntent",
	"chit_chat":           "ChitChatIntent",
	"ASR_error":           "ASRErrorIntent",
	"answer_question":     "QuestionIntent",
	"inform_capabilities": "ConfusedIntent",
	"step_select":         "ASRErrorIntent",
	"pause":               "PauseIntent",
	"start_task":          "StartTaskIntent",
}

// executionTranslation differs where the same label means something else
// mid-task: selecting is step navigation, searching is cancelling out.
var executionTranslation = map[string]string{
	"select":              "GoToIntent",
	"cancel":              "CancelIntent",
	"restart":             "CancelIntent",
	"search":              "CancelIntent",
	"yes":                 "YesIntent",
	"no":                  "NoIntent",
	"repeat":              "RepeatIntent",
	"confused":            "ConfusedIntent",
	"show_more_results":   "DetailsIntent",
	"show_requirements":   "ShowRequirementsIntent",
	"show_more_details":   "DetailsIntent",
	"next":                "NextIntent",
	"previous":            "PreviousIntent",
	"stop":                "StopIntent",
	"chit_chat":           "ChitChatIntent",
	"ASR_error":           "ASRErrorIntent",
	"answer_question":     "QuestionIntent",
	"inform_capabilities": "ConfusedIntent",
	"step_select":         "GoToIntent",
	"pause":               "PauseIntent",
	"start_task":          "YesIntent",
}

// translateIntents fills in canonical intents for a turn that arrived with
// none, using the phase-intent classifier. It reports whether the turn now
// carries a usable intent; false means the caller should fall back to a
// not-understood response. Classifier failures degrade the same way.
func translateIntents(ctx context.Context, classifier services.PhaseIntentClassifier,
	s *session.Session, table map[string]string, logger *zap.Logger) (services.IntentClassification, bool) {

	turn := s.CurrentTurn()
	if len(turn.UserRequest.Intents) > 0 {
		return services.IntentClassification{}, true
	}

	classification, err := classifier.ClassifyIntent(ctx, s.Turns)
	if err != nil {
		logger.Warn("intent classification failed", zap.Error(err))
		return services.IntentClassification{}, false
	}
	if classification.Raw != "" {
		turn.UserRequest.Params = append(turn.UserRequest.Params, classification.Raw)
	}

	intent, ok := table[classification.Label]
	if !ok {
		logger.Debug("unmapped intent label", zap.String("label", classification.Label))
		return classification, false
	}
	turn.UserRequest.AppendIntents(intent)
	return classification, true
}

// notUnderstood builds the fallback response used when no canonical intent
// could be derived for the turn.
func notUnderstood(s *session.Session) *session.OutputInteraction {
	out := &session.OutputInteraction{SpeechText: pick(notUnderstoodResponses)}
	repeatScreen(s, out)
	return out
}
