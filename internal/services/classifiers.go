package services

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/taskbotd/internal/qa"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// Confidence is the coarse confidence level of a domain classification.
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// Labels the domain classifier emits. Only cooking and DIY are domains the
// assistant can serve; the rest exist so the domain policy can deflect them
// with topic-specific responses.
const (
	DomainLabelCooking   = "CookingDomain"
	DomainLabelDIY       = "DIYDomain"
	DomainLabelMedical   = "MedicalDomain"
	DomainLabelFinancial = "FinancialDomain"
	DomainLabelLegal     = "LegalDomain"
	DomainLabelUndefined = "UndefinedDomain"
)

// DomainClassification is the result of classifying an utterance's topic.
type DomainClassification struct {
	Label      string     `json:"label"`
	Confidence Confidence `json:"confidence"`
}

// DomainClassifier decides which task domain an utterance belongs to.
type DomainClassifier interface {
	ClassifyDomain(ctx context.Context, utterance string) (DomainClassification, error)
}

// IntentClassification is the phase-intent classifier's label for a turn,
// plus an optional step attribute for "go to step N" requests.
type IntentClassification struct {
	Label string `json:"label"`
	Step  int    `json:"step,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

// PhaseIntentClassifier labels the current turn with a phase-level intent
// ("select", "yes", "next", ...) given the full turn history.
type PhaseIntentClassifier interface {
	ClassifyIntent(ctx context.Context, turns []session.Turn) (IntentClassification, error)
}

// QuestionClassifier assigns a question type used for QA engine trust.
type QuestionClassifier interface {
	ClassifyQuestion(ctx context.Context, utterance string) (qa.QuestionType, error)
}

// DangerousChecker flags queries asking for tasks too dangerous to assist.
type DangerousChecker interface {
	IsDangerous(ctx context.Context, utterance string) (bool, error)
}

// ClassifierClient talks to the classifier backend over HTTP. It implements
// DomainClassifier, PhaseIntentClassifier, QuestionClassifier,
// DangerousChecker and qa.RelevanceScorer.
type ClassifierClient struct {
	httpBackend
}

// NewClassifierClient builds a classifier client for the given base URL.
func NewClassifierClient(baseURL string, timeout time.Duration) *ClassifierClient {
	return &ClassifierClient{httpBackend: newHTTPBackend(baseURL, timeout)}
}

type utteranceRequest struct {
	Text string `json:"text"`
}

func (c *ClassifierClient) ClassifyDomain(ctx context.Context, utterance string) (DomainClassification, error) {
	var out DomainClassification
	err := c.postJSON(ctx, "/v1/classify/domain", utteranceRequest{Text: utterance}, &out)
	return out, err
}

type intentRequest struct {
	Turns []session.Turn `json:"turns"`
}

func (c *ClassifierClient) ClassifyIntent(ctx context.Context, turns []session.Turn) (IntentClassification, error) {
	var out IntentClassification
	err := c.postJSON(ctx, "/v1/classify/intent", intentRequest{Turns: turns}, &out)
	return out, err
}

type questionClassification struct {
	Type qa.QuestionType `json:"type"`
}

func (c *ClassifierClient) ClassifyQuestion(ctx context.Context, utterance string) (qa.QuestionType, error) {
	var out questionClassification
	if err := c.postJSON(ctx, "/v1/classify/question", utteranceRequest{Text: utterance}, &out); err != nil {
		return qa.QuestionGeneral, err
	}
	return out.Type, nil
}

type dangerousAssessment struct {
	Dangerous bool `json:"dangerous"`
}

func (c *ClassifierClient) IsDangerous(ctx context.Context, utterance string) (bool, error) {
	var out dangerousAssessment
	if err := c.postJSON(ctx, "/v1/check/dangerous", utteranceRequest{Text: utterance}, &out); err != nil {
		return false, err
	}
	return out.Dangerous, nil
}

type relevanceRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (c *ClassifierClient) AssessRelevance(ctx context.Context, question, answer string) (qa.RelevanceAssessment, error) {
	var out qa.RelevanceAssessment
	err := c.postJSON(ctx, "/v1/score/relevance", relevanceRequest{Question: question, Answer: answer}, &out)
	return out, err
}
