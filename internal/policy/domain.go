package policy

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskbotd/internal/services"
	"github.com/fyrsmithlabs/taskbotd/internal/session"
)

// domainRule maps a classified domain label to what the policy does with
// it: redirect into planning, or deflect with escalating responses indexed
// by the session's no-match counter.
type domainRule struct {
	redirect  bool
	domain    session.Domain
	responses [3][]string
}

// domainRulebook keys rules by classifier label and confidence ("high" or
// "low"). Low-confidence cooking and DIY still redirect; everything else at
// low confidence falls back to the undefined-domain deflections.
var domainRulebook = map[string]map[services.Confidence]domainRule{
	services.DomainLabelCooking: {
		services.ConfidenceHigh: {redirect: true, domain: session.DomainCooking},
		services.ConfidenceLow:  {redirect: true, domain: session.DomainCooking},
	},
	services.DomainLabelDIY: {
		services.ConfidenceHigh: {redirect: true, domain: session.DomainDIY},
		services.ConfidenceLow:  {redirect: true, domain: session.DomainDIY},
	},
	services.DomainLabelMedical: {
		services.ConfidenceHigh: {responses: [3][]string{medicalResponses, medicalResponses, medicalEscalated}},
		services.ConfidenceLow:  {responses: [3][]string{undefinedDomainResponses, undefinedDomainResponses, undefinedDomainEscalated}},
	},
	services.DomainLabelFinancial: {
		services.ConfidenceHigh: {responses: [3][]string{financialResponses, financialResponses, financialEscalated}},
		services.ConfidenceLow:  {responses: [3][]string{undefinedDomainResponses, undefinedDomainResponses, undefinedDomainEscalated}},
	},
	services.DomainLabelLegal: {
		services.ConfidenceHigh: {responses: [3][]string{legalResponses, legalResponses, legalEscalated}},
		services.ConfidenceLow:  {responses: [3][]string{undefinedDomainResponses, undefinedDomainResponses, undefinedDomainEscalated}},
	},
	services.DomainLabelUndefined: {
		services.ConfidenceHigh: {responses: [3][]string{introPrompts, undefinedDomainResponses, undefinedDomainEscalated}},
		services.ConfidenceLow:  {responses: [3][]string{introPrompts, undefinedDomainResponses, undefinedDomainEscalated}},
	},
}

// domainPolicy opens the conversation: it decides which domain the user
// wants help in, deflects topics the assistant cannot serve, and hands a
// confident match over to planning.
type domainPolicy struct {
	deps   Deps
	logger *zap.Logger
}

func newDomainPolicy(deps Deps, logger *zap.Logger) *domainPolicy {
	return &domainPolicy{deps: deps, logger: logger.Named("policy.domain")}
}

func (p *domainPolicy) step(ctx context.Context, s *session.Session) (Outcome, error) {
	turn := s.CurrentTurn()
	out := &session.OutputInteraction{}

	if turn.UserRequest.HasIntent("CancelIntent", "StopIntent") {
		turn.UserRequest.ConsumeIntents("CancelIntent")
		closeSession(s, out)
		return respond(out), nil
	}

	if dangerous, err := p.deps.Dangerous.IsDangerous(ctx, turn.UserRequest.Text); err != nil {
		p.logger.Warn("dangerous-query check failed", zap.Error(err))
	} else if dangerous {
		out.SpeechText = pick(dangerousTaskResponses)
		closeSession(s, out)
		return respond(out), nil
	}

	classification, err := p.deps.Domains.ClassifyDomain(ctx, turn.UserRequest.Text)
	if err != nil {
		p.logger.Warn("domain classification failed", zap.Error(err))
		classification = services.DomainClassification{
			Label:      services.DomainLabelUndefined,
			Confidence: services.ConfidenceLow,
		}
	}

	confidence := classification.Confidence
	// After a few low-confidence turns, stop second-guessing the classifier
	// and act on its best guess.
	if s.Task.State.DomainInteractionCounter > 2 {
		confidence = services.ConfidenceHigh
	}

	rules, ok := domainRulebook[classification.Label]
	if !ok {
		rules = domainRulebook[services.DomainLabelUndefined]
	}
	rule := rules[confidence]

	if rule.redirect {
		s.ErrorCounter.NoMatchCounter = 0
		s.Task.State.DomainInteractionCounter = 0
		s.Domain = rule.domain
		s.Task.Phase = session.PhasePlanning
		p.logger.Info("domain matched",
			zap.String("domain", string(rule.domain)),
			zap.String("confidence", string(classification.Confidence)))
		return reroute(), nil
	}

	out.SpeechText = pick(rule.responses[s.ErrorCounter.NoMatchCounter])
	if s.ErrorCounter.NoMatchCounter < 2 {
		s.ErrorCounter.NoMatchCounter++
	}

	if !s.Headless {
		out.Screen = homeScreen()
		if s.ErrorCounter.NoMatchCounter > 0 {
			out.Screen.Headline = fmt.Sprintf("I understood: %q", turn.UserRequest.Text)
		}
	}

	if classification.Confidence == services.ConfidenceLow {
		s.Task.State.DomainInteractionCounter++
	}
	return respond(out), nil
}

// homeScreen builds the two-domain landing carousel.
func homeScreen() *session.Screen {
	cooking := []string{"cooking-15", "cooking-11", "cooking-9", "cooking-7", "cooking-6", "cooking-1"}
	diy := []string{"diy-6", "diy-7", "diy-5", "diy-4", "diy-3", "diy-2"}
	hints := []string{"help me cook", "the best pasta dish", "What is your favourite dish?"}

	return &session.Screen{
		Format:   session.FormatImageCarousel,
		Headline: "Hi, I'm your task assistant!",
		Images: []session.Image{
			{
				Path:        fmt.Sprintf("https://taskbot-data.s3.amazonaws.com/images/%s.jpg", cooking[rand.Intn(len(cooking))]),
				Title:       "Cooking",
				Description: `"Creamy Zucchini Pasta"`,
			},
			{
				Path:        fmt.Sprintf("https://taskbot-data.s3.amazonaws.com/images/%s.jpg", diy[rand.Intn(len(diy))]),
				Title:       "Home Improvement",
				Description: `"How to paint a wall"`,
			},
		},
		OnClick:  []string{"Creamy Zucchini Pasta", "paint a wall"},
		HintText: hints[rand.Intn(len(hints))],
	}
}
