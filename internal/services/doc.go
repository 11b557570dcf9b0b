// Package services provides the typed clients for the independently
// deployed backend services the orchestrator calls: intent and domain
// classifiers, the taskmap searcher, the QA engines, answer-relevance
// scoring and the language-model generation services.
//
// Every call is a single round trip bounded by the caller's context
// deadline. Classifier-style services are plain JSON over HTTP; the
// generation services go through langchaingo so the provider is
// interchangeable. Callers are expected to treat every error here as
// recoverable and degrade to a fallback value.
package services
