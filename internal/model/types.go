// Package model defines shared data structures.
package model

import "time"

// EventKind identifies how a CostEvent committed its tokens.
type EventKind string

const (
	InitialPhrase                    EventKind = "initial-phrase"
	InitialFallback                  EventKind = "initial-fallback"
	SentenceSuggestion               EventKind = "sentence"
	WordSuggestion                   EventKind = "word"
	WordSuggestionAfterPartialTyping EventKind = "word-after-typing"
	DirectPhoneticTyping             EventKind = "direct"
)

// CostEvent is one committed step of a simulation.
type CostEvent struct {
	Kind   EventKind `json:"kind"`
	Clicks int       `json:"clicks"`
	Tokens []string  `json:"tokens"`
	// Typed is the number of reading characters entered before an
	// oracle hit. Only set for WordSuggestionAfterPartialTyping.
	Typed int `json:"typed,omitempty"`
}

// Result summarizes the simulation of one target sentence.
type Result struct {
	Target        string
	Tokens        []string
	Clicks        int
	SentenceCount int
	WordCount     int
	FallbackCount int
	TargetLength  int
	// Baseline is the phonetic keystroke count needed without any assistance.
	Baseline int
	Events   []CostEvent
}

// Tally adds the event to the result's counters.
func (r *Result) Tally(ev CostEvent) {
	r.Clicks += ev.Clicks
	switch ev.Kind {
	case SentenceSuggestion:
		r.SentenceCount++
	case WordSuggestion, WordSuggestionAfterPartialTyping:
		r.WordCount++
	case InitialFallback, DirectPhoneticTyping:
		r.FallbackCount++
	}
	r.Events = append(r.Events, ev)
}

// SentenceStatus reports whether a sentence was simulated to completion.
type SentenceStatus string

const (
	StatusOK     SentenceStatus = "ok"
	StatusFailed SentenceStatus = "failed"
)

// SentenceRecord is the outcome of one input line in a batch.
type SentenceRecord struct {
	Line   int
	Target string
	Status SentenceStatus
	Err    string
	Result Result
}

// RunRecord captures a completed batch run.
type RunRecord struct {
	ID            string
	StartedAt     time.Time
	EndedAt       time.Time
	Lang          string
	Oracle        string
	Fallback      string
	Lines         int
	Failed        int
	TargetLength  int
	Clicks        int
	SentenceCount int
	WordCount     int
	FallbackCount int
	Baseline      int
}

// RunFilter narrows the runs returned from history.
type RunFilter struct {
	Lang string
	Last int
}
