package sim

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/verte-zerg/clicksim/internal/model"
)

// Phase is the state of the simulation when a step was committed.
type Phase string

const (
	PhaseSeeding   Phase = "seeding"
	PhaseAdvancing Phase = "advancing"
	PhaseDone      Phase = "done"
)

// Step is reported to observers after every commit.
type Step struct {
	Phase       Phase
	Event       model.CostEvent
	Text        string
	TotalClicks int
}

// Observer receives committed steps in order.
type Observer interface {
	Observe(step Step)
}

type nopObserver struct{}

func (nopObserver) Observe(Step) {}

// LogObserver emits one debug record per step.
type LogObserver struct {
	Logger *slog.Logger
}

// Observe implements Observer.
func (o LogObserver) Observe(step Step) {
	o.Logger.Debug("simulation step",
		"phase", step.Phase,
		"kind", step.Event.Kind,
		"clicks", step.Event.Clicks,
		"total", step.TotalClicks,
		"added", strings.Join(step.Event.Tokens, ""),
		"text", step.Text,
	)
}

// TraceObserver writes a human readable line per step.
type TraceObserver struct {
	W io.Writer
}

var traceLabels = map[model.EventKind]string{
	model.InitialPhrase:                    "Initial Phrase",
	model.InitialFallback:                  "Initial Fallback",
	model.SentenceSuggestion:               "Sentence Suggestion",
	model.WordSuggestion:                   "Word Suggestion",
	model.WordSuggestionAfterPartialTyping: "Word After Typing",
	model.DirectPhoneticTyping:             "Direct Input",
}

// Observe implements Observer.
func (o TraceObserver) Observe(step Step) {
	label := traceLabels[step.Event.Kind]
	if label == "" {
		label = string(step.Event.Kind)
	}
	_, _ = fmt.Fprintf(o.W, "  [STATS] %-20s: clicks +%d -> %d (Added: '%s')\n",
		label, step.Event.Clicks, step.TotalClicks, strings.Join(step.Event.Tokens, ""))
}

// Observers fans a step out to several observers.
type Observers []Observer

// Observe implements Observer.
func (obs Observers) Observe(step Step) {
	for _, o := range obs {
		o.Observe(step)
	}
}
