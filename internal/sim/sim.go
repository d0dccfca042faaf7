// Package sim replays how a user would enter a target sentence with the help
// of initial phrases, sentence and word suggestions, and phonetic typing.
//
// A run starts by seeding the typed tokens from an initial phrase (or the
// first target token), then advances until the typed tokens equal the
// target. Each step tries, in order: a sentence suggestion, a word
// suggestion, and the configured Fallback. Every committed step is a
// model.CostEvent and the typed tokens only ever grow along the target.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/verte-zerg/clicksim/internal/model"
	"github.com/verte-zerg/clicksim/internal/oracle"
	"github.com/verte-zerg/clicksim/internal/phrase"
	"github.com/verte-zerg/clicksim/internal/tokenize"
)

const (
	DefaultSentenceCount = 5
	DefaultSentenceKeep  = 2
	DefaultWordCount     = 5

	initialFallbackCost = 2
	selectionCost       = 1
)

var (
	// ErrStuck reports a step in which no strategy committed any token.
	ErrStuck = errors.New("simulation stuck")
	// ErrInconsistent reports typed tokens that diverged from the target.
	ErrInconsistent = errors.New("typed tokens inconsistent with target")
)

// Options sizes the oracle queries.
type Options struct {
	// SentenceCount is how many sentence continuations are requested.
	SentenceCount int
	// SentenceKeep is how many of them the user is shown.
	SentenceKeep int
	// WordCount is how many word continuations are requested.
	WordCount int
}

// DefaultOptions mirrors the suggestion panel of the assistant.
func DefaultOptions() Options {
	return Options{
		SentenceCount: DefaultSentenceCount,
		SentenceKeep:  DefaultSentenceKeep,
		WordCount:     DefaultWordCount,
	}
}

// Validate rejects counts that would disable a strategy by accident.
func (o Options) Validate() error {
	if o.SentenceCount <= 0 {
		return fmt.Errorf("sentence count must be > 0")
	}
	if o.SentenceKeep <= 0 || o.SentenceKeep > o.SentenceCount {
		return fmt.Errorf("sentence keep must be between 1 and sentence count")
	}
	if o.WordCount <= 0 {
		return fmt.Errorf("word count must be > 0")
	}
	return nil
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithOptions overrides the oracle query sizes.
func WithOptions(opts Options) Option {
	return func(s *Simulator) { s.opts = opts }
}

// WithFallback selects the policy used when no suggestion applies.
func WithFallback(f Fallback) Option {
	return func(s *Simulator) { s.fallback = f }
}

// WithObserver registers an observer for committed steps.
func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observer = o }
}

// WithLogger sets the logger for degraded conditions.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// Simulator holds the collaborators of a run. It keeps no per-run state, so
// one Simulator may run several targets concurrently when its tokenizer and
// oracle allow it.
type Simulator struct {
	tok      tokenize.Tokenizer
	orc      oracle.Oracle
	phrases  *phrase.Matcher
	fallback Fallback
	observer Observer
	logger   *slog.Logger
	opts     Options
}

// New returns a Simulator using the phonetic fallback and default options.
func New(tok tokenize.Tokenizer, orc oracle.Oracle, phrases *phrase.Matcher, opts ...Option) *Simulator {
	s := &Simulator{
		tok:      tok,
		orc:      orc,
		phrases:  phrases,
		fallback: PhoneticFallback{},
		observer: nopObserver{},
		logger:   slog.New(slog.DiscardHandler),
		opts:     DefaultOptions(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.phrases == nil {
		s.phrases = phrase.NewMatcher(tok, nil)
	}
	return s
}

// FallbackName reports the configured fallback policy.
func (s *Simulator) FallbackName() string {
	return s.fallback.Name()
}

// run is the mutable state of one simulation.
type run struct {
	target []string
	typed  []string
	result model.Result
}

func (r *run) done() bool {
	return tokenize.Equal(r.typed, r.target)
}

// Run simulates entering target and returns its cost breakdown. Oracle
// failures count as empty suggestions; only context cancellation and
// invariant violations are returned as errors.
func (s *Simulator) Run(ctx context.Context, target string) (model.Result, error) {
	r := &run{result: model.Result{Target: target}}
	r.target = s.segmentTarget(target)
	if len(r.target) == 0 {
		return r.result, nil
	}
	r.result.Tokens = append([]string(nil), r.target...)
	r.result.TargetLength = utf8.RuneCountInString(s.tok.Join(r.target))
	r.result.Baseline = s.Baseline(r.target)

	if err := s.commit(r, PhaseSeeding, s.seed(target, r.target)); err != nil {
		return model.Result{}, err
	}

	for !r.done() {
		if len(r.typed) >= len(r.target) {
			return model.Result{}, fmt.Errorf("%w: %d typed tokens for a %d token target", ErrInconsistent, len(r.typed), len(r.target))
		}
		ev, err := s.advance(ctx, r)
		if err != nil {
			return model.Result{}, err
		}
		if len(ev.Tokens) == 0 {
			return model.Result{}, fmt.Errorf("%w: at token %d of %d", ErrStuck, len(r.typed), len(r.target))
		}
		if err := s.commit(r, PhaseAdvancing, ev); err != nil {
			return model.Result{}, err
		}
	}
	return r.result, nil
}

// Baseline is the number of phonetic keystrokes needed to type tokens unaided.
func (s *Simulator) Baseline(tokens []string) int {
	total := 0
	for _, tok := range tokens {
		total += utf8.RuneCountInString(s.tok.Reading(tok))
	}
	return total
}

func (s *Simulator) segmentTarget(target string) []string {
	if target == "" {
		return nil
	}
	tokens := s.tok.Segment(target)
	if len(tokens) == 0 {
		tokens = tokenize.Characters(target)
		if len(tokens) > 0 {
			s.logger.Warn("tokenizer returned no tokens; using characters", "target", target)
		}
	}
	return tokens
}

func (s *Simulator) seed(target string, targetTokens []string) model.CostEvent {
	if m, ok := s.phrases.Match(target, targetTokens); ok {
		return model.CostEvent{Kind: model.InitialPhrase, Clicks: phrase.Cost, Tokens: m.Tokens}
	}
	return model.CostEvent{Kind: model.InitialFallback, Clicks: initialFallbackCost, Tokens: []string{targetTokens[0]}}
}

func (s *Simulator) advance(ctx context.Context, r *run) (model.CostEvent, error) {
	ev, ok, err := s.sentenceStep(ctx, r)
	if err != nil || ok {
		return ev, err
	}
	ev, ok, err = s.wordStep(ctx, r)
	if err != nil || ok {
		return ev, err
	}
	next := r.target[len(r.typed)]
	return s.fallback.Enter(ctx, FallbackInput{
		Token:   next,
		Reading: s.tok.Reading(next),
		Context: func(scratch string) string {
			return s.tok.Join(append(append([]string(nil), r.typed...), scratch))
		},
		Suggest: func(ctx context.Context, text string) ([]oracle.Candidate, error) {
			return s.suggest(ctx, oracle.Word, text, s.opts.WordCount)
		},
	})
}

// sentenceStep accepts the candidate sharing the longest token prefix with
// the target, provided it extends what is already typed.
func (s *Simulator) sentenceStep(ctx context.Context, r *run) (model.CostEvent, bool, error) {
	cands, err := s.suggest(ctx, oracle.Sentence, s.tok.Join(r.typed), s.opts.SentenceCount)
	if err != nil {
		return model.CostEvent{}, false, err
	}
	cands = oracle.Limit(cands, s.opts.SentenceKeep)

	var selected []string
	longest := len(r.typed)
	for _, c := range cands {
		prefix := tokenize.CommonPrefix(r.target, s.tok.Segment(c.Text))
		if len(prefix) > longest {
			selected = prefix
			longest = len(prefix)
		}
	}
	if selected == nil {
		return model.CostEvent{}, false, nil
	}
	added := append([]string(nil), selected[len(r.typed):]...)
	return model.CostEvent{Kind: model.SentenceSuggestion, Clicks: selectionCost, Tokens: added}, true, nil
}

// wordStep accepts the first candidate whose tokens land exactly on the
// next slice of the target.
func (s *Simulator) wordStep(ctx context.Context, r *run) (model.CostEvent, bool, error) {
	cands, err := s.suggest(ctx, oracle.Word, s.tok.Join(r.typed), s.opts.WordCount)
	if err != nil {
		return model.CostEvent{}, false, err
	}
	start := len(r.typed)
	for _, c := range cands {
		tokens := s.tok.Segment(c.Text)
		if len(tokens) == 0 {
			continue
		}
		end := start + len(tokens)
		if end > len(r.target) {
			continue
		}
		if tokenize.Equal(r.target[start:end], tokens) {
			return model.CostEvent{Kind: model.WordSuggestion, Clicks: selectionCost, Tokens: tokens}, true, nil
		}
	}
	return model.CostEvent{}, false, nil
}

// suggest shields the state machine from oracle failures.
func (s *Simulator) suggest(ctx context.Context, mode oracle.Mode, text string, count int) ([]oracle.Candidate, error) {
	cands, err := s.orc.Suggest(ctx, mode, text, count)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Warn("oracle call failed; treating as no candidates", "mode", mode, "context", text, "err", err)
		return nil, nil
	}
	return oracle.Limit(cands, count), nil
}

func (s *Simulator) commit(r *run, phase Phase, ev model.CostEvent) error {
	typed := append(append([]string(nil), r.typed...), ev.Tokens...)
	if !tokenize.HasPrefix(r.target, typed) {
		return fmt.Errorf("%w: %s step committed %q", ErrInconsistent, ev.Kind, ev.Tokens)
	}
	r.typed = typed
	r.result.Tally(ev)
	if r.done() {
		phase = PhaseDone
	}
	s.observer.Observe(Step{
		Phase:       phase,
		Event:       ev,
		Text:        s.tok.Join(r.typed),
		TotalClicks: r.result.Clicks,
	})
	return nil
}
