package sim

import (
	"context"
	"fmt"
	"strings"

	"github.com/verte-zerg/clicksim/internal/model"
	"github.com/verte-zerg/clicksim/internal/oracle"
)

// FallbackInput describes the token a fallback has to commit.
type FallbackInput struct {
	Token   string
	Reading string
	// Context renders the committed text followed by partially typed input.
	Context func(scratch string) string
	// Suggest queries word continuations; oracle failures yield no candidates.
	Suggest func(ctx context.Context, text string) ([]oracle.Candidate, error)
}

// Fallback commits the next target token when no suggestion applies.
type Fallback interface {
	Name() string
	Enter(ctx context.Context, in FallbackInput) (model.CostEvent, error)
}

// ParseFallback returns the policy registered under name.
func ParseFallback(name string) (Fallback, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "phonetic":
		return PhoneticFallback{}, nil
	case "flat":
		return FlatFallback{Cost: DefaultFlatCost}, nil
	default:
		return nil, fmt.Errorf("unknown fallback %q (available: phonetic, flat)", name)
	}
}

// PhoneticFallback types the token's reading one character at a time and
// selects the token as soon as a word suggestion offers it.
type PhoneticFallback struct{}

// Name implements Fallback.
func (PhoneticFallback) Name() string { return "phonetic" }

// Enter implements Fallback. The oracle is consulted after every character,
// including the last; a hit on the full reading still counts as a word
// selection.
func (PhoneticFallback) Enter(ctx context.Context, in FallbackInput) (model.CostEvent, error) {
	reading := []rune(in.Reading)
	if len(reading) == 0 {
		return model.CostEvent{Kind: model.DirectPhoneticTyping, Clicks: 1, Tokens: []string{in.Token}}, nil
	}
	for typed := 1; typed <= len(reading); typed++ {
		cands, err := in.Suggest(ctx, in.Context(string(reading[:typed])))
		if err != nil {
			return model.CostEvent{}, err
		}
		for _, c := range cands {
			if c.Text == in.Token {
				return model.CostEvent{
					Kind:   model.WordSuggestionAfterPartialTyping,
					Clicks: typed + selectionCost,
					Tokens: []string{in.Token},
					Typed:  typed,
				}, nil
			}
		}
	}
	return model.CostEvent{Kind: model.DirectPhoneticTyping, Clicks: len(reading), Tokens: []string{in.Token}}, nil
}

// DefaultFlatCost is the per-token cost of the legacy flat fallback.
const DefaultFlatCost = 2

// FlatFallback commits the whole token at a fixed cost without typing its
// reading. It reproduces the older, coarser cost model.
type FlatFallback struct {
	Cost int
}

// Name implements Fallback.
func (FlatFallback) Name() string { return "flat" }

// Enter implements Fallback.
func (f FlatFallback) Enter(_ context.Context, in FallbackInput) (model.CostEvent, error) {
	return model.CostEvent{Kind: model.DirectPhoneticTyping, Clicks: f.Cost, Tokens: []string{in.Token}}, nil
}
