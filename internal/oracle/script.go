package oracle

import (
	"context"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Script answers from a fixed table of responses, for reproducible runs.
type Script struct {
	responses map[scriptKey][]Candidate
}

type scriptKey struct {
	mode    Mode
	context string
}

type scriptFile struct {
	Response []struct {
		Mode       string   `toml:"mode"`
		Context    string   `toml:"context"`
		Candidates []string `toml:"candidates"`
	} `toml:"response"`
}

// NewScript returns an empty Script; use Add to register responses.
func NewScript() *Script {
	return &Script{responses: map[scriptKey][]Candidate{}}
}

// LoadScript reads [[response]] tables from a TOML file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var file scriptFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode script: %w", err)
	}
	s := NewScript()
	for i, r := range file.Response {
		mode, err := ParseMode(r.Mode)
		if err != nil {
			return nil, fmt.Errorf("response %d: %w", i+1, err)
		}
		s.Add(mode, r.Context, r.Candidates...)
	}
	return s, nil
}

// Add registers candidates for an exact context. Later calls append.
func (s *Script) Add(mode Mode, context string, candidates ...string) {
	key := scriptKey{mode: mode, context: context}
	for _, text := range candidates {
		s.responses[key] = append(s.responses[key], Candidate{Text: text})
	}
}

// Suggest returns the registered candidates for the context, if any.
func (s *Script) Suggest(_ context.Context, mode Mode, text string, count int) ([]Candidate, error) {
	return Limit(s.responses[scriptKey{mode: mode, context: text}], count), nil
}

// Name identifies the backend.
func (s *Script) Name() string {
	return "script"
}
