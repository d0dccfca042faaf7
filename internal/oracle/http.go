package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint       = "http://127.0.0.1:5000/run-macro"
	DefaultModel          = "gemini-1.5-flash-002"
	DefaultWordMacro      = "WordGeneric20240628"
	DefaultTimeout        = 30 * time.Second
	maxResponseBytes      = 1 << 20
	retryBackoff          = 500 * time.Millisecond
	sentenceMacroJapanese = "SentenceJapanese20240628"
	sentenceMacroEnglish  = "SentenceEnglish20240703"
)

// DefaultSentenceMacro returns the sentence macro used for a language code.
func DefaultSentenceMacro(lang string) string {
	if strings.EqualFold(lang, "en") {
		return sentenceMacroEnglish
	}
	return sentenceMacroJapanese
}

// LanguageName maps a language code to the name expected by the macros.
func LanguageName(lang string) string {
	switch strings.ToLower(lang) {
	case "ja":
		return "Japanese"
	case "en":
		return "English"
	default:
		return lang
	}
}

// HTTPConfig configures the macro server client.
type HTTPConfig struct {
	Endpoint      string
	Language      string
	SentenceMacro string
	WordMacro     string
	Model         string
	Temperature   float64
	Timeout       time.Duration
	Retries       int
}

// HTTP queries a macro server that wraps a generative model.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
	logger *slog.Logger
}

type macroResponse struct {
	Messages []struct {
		Text *string `json:"text"`
	} `json:"messages"`
}

// NewHTTP returns a macro server client.
func NewHTTP(cfg HTTPConfig, logger *slog.Logger) *HTTP {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.WordMacro == "" {
		cfg.WordMacro = DefaultWordMacro
	}
	if cfg.SentenceMacro == "" {
		cfg.SentenceMacro = DefaultSentenceMacro(cfg.Language)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTP{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Name identifies the backend for caching and run records. Every setting
// that changes the answers is part of it, so cached answers never cross
// configurations.
func (h *HTTP) Name() string {
	return fmt.Sprintf("http:%s:%s:%s:%s:%s@%s",
		h.cfg.Model,
		strings.ToLower(h.cfg.Language),
		h.cfg.SentenceMacro,
		h.cfg.WordMacro,
		strconv.FormatFloat(h.cfg.Temperature, 'f', -1, 64),
		h.cfg.Endpoint,
	)
}

// Suggest posts one macro request, retrying transport failures.
func (h *HTTP) Suggest(ctx context.Context, mode Mode, text string, count int) ([]Candidate, error) {
	macroID := h.cfg.SentenceMacro
	if mode == Word {
		macroID = h.cfg.WordMacro
	}
	form, err := h.form(macroID, text, count)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= h.cfg.Retries; attempt++ {
		if attempt > 0 {
			h.logger.Debug("retrying oracle request", "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		candidates, err := h.post(ctx, form)
		if err == nil {
			return Limit(candidates, count), nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (h *HTTP) form(macroID, text string, count int) (url.Values, error) {
	inputs, err := json.Marshal(map[string]string{
		"language": LanguageName(h.cfg.Language),
		"num":      strconv.Itoa(count),
		"text":     text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode user inputs: %w", err)
	}
	form := url.Values{}
	form.Set("id", macroID)
	form.Set("userInputs", string(inputs))
	form.Set("temperature", strconv.FormatFloat(h.cfg.Temperature, 'f', -1, 64))
	form.Set("model_id", h.cfg.Model)
	return form, nil
}

func (h *HTTP) post(ctx context.Context, form url.Values) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}
	return DecodeMacroResponse(body)
}

// DecodeMacroResponse parses a {"messages":[{"text": ...}]} payload.
// An empty messages array is a valid empty result.
func DecodeMacroResponse(body []byte) ([]Candidate, error) {
	var payload macroResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if payload.Messages == nil {
		return nil, fmt.Errorf("%w: missing messages", ErrMalformed)
	}
	if len(payload.Messages) == 0 {
		return nil, nil
	}
	if payload.Messages[0].Text == nil {
		return nil, fmt.Errorf("%w: missing message text", ErrMalformed)
	}
	return ParseNumberedList(*payload.Messages[0].Text), nil
}
