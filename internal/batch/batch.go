// Package batch drives the simulator over a stream of target sentences.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/clicksim/internal/model"
	"github.com/verte-zerg/clicksim/internal/stats"
)

const maxLineBytes = 1 << 20

// Simulator runs one target sentence.
type Simulator interface {
	Run(ctx context.Context, target string) (model.Result, error)
}

// Config controls a Runner.
type Config struct {
	// Workers above one simulate sentences concurrently.
	Workers int
	// Prompt, when set, is written to Out before each line is read.
	Prompt string
	// Out receives per-sentence results. Nil discards them.
	Out    io.Writer
	Render stats.RenderOptions
	Logger *slog.Logger
}

// Report is the outcome of a batch.
type Report struct {
	Aggregate stats.Aggregate
	Records   []model.SentenceRecord
}

// Runner simulates every non-blank input line. A failing line is recorded
// and skipped; only context cancellation stops the batch.
type Runner struct {
	sim Simulator
	cfg Config
}

// New returns a Runner for sim.
func New(sim Simulator, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{sim: sim, cfg: cfg}
}

type line struct {
	number int
	target string
}

// Run reads targets from in until EOF.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Report, error) {
	if r.cfg.Workers > 1 {
		return r.runParallel(ctx, in)
	}
	return r.runSequential(ctx, in)
}

func (r *Runner) runSequential(ctx context.Context, in io.Reader) (Report, error) {
	var report Report
	scanner := newScanner(in)
	number := 0
	for {
		r.prompt()
		if !scanner.Scan() {
			break
		}
		number++
		target, ok := targetLine(scanner.Text())
		if !ok {
			continue
		}
		rec, err := r.simulate(ctx, line{number: number, target: target})
		if err != nil {
			return report, err
		}
		if err := r.reduce(&report, rec); err != nil {
			return report, err
		}
	}
	if err := scanner.Err(); err != nil {
		return report, fmt.Errorf("failed to read input: %w", err)
	}
	return report, nil
}

func (r *Runner) runParallel(ctx context.Context, in io.Reader) (Report, error) {
	lines, err := readLines(in)
	if err != nil {
		return Report{}, err
	}

	records := make([]model.SentenceRecord, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, ln := range lines {
		g.Go(func() error {
			rec, err := r.simulate(gctx, ln)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var report Report
	for _, rec := range records {
		if err := r.reduce(&report, rec); err != nil {
			return report, err
		}
	}
	return report, nil
}

// simulate isolates per-sentence failures. The returned error is only set
// when the context ended.
func (r *Runner) simulate(ctx context.Context, ln line) (model.SentenceRecord, error) {
	rec := model.SentenceRecord{Line: ln.number, Target: ln.target}
	res, err := r.sim.Run(ctx, ln.target)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return rec, err
		}
		r.cfg.Logger.Warn("sentence failed", "line", ln.number, "target", ln.target, "err", err)
		rec.Status = model.StatusFailed
		rec.Err = err.Error()
		return rec, nil
	}
	rec.Status = model.StatusOK
	rec.Result = res
	return rec, nil
}

func (r *Runner) reduce(report *Report, rec model.SentenceRecord) error {
	if rec.Status == model.StatusFailed {
		report.Aggregate.AddFailure()
	} else {
		report.Aggregate.Add(rec.Result)
	}
	report.Records = append(report.Records, rec)
	if err := stats.RenderResult(r.cfg.Out, rec, r.cfg.Render); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

func (r *Runner) prompt() {
	if r.cfg.Prompt == "" {
		return
	}
	if _, err := io.WriteString(r.cfg.Out, r.cfg.Prompt); err != nil {
		// Best-effort prompt.
		_ = err
	}
}

func readLines(in io.Reader) ([]line, error) {
	scanner := newScanner(in)
	var lines []line
	number := 0
	for scanner.Scan() {
		number++
		target, ok := targetLine(scanner.Text())
		if !ok {
			continue
		}
		lines = append(lines, line{number: number, target: target})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}

// targetLine keeps the line as written apart from a CRLF terminator and
// reports whether it holds anything to simulate.
func targetLine(text string) (string, bool) {
	target := strings.TrimSuffix(text, "\r")
	return target, strings.TrimSpace(target) != ""
}

func newScanner(in io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}
