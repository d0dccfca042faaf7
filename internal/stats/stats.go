package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/clicksim/internal/model"
)

const (
	sparkChars      = " .:-=+*#%@"
	undefined       = "n/a"
	maxTargetWidth  = 40
	maxOracleWidth  = 32
	timeLayout      = "2006-01-02 15:04"
	defaultTrendWin = 3
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// RenderOptions controls terminal styling of reports.
type RenderOptions struct {
	Color bool
}

func (o RenderOptions) style(s lipgloss.Style, text string) string {
	if !o.Color {
		return text
	}
	return s.Render(text)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatRatio prints a derived value, or n/a when it is undefined.
func FormatRatio(v float64, ok bool) string {
	if !ok {
		return undefined
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatPercent prints a derived rate as a percentage, or n/a when it is
// undefined.
func FormatPercent(v float64, ok bool) string {
	if !ok {
		return undefined
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// RenderSummary prints the totals and derived rates of an aggregate.
func RenderSummary(w io.Writer, agg Aggregate, opts RenderOptions) error {
	lines := []string{
		opts.style(titleStyle, "Summary"),
		fmt.Sprintf("Lines: %d (failed: %d)", agg.Lines, agg.Failed),
		fmt.Sprintf("Target characters: %d", agg.TargetLength),
		fmt.Sprintf("Clicks: %d", agg.Clicks),
		fmt.Sprintf("Baseline keystrokes: %d", agg.Baseline),
		fmt.Sprintf("Selections: %d (sentence: %d, word: %d, fallback: %d)",
			agg.Selections(), agg.SentenceCount, agg.WordCount, agg.FallbackCount),
		fmt.Sprintf("Chars per click: %s", FormatRatio(agg.CharsPerClick())),
		fmt.Sprintf("Chars per selection: %s", FormatRatio(agg.CharsPerSelection())),
		fmt.Sprintf("Acceptance rate: %s", FormatPercent(agg.AcceptanceRate())),
		fmt.Sprintf("Keystroke savings: %s", FormatPercent(agg.KeystrokeSavings())),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderResult prints a one-line summary of a single sentence.
func RenderResult(w io.Writer, rec model.SentenceRecord, opts RenderOptions) error {
	if rec.Status == model.StatusFailed {
		_, err := fmt.Fprintf(w, "%s line %d: %s\n", opts.style(failedStyle, "FAILED"), rec.Line, rec.Err)
		return err
	}
	r := rec.Result
	var agg Aggregate
	agg.Add(r)
	_, err := fmt.Fprintf(w, "%s\n  clicks: %d  sentence: %d  word: %d  fallback: %d  length: %d  savings: %s\n",
		r.Target, r.Clicks, r.SentenceCount, r.WordCount, r.FallbackCount, r.TargetLength,
		FormatPercent(agg.KeystrokeSavings()))
	return err
}

// RenderSentences prints a per-sentence table.
func RenderSentences(w io.Writer, records []model.SentenceRecord, opts RenderOptions) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sentences found.")
		return err
	}
	if _, err := fmt.Fprintln(w, opts.style(titleStyle, "Sentences")); err != nil {
		return err
	}
	headers := []string{"Line", "Target", "Clicks", "Sent", "Word", "Fallback", "Length", "Baseline", "Savings"}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		if rec.Status == model.StatusFailed {
			rows = append(rows, []string{
				strconv.Itoa(rec.Line),
				truncate(rec.Target, maxTargetWidth),
				"failed: " + rec.Err,
			})
			continue
		}
		r := rec.Result
		var agg Aggregate
		agg.Add(r)
		rows = append(rows, []string{
			strconv.Itoa(rec.Line),
			truncate(rec.Target, maxTargetWidth),
			strconv.Itoa(r.Clicks),
			strconv.Itoa(r.SentenceCount),
			strconv.Itoa(r.WordCount),
			strconv.Itoa(r.FallbackCount),
			strconv.Itoa(r.TargetLength),
			strconv.Itoa(r.Baseline),
			FormatPercent(agg.KeystrokeSavings()),
		})
	}
	return writeTable(w, headers, rows, map[int]bool{0: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true}, opts)
}

// RenderRuns prints stored runs with a keystroke savings trend.
func RenderRuns(w io.Writer, runs []model.RunRecord, opts RenderOptions) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	if _, err := fmt.Fprintln(w, opts.style(titleStyle, "Runs")); err != nil {
		return err
	}
	headers := []string{"ID", "Ended", "Lang", "Oracle", "Fallback", "Lines", "Failed", "Clicks", "Chars/Click", "Savings"}
	rows := make([][]string, 0, len(runs))
	savings := make([]float64, 0, len(runs))
	for _, run := range runs {
		agg := FromRun(run)
		s, ok := agg.KeystrokeSavings()
		if ok {
			savings = append(savings, s*100)
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.EndedAt.Local().Format(timeLayout),
			run.Lang,
			truncate(run.Oracle, maxOracleWidth),
			run.Fallback,
			strconv.Itoa(run.Lines),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Clicks),
			FormatRatio(agg.CharsPerClick()),
			FormatPercent(s, ok),
		})
	}
	if err := writeTable(w, headers, rows, map[int]bool{5: true, 6: true, 7: true, 8: true, 9: true}, opts); err != nil {
		return err
	}
	if len(savings) > 1 {
		trend := Sparkline(MovingAverage(savings, defaultTrendWin))
		if _, err := fmt.Fprintf(w, "Savings trend: [%s]\n", trend); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, headers []string, rows [][]string, rightAlign map[int]bool, opts RenderOptions) error {
	lines := formatTable(headers, rows, rightAlign)
	for i, line := range lines {
		if i == 0 {
			line = opts.style(headerStyle, line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
