package stats

import "github.com/verte-zerg/clicksim/internal/model"

// Aggregate sums simulation results across a batch. It is owned by a single
// writer; callers reduce concurrent results before adding them.
type Aggregate struct {
	Lines         int
	Failed        int
	TargetLength  int
	Clicks        int
	SentenceCount int
	WordCount     int
	FallbackCount int
	Baseline      int
}

// Add folds one completed simulation into the totals.
func (a *Aggregate) Add(r model.Result) {
	a.Lines++
	a.TargetLength += r.TargetLength
	a.Clicks += r.Clicks
	a.SentenceCount += r.SentenceCount
	a.WordCount += r.WordCount
	a.FallbackCount += r.FallbackCount
	a.Baseline += r.Baseline
}

// AddFailure counts a line whose simulation aborted. Its partial result is
// never folded into the totals.
func (a *Aggregate) AddFailure() {
	a.Lines++
	a.Failed++
}

// Merge adds another aggregate's totals.
func (a *Aggregate) Merge(o Aggregate) {
	a.Lines += o.Lines
	a.Failed += o.Failed
	a.TargetLength += o.TargetLength
	a.Clicks += o.Clicks
	a.SentenceCount += o.SentenceCount
	a.WordCount += o.WordCount
	a.FallbackCount += o.FallbackCount
	a.Baseline += o.Baseline
}

// Succeeded returns the number of lines that contributed to the totals.
func (a Aggregate) Succeeded() int {
	return a.Lines - a.Failed
}

// Selections returns the number of committed steps of every kind.
func (a Aggregate) Selections() int {
	return a.SentenceCount + a.WordCount + a.FallbackCount
}

// CharsPerClick is the average number of target characters per click.
func (a Aggregate) CharsPerClick() (float64, bool) {
	return ratio(a.TargetLength, a.Clicks)
}

// AcceptanceRate is the share of steps served by a suggestion.
func (a Aggregate) AcceptanceRate() (float64, bool) {
	return ratio(a.SentenceCount+a.WordCount, a.Selections())
}

// KeystrokeSavings is 1 - clicks/baseline.
func (a Aggregate) KeystrokeSavings() (float64, bool) {
	r, ok := ratio(a.Clicks, a.Baseline)
	if !ok {
		return 0, false
	}
	return 1 - r, true
}

// CharsPerSelection is the average number of target characters per step.
func (a Aggregate) CharsPerSelection() (float64, bool) {
	return ratio(a.TargetLength, a.Selections())
}

// Record copies the totals into a run record.
func (a Aggregate) Record(run *model.RunRecord) {
	run.Lines = a.Lines
	run.Failed = a.Failed
	run.TargetLength = a.TargetLength
	run.Clicks = a.Clicks
	run.SentenceCount = a.SentenceCount
	run.WordCount = a.WordCount
	run.FallbackCount = a.FallbackCount
	run.Baseline = a.Baseline
}

// FromRun rebuilds the totals of a stored run.
func FromRun(run model.RunRecord) Aggregate {
	return Aggregate{
		Lines:         run.Lines,
		Failed:        run.Failed,
		TargetLength:  run.TargetLength,
		Clicks:        run.Clicks,
		SentenceCount: run.SentenceCount,
		WordCount:     run.WordCount,
		FallbackCount: run.FallbackCount,
		Baseline:      run.Baseline,
	}
}

func ratio(num, den int) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}
