package stats

import (
	"context"

	"github.com/verte-zerg/clicksim/internal/model"
	"github.com/verte-zerg/clicksim/internal/store"
)

// History contains stored runs and their combined totals.
type History struct {
	Runs  []model.RunRecord
	Total Aggregate
}

// BuildHistory loads runs matching filter, keeping the most recent Last.
func BuildHistory(ctx context.Context, st *store.Store, filter model.RunFilter) (History, error) {
	runs, err := st.ListRuns(ctx, filter)
	if err != nil {
		return History{}, err
	}
	if filter.Last > 0 && len(runs) > filter.Last {
		runs = runs[len(runs)-filter.Last:]
	}
	var total Aggregate
	for _, run := range runs {
		total.Merge(FromRun(run))
	}
	return History{Runs: runs, Total: total}, nil
}
