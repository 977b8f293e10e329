package pipeline

import (
	"time"

	"github.com/sells-group/eventscout/internal/model"
)

// stats computes the end-of-run aggregates: success rate is leads over
// processed candidates, quality score the mean confidence across leads.
func (p *Pipeline) stats(result *model.RunResult, started time.Time) model.RunStats {
	st := model.RunStats{
		Processed: len(result.Candidates),
		CostUSD:   p.tracker.Total(),
	}

	if st.Processed > 0 {
		st.SuccessRate = float64(len(result.Leads)) / float64(st.Processed)
		st.AvgLatencyMs = p.now().Sub(started).Milliseconds() / int64(st.Processed)
	}

	if len(result.Leads) > 0 {
		var sum float64
		for _, l := range result.Leads {
			sum += l.Confidence
		}
		st.QualityScore = sum / float64(len(result.Leads))
	}

	return st
}
