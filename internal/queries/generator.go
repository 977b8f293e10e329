// Package queries generates the search query set for a pipeline run.
package queries

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/dates"
	"github.com/sells-group/eventscout/internal/model"
)

// Generator produces the full query set for one run. A generation
// failure is fatal to the run: no queries means no work is possible.
type Generator interface {
	Generate(ctx context.Context) ([]model.SearchQuery, error)
}

// baseTemplates are the phrase stems expanded with date variants and
// geography tags.
var baseTemplates = []string{
	"nonprofit gala",
	"charity auction",
	"benefit dinner",
	"fundraising gala",
	"silent auction fundraiser",
	"charity ball",
	"annual benefit event",
	"charity golf tournament",
	"wine auction charity",
	"gala tickets on sale",
	"fundraiser save the date",
	"charity banquet",
	"live auction benefit",
	"nonprofit benefit concert",
}

// TemplateGenerator expands base templates across configured periods
// and geography tags, capped at maxQueries.
type TemplateGenerator struct {
	periods    []string
	geoTags    []string
	maxQueries int
	now        func() time.Time
}

// NewTemplateGenerator creates a generator. An empty period list
// defaults to monthly; maxQueries of zero means no cap.
func NewTemplateGenerator(periods, geoTags []string, maxQueries int) *TemplateGenerator {
	if len(periods) == 0 {
		periods = []string{"monthly"}
	}
	return &TemplateGenerator{
		periods:    periods,
		geoTags:    geoTags,
		maxQueries: maxQueries,
		now:        time.Now,
	}
}

func (g *TemplateGenerator) Generate(ctx context.Context) ([]model.SearchQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := g.now()
	geoTags := g.geoTags
	if len(geoTags) == 0 {
		geoTags = []string{""}
	}

	var out []model.SearchQuery
	seen := make(map[string]bool)
	for _, period := range g.periods {
		for _, base := range baseTemplates {
			for _, phrase := range dates.GenerateDateAwareVariants(base, period, now) {
				for _, geo := range geoTags {
					text := phrase
					if geo != "" {
						text = phrase + " " + geo
					}
					if seen[text] {
						continue
					}
					seen[text] = true
					out = append(out, model.NewSearchQuery(text, period, geo))
					if g.maxQueries > 0 && len(out) >= g.maxQueries {
						zap.L().Info("query generation capped",
							zap.Int("max_queries", g.maxQueries))
						return out, nil
					}
				}
			}
		}
	}

	if len(out) == 0 {
		return nil, eris.New("queries: no queries generated")
	}
	return out, nil
}
