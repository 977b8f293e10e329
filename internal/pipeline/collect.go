package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/eventscout/internal/dates"
	"github.com/sells-group/eventscout/internal/model"
	"github.com/sells-group/eventscout/internal/resilience"
	"github.com/sells-group/eventscout/pkg/search"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]\d{3}[\s.\-]\d{4}`)

	// titleSeparators split a page title into the event part and the
	// site/organization part.
	titleSeparators = []string{" | ", " - ", " – ", " — ", ": "}
)

// collect runs every surviving query through the search collaborator and
// flattens the results into candidate records. A single failed search is
// logged and skipped; it never aborts the batch.
func (p *Pipeline) collect(ctx context.Context, qs []model.SearchQuery, log *zap.Logger) []model.CandidateRecord {
	var out []model.CandidateRecord

	for i := range qs {
		q := &qs[i]
		q.Status = model.QueryStatusProcessing

		results, err := resilience.Do(ctx, p.searchCaller, "search", func(ctx context.Context) ([]search.Result, error) {
			return p.search.Search(ctx, q.Text)
		})
		p.tracker.Search()
		if err != nil {
			q.Status = model.QueryStatusFailed
			log.Warn("pipeline: search failed, skipping query",
				zap.String("query", q.Text), zap.Error(err))
			continue
		}

		q.Status = model.QueryStatusCompleted
		q.ResultCount = len(results)

		for _, r := range results {
			if p.blockedDomain(r.URL) {
				log.Debug("pipeline: blocked domain rejected", zap.String("url", r.URL))
				continue
			}
			cand := p.buildCandidate(r)
			out = append(out, cand)
			if p.cfg.Pipeline.MaxCandidates > 0 && len(out) >= p.cfg.Pipeline.MaxCandidates {
				log.Info("pipeline: candidate cap reached",
					zap.Int("max_candidates", p.cfg.Pipeline.MaxCandidates))
				return out
			}
		}
	}

	return out
}

// buildCandidate creates a candidate from one search result, extracting
// contact details and annotating the future-date flag. Dates outside
// the configured validity window are ignored. A candidate with no
// parsable date is kept: date absence is not disqualifying.
func (p *Pipeline) buildCandidate(r search.Result) model.CandidateRecord {
	cand := model.NewCandidate(r.URL, r.Title, r.Snippet)
	text := r.Title + " " + r.Snippet

	cand.Contact.Emails = uniqueMatches(emailPattern, text)
	cand.Contact.Phones = uniqueMatches(phonePattern, text)
	cand.OrgName = orgNameFromTitle(r.Title)
	cand.Event.Title = eventNameFromTitle(r.Title)

	now := p.now()
	forward := p.cfg.Pipeline.ForwardWindowDays
	for _, d := range dates.ExtractDates(text) {
		d := d
		if !p.window.IsValidEventDate(d) {
			continue
		}
		if cand.Event.Date == nil {
			cand.Event.Date = &d
			cand.Event.DateText = d.Format("January 2, 2006")
		}
		// Future means strictly after today and inside the forward
		// window.
		if d.After(now) && (forward <= 0 || d.Before(now.AddDate(0, 0, forward))) {
			cand.Event.Date = &d
			cand.Event.DateText = d.Format("January 2, 2006")
			cand.Event.HasFutureDate = true
			break
		}
	}

	if cand.Event.HasFutureDate {
		zap.L().Debug("pipeline: candidate has confirmed future date",
			zap.String("url", cand.URL), zap.String("date", cand.Event.DateText))
	} else {
		zap.L().Debug("pipeline: candidate kept without future date",
			zap.String("url", cand.URL))
	}

	return cand
}

func (p *Pipeline) blockedDomain(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	for _, blocked := range p.cfg.Search.BlockedDomains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}

// orgNameFromTitle takes the segment after the last separator, which is
// usually the site or organization name in page titles.
func orgNameFromTitle(title string) string {
	for _, sep := range titleSeparators {
		if idx := strings.LastIndex(title, sep); idx >= 0 {
			if org := strings.TrimSpace(title[idx+len(sep):]); org != "" {
				return org
			}
		}
	}
	return strings.TrimSpace(title)
}

// eventNameFromTitle takes the segment before the first separator.
func eventNameFromTitle(title string) string {
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx >= 0 {
			if name := strings.TrimSpace(title[:idx]); name != "" {
				return name
			}
		}
	}
	return strings.TrimSpace(title)
}
