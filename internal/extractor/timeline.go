package extractor

import (
	"net/mail"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"emailanalyser/internal/model"
)

const (
	significantGapDays = 7
	daysPerMonth       = 30
)

type TimelineAnalyzer struct {
	logger *zap.Logger
}

func NewTimelineAnalyzer(logger *zap.Logger) *TimelineAnalyzer {
	return &TimelineAnalyzer{logger: logger}
}

// EmailDates collects the raw Date headers of emails.
func EmailDates(emails []*model.Email) []string {
	dates := make([]string, 0, len(emails))
	for _, e := range emails {
		dates = append(dates, e.Date)
	}
	return dates
}

// Analyze builds the usage timeline from raw RFC 5322 dates. Dates are
// converted to UTC; unparsable ones are ignored.
func (a *TimelineAnalyzer) Analyze(dates []string) model.Timeline {
	times := make([]time.Time, 0, len(dates))
	skipped := 0
	for _, d := range dates {
		if strings.TrimSpace(d) == "" {
			skipped++
			continue
		}
		t, err := mail.ParseDate(d)
		if err != nil {
			skipped++
			continue
		}
		times = append(times, t.UTC())
	}
	if skipped > 0 {
		a.logger.Debug("Ignored emails without a usable date", zap.Int("count", skipped))
	}
	if len(times) == 0 {
		return emptyTimeline()
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	return model.Timeline{
		UsageSpan:         usageSpan(times),
		ActivityPatterns:  activityPatterns(times),
		FrequencyAnalysis: frequencyAnalysis(times),
		TimelineSegments:  timelineSegments(times),
		GapsAnalysis:      gapsAnalysis(times),
	}
}

func emptyTimeline() model.Timeline {
	return model.Timeline{
		ActivityPatterns: model.ActivityPatterns{
			Hourly:  map[int]int{},
			Daily:   map[string]int{},
			Monthly: map[string]int{},
		},
		TimelineSegments: []model.TimelineSegment{},
		GapsAnalysis:     model.GapsAnalysis{SignificantGaps: []model.Gap{}},
	}
}

func spanDays(times []time.Time) int {
	return int(times[len(times)-1].Sub(times[0]).Hours() / 24)
}

func usageSpan(times []time.Time) model.UsageSpan {
	days := spanDays(times)
	return model.UsageSpan{
		FirstEmailDate: times[0].Format(time.RFC3339),
		LastEmailDate:  times[len(times)-1].Format(time.RFC3339),
		TotalDays:      days,
		ActiveMonths:   days/daysPerMonth + 1,
	}
}

// counter keeps first-seen order so ties resolve to the earliest key.
type counter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(k K) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

func (c *counter[K]) peak() (K, int) {
	var best K
	bestCount := 0
	for _, k := range c.order {
		if c.counts[k] > bestCount {
			best, bestCount = k, c.counts[k]
		}
	}
	return best, bestCount
}

func activityPatterns(times []time.Time) model.ActivityPatterns {
	hourly := newCounter[int]()
	daily := newCounter[string]()
	monthly := newCounter[string]()
	for _, t := range times {
		hourly.add(t.Hour())
		daily.add(t.Weekday().String())
		monthly.add(t.Month().String())
	}

	peakHour, _ := hourly.peak()
	peakDay, _ := daily.peak()
	peakMonth, _ := monthly.peak()
	return model.ActivityPatterns{
		Hourly:  hourly.counts,
		Daily:   daily.counts,
		Monthly: monthly.counts,
		PeakTimes: model.PeakTimes{
			Hour:  &peakHour,
			Day:   peakDay,
			Month: peakMonth,
		},
	}
}

func frequencyAnalysis(times []time.Time) model.FrequencyAnalysis {
	days := max(spanDays(times), 1)
	perDay := float64(len(times)) / float64(days)

	byDate := newCounter[string]()
	for _, t := range times {
		byDate.add(t.Format(time.DateOnly))
	}
	busiest, busiestCount := byDate.peak()

	return model.FrequencyAnalysis{
		TotalEmails:     len(times),
		EmailsPerDay:    perDay,
		EmailsPerWeek:   perDay * 7,
		EmailsPerMonth:  perDay * daysPerMonth,
		BusiestDay:      busiest,
		BusiestDayCount: busiestCount,
	}
}

func timelineSegments(times []time.Time) []model.TimelineSegment {
	var segments []model.TimelineSegment
	for _, t := range times {
		period := t.Format("2006-01")
		stamp := t.Format(time.RFC3339)
		if n := len(segments); n > 0 && segments[n-1].Period == period {
			segments[n-1].Count++
			segments[n-1].Last = stamp
			continue
		}
		segments = append(segments, model.TimelineSegment{Period: period, Count: 1, First: stamp, Last: stamp})
	}
	return segments
}

func gapsAnalysis(times []time.Time) model.GapsAnalysis {
	out := model.GapsAnalysis{SignificantGaps: []model.Gap{}}
	if len(times) < 2 {
		return out
	}

	total := 0.0
	for i := 1; i < len(times); i++ {
		days := times[i].Sub(times[i-1]).Hours() / 24
		total += days
		out.LongestGapDays = max(out.LongestGapDays, days)
		if days >= significantGapDays {
			out.SignificantGaps = append(out.SignificantGaps, model.Gap{
				Start: times[i-1].Format(time.RFC3339),
				End:   times[i].Format(time.RFC3339),
				Days:  days,
			})
		}
	}
	out.AverageGapDays = total / float64(len(times)-1)
	return out
}
