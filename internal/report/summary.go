package report

import (
	"net/mail"
	"sort"
	"strings"
	"time"

	"emailanalyser/internal/model"
)

type KeyMetrics struct {
	TotalEmails       int     `json:"total_emails"`
	UniqueSenders     int     `json:"unique_senders"`
	LanguagesDetected int     `json:"languages_detected"`
	AverageSentiment  float64 `json:"average_sentiment"`
}

// Count is one bar or slice of a distribution.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type SentimentPoint struct {
	Date    time.Time `json:"date"`
	Score   float64   `json:"score"`
	Subject string    `json:"subject"`
}

type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// Network is the sender to recipient interaction graph.
type Network struct {
	Nodes []string `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

type Dashboard struct {
	Metrics           KeyMetrics       `json:"metrics"`
	EmailTypes        []Count          `json:"email_types"`
	SentimentOverTime []SentimentPoint `json:"sentiment_over_time"`
	CommonTopics      []Count          `json:"common_topics"`
	Network           Network          `json:"network"`
}

// BuildDashboard aggregates results into the dashboard views. An empty
// input gives empty, non-nil collections.
func BuildDashboard(results []*model.AnalysisResult) Dashboard {
	return Dashboard{
		Metrics:           keyMetrics(results),
		EmailTypes:        emailTypeDistribution(results),
		SentimentOverTime: sentimentOverTime(results),
		CommonTopics:      commonTopics(results),
		Network:           BuildNetwork(results),
	}
}

func keyMetrics(results []*model.AnalysisResult) KeyMetrics {
	m := KeyMetrics{TotalEmails: len(results)}
	if len(results) == 0 {
		return m
	}

	senders := make(map[string]bool)
	langs := make(map[string]bool)
	var total float64
	for _, r := range results {
		if s := normalizeAddress(r.From); s != "" {
			senders[s] = true
		}
		if l := r.PrimaryLanguage(); l != "" {
			langs[l] = true
		}
		total += r.Sentiment.OverallScore
	}
	m.UniqueSenders = len(senders)
	m.LanguagesDetected = len(langs)
	m.AverageSentiment = total / float64(len(results))
	return m
}

func emailTypeDistribution(results []*model.AnalysisResult) []Count {
	counts := newTally()
	for _, r := range results {
		if r.EmailType != "" {
			counts.add(r.EmailType)
		}
	}
	return counts.sorted()
}

func sentimentOverTime(results []*model.AnalysisResult) []SentimentPoint {
	points := make([]SentimentPoint, 0, len(results))
	for _, r := range results {
		t, err := mail.ParseDate(r.Date)
		if err != nil {
			continue
		}
		points = append(points, SentimentPoint{
			Date:    t.UTC(),
			Score:   r.Sentiment.OverallScore,
			Subject: r.Subject,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points
}

func commonTopics(results []*model.AnalysisResult) []Count {
	counts := newTally()
	for _, r := range results {
		for _, t := range r.Topics {
			counts.add(t.Topic)
		}
	}
	return counts.sorted()
}

// BuildNetwork counts sender to recipient edges over From and every To
// address.
func BuildNetwork(results []*model.AnalysisResult) Network {
	type pair struct{ from, to string }

	nodes := make(map[string]bool)
	edges := make(map[pair]int)
	var order []pair

	for _, r := range results {
		from := normalizeAddress(r.From)
		if from == "" {
			continue
		}
		nodes[from] = true
		for _, to := range recipients(r.To) {
			nodes[to] = true
			p := pair{from, to}
			if edges[p] == 0 {
				order = append(order, p)
			}
			edges[p]++
		}
	}

	net := Network{Nodes: make([]string, 0, len(nodes)), Edges: make([]Edge, 0, len(order))}
	for n := range nodes {
		net.Nodes = append(net.Nodes, n)
	}
	sort.Strings(net.Nodes)
	for _, p := range order {
		net.Edges = append(net.Edges, Edge{From: p.from, To: p.to, Count: edges[p]})
	}
	sort.SliceStable(net.Edges, func(i, j int) bool {
		return net.Edges[i].Count > net.Edges[j].Count
	})
	return net
}

func normalizeAddress(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return strings.ToLower(a.Address)
	}
	return strings.ToLower(s)
}

func recipients(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(s); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if a := normalizeAddress(part); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// tally counts labels, keeping first-seen order for equal counts.
type tally struct {
	counts map[string]int
	order  []string
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

func (t *tally) sorted() []Count {
	out := make([]Count, 0, len(t.order))
	for _, l := range t.order {
		out = append(out, Count{Label: l, Count: t.counts[l]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}
