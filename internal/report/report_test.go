package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"emailanalyser/internal/model"
)

func strPtr(s string) *string { return &s }

func sampleResults() []*model.AnalysisResult {
	hour := 10
	day := "Monday"
	weekend := false
	business := true
	return []*model.AnalysisResult{
		{
			Timestamp:  time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
			RunID:      "run-1",
			EmailID:    "<a@example.com>",
			MessageKey: "a@example.com",
			Subject:    "Quarterly review, \"draft\"",
			Date:       "Mon, 04 Mar 2024 10:00:00 +0000",
			From:       "Jane Doe <jane@acme.co.uk>",
			To:         "bob@example.com, carol@example.com",
			FullName:   "Jane Doe",
			Gender:     "female",
			Phone:      strPtr("+1 212-555-0100"),
			Location:   strPtr("United Kingdom"),
			Job: model.JobInfo{
				JobTitle:        strPtr("Senior Engineer"),
				Company:         strPtr("Acme"),
				ConfidenceScore: 0.9,
				Source:          strPtr("signature"),
			},
			EmailType: model.EmailTypeFormal,
			Activity: model.TimeCharacteristics{
				HourOfDay: &hour, DayOfWeek: &day, IsWeekend: &weekend, IsBusinessHours: &business,
			},
			Languages: []model.LanguageScore{{Lang: "en", Confidence: 0.95}},
			Sentiment: model.Sentiment{
				OverallScore: 0.4,
				Components: map[string]model.ComponentSentiment{
					"body": {Score: 0.8, Magnitude: 0.8, Polarity: model.PolarityPositive},
				},
				Emotions:   []model.Emotion{{Emotion: "joy", Intensity: 1}},
				Confidence: 1,
			},
			Topics: []model.Topic{{Topic: "quarterly review", Score: 0.5, Type: model.TopicTypePhrase}},
		},
		{
			Timestamp:  time.Date(2024, 3, 4, 12, 0, 1, 0, time.UTC),
			RunID:      "run-1",
			MessageKey: "b",
			Subject:    "hi\nthere",
			Date:       "Sun, 03 Mar 2024 09:00:00 +0000",
			From:       "bob@example.com",
			To:         "jane@acme.co.uk",
			Gender:     "unknown",
			EmailType:  model.EmailTypeCasual,
			Languages:  []model.LanguageScore{{Lang: "fr", Confidence: 0.7}},
			Sentiment:  model.Sentiment{OverallScore: -0.2},
			Topics: []model.Topic{
				{Topic: "quarterly review", Score: 0.3, Type: model.TopicTypePhrase},
				{Topic: "acme", Score: 0.2, Type: model.TopicTypeEntity},
			},
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	in := sampleResults()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, in); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), strings.Join(Columns, ",")+"\n") {
		t.Fatalf("unexpected header: %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	out, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := json.Marshal(in)
	got, _ := json.Marshal(out)
	if !bytes.Equal(want, got) {
		t.Errorf("round trip mismatch\nwant %s\ngot  %s", want, got)
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrMissingHeader) {
		t.Errorf("empty input err = %v", err)
	}
	_, err := ReadCSV(strings.NewReader("subject,topics\nhello,{not json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("bad cell err = %v", err)
	}
}

func TestReadCSVIgnoresUnknownColumns(t *testing.T) {
	out, err := ReadCSV(strings.NewReader("extra,subject\nx,Hello\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Subject != "Hello" || out[0].Phone != nil {
		t.Errorf("got %+v", out)
	}
}

func TestSaveAndLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "email_analysis.csv")
	if err := SaveCSV(path, sampleResults()); err != nil {
		t.Fatal(err)
	}
	out, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("rows = %d", len(out))
	}

	_, err = LoadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestBuildDashboard(t *testing.T) {
	d := BuildDashboard(sampleResults())

	m := d.Metrics
	if m.TotalEmails != 2 || m.UniqueSenders != 2 || m.LanguagesDetected != 2 {
		t.Errorf("metrics = %+v", m)
	}
	if m.AverageSentiment < 0.0999 || m.AverageSentiment > 0.1001 {
		t.Errorf("average sentiment = %v", m.AverageSentiment)
	}

	if len(d.EmailTypes) != 2 || d.EmailTypes[0].Label != model.EmailTypeFormal {
		t.Errorf("email types = %+v", d.EmailTypes)
	}

	if len(d.SentimentOverTime) != 2 || d.SentimentOverTime[0].Subject != "hi\nthere" {
		t.Errorf("sentiment points not date sorted: %+v", d.SentimentOverTime)
	}

	if len(d.CommonTopics) != 2 || d.CommonTopics[0] != (Count{Label: "quarterly review", Count: 2}) {
		t.Errorf("topics = %+v", d.CommonTopics)
	}
}

func TestBuildNetwork(t *testing.T) {
	results := sampleResults()
	results = append(results, &model.AnalysisResult{From: "Jane <JANE@acme.co.uk>", To: "bob@example.com"})

	n := BuildNetwork(results)
	if len(n.Nodes) != 3 {
		t.Errorf("nodes = %v", n.Nodes)
	}
	if len(n.Edges) != 3 {
		t.Fatalf("edges = %+v", n.Edges)
	}
	if n.Edges[0] != (Edge{From: "jane@acme.co.uk", To: "bob@example.com", Count: 2}) {
		t.Errorf("top edge = %+v", n.Edges[0])
	}
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(nil)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "null") {
		t.Errorf("empty dashboard should not contain nulls: %s", b)
	}
}
