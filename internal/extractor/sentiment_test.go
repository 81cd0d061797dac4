package extractor

import (
	"math"
	"testing"

	"emailanalyser/internal/model"
)

type fakeScorer map[string]float64

func (f fakeScorer) Score(text string) float64 {
	return f[text]
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSentimentAnalyze(t *testing.T) {
	s := NewSentimentAnalyzer(fakeScorer{"Great news": 0.5, "We won the deal": 0.5})

	got := s.Analyze(&model.Email{Subject: "Great news", Body: "We won the deal"})
	if !almostEqual(got.OverallScore, 0.4) {
		t.Errorf("overall = %f, want 0.4", got.OverallScore)
	}
	if got.Components["body"].Polarity != model.PolarityPositive {
		t.Errorf("body polarity = %q", got.Components["body"].Polarity)
	}
	if sig := got.Components["signature"]; sig.Score != 0 || sig.Polarity != model.PolarityNeutral {
		t.Errorf("empty signature should be neutral, got %+v", sig)
	}
	if !almostEqual(got.Confidence, 1) {
		t.Errorf("confidence = %f, want 1", got.Confidence)
	}
}

func TestSentimentDisagreementLowersConfidence(t *testing.T) {
	s := NewSentimentAnalyzer(fakeScorer{"Problem": -0.5, "All fixed": 0.5})

	got := s.Analyze(&model.Email{Subject: "Problem", Body: "All fixed"})
	if !almostEqual(got.Confidence, 0.5) {
		t.Errorf("confidence = %f, want 0.5", got.Confidence)
	}
	if got.Components["subject"].Polarity != model.PolarityNegative {
		t.Errorf("subject polarity = %q", got.Components["subject"].Polarity)
	}
	if got.Components["subject"].Magnitude != 0.5 {
		t.Errorf("magnitude = %f", got.Components["subject"].Magnitude)
	}
}

func TestSentimentAllNeutral(t *testing.T) {
	got := NewSentimentAnalyzer(fakeScorer{}).Analyze(&model.Email{Body: "meh"})
	if got.OverallScore != 0 || got.Confidence != 0 {
		t.Errorf("expected zero score and confidence, got %+v", got)
	}
	if len(got.Emotions) != 0 {
		t.Errorf("expected no emotions, got %+v", got.Emotions)
	}
}

func TestPolarity(t *testing.T) {
	tests := map[float64]string{
		0.11:  model.PolarityPositive,
		0.1:   model.PolarityNeutral,
		-0.1:  model.PolarityNeutral,
		-0.11: model.PolarityNegative,
	}
	for score, want := range tests {
		if got := polarity(score); got != want {
			t.Errorf("polarity(%v) = %q, want %q", score, got, want)
		}
	}
}

func TestDetectEmotions(t *testing.T) {
	got := detectEmotions("I am so HAPPY and glad, but this is urgent. Thanks, I appreciate it")
	want := []model.Emotion{
		{Emotion: "joy", Intensity: 0.5},
		{Emotion: "urgency", Intensity: 0.25},
		{Emotion: "appreciation", Intensity: 0.25},
	}
	if len(got) != len(want) {
		t.Fatalf("emotions = %+v", got)
	}
	for i := range want {
		if got[i].Emotion != want[i].Emotion || !almostEqual(got[i].Intensity, want[i].Intensity) {
			t.Errorf("emotion[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestVaderScorer(t *testing.T) {
	v := NewVaderScorer()
	if score := v.Score("This is great, I love it!"); score <= 0 {
		t.Errorf("expected positive score, got %f", score)
	}
	if score := v.Score("This is terrible and I hate it."); score >= 0 {
		t.Errorf("expected negative score, got %f", score)
	}
}
