package extractor

import (
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"gonum.org/v1/gonum/stat"

	"emailanalyser/internal/model"
)

const polarityThreshold = 0.1

// Component weights of the overall score.
var sentimentWeights = map[string]float64{
	"subject":   0.3,
	"body":      0.5,
	"signature": 0.2,
}

var emotionKeywords = []struct {
	emotion  string
	keywords []string
}{
	{"joy", []string{"happy", "excited", "delighted", "glad"}},
	{"anger", []string{"angry", "furious", "annoyed", "frustrated"}},
	{"sadness", []string{"sad", "disappointed", "regret", "sorry"}},
	{"urgency", []string{"urgent", "asap", "immediately", "deadline"}},
	{"appreciation", []string{"thank", "grateful", "appreciate", "welcome"}},
}

var wordRe = regexp.MustCompile(`\p{L}+`)

// Scorer maps a text to a polarity score in [-1, 1].
type Scorer interface {
	Score(text string) float64
}

// VaderScorer scores with the VADER compound score.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (v *VaderScorer) Score(text string) float64 {
	return v.analyzer.PolarityScores(text).Compound
}

type SentimentAnalyzer struct {
	scorer Scorer
}

func NewSentimentAnalyzer(scorer Scorer) *SentimentAnalyzer {
	return &SentimentAnalyzer{scorer: scorer}
}

// Analyze scores subject, body and signature separately and combines them.
func (s *SentimentAnalyzer) Analyze(e *model.Email) model.Sentiment {
	components := map[string]model.ComponentSentiment{
		"subject":   s.analyzeText(e.Subject),
		"body":      s.analyzeText(e.Body),
		"signature": s.analyzeText(e.Signature),
	}

	overall := 0.0
	var nonZero []float64
	for _, name := range []string{"subject", "body", "signature"} {
		score := components[name].Score
		overall += score * sentimentWeights[name]
		if score != 0 {
			nonZero = append(nonZero, score)
		}
	}

	return model.Sentiment{
		OverallScore: overall,
		Components:   components,
		Emotions:     detectEmotions(e.Body),
		Confidence:   sentimentConfidence(nonZero),
	}
}

func (s *SentimentAnalyzer) analyzeText(text string) model.ComponentSentiment {
	if strings.TrimSpace(text) == "" {
		return model.ComponentSentiment{Polarity: model.PolarityNeutral}
	}
	score := math.Max(-1, math.Min(1, s.scorer.Score(text)))
	return model.ComponentSentiment{
		Score:     score,
		Magnitude: math.Abs(score),
		Polarity:  polarity(score),
	}
}

func polarity(score float64) string {
	switch {
	case score > polarityThreshold:
		return model.PolarityPositive
	case score < -polarityThreshold:
		return model.PolarityNegative
	default:
		return model.PolarityNeutral
	}
}

// detectEmotions counts emotion keywords; emotions are listed in the order
// they first appear in the text.
func detectEmotions(text string) []model.Emotion {
	counts := make(map[string]int)
	var order []string
	total := 0
	for _, tok := range wordRe.FindAllString(strings.ToLower(text), -1) {
		for _, ek := range emotionKeywords {
			if !contains(ek.keywords, tok) {
				continue
			}
			if counts[ek.emotion] == 0 {
				order = append(order, ek.emotion)
			}
			counts[ek.emotion]++
			total++
		}
	}

	emotions := make([]model.Emotion, 0, len(order))
	for _, name := range order {
		emotions = append(emotions, model.Emotion{
			Emotion:   name,
			Intensity: float64(counts[name]) / float64(total),
		})
	}
	return emotions
}

// sentimentConfidence is high when the component scores agree.
func sentimentConfidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	std := math.Sqrt(stat.PopVariance(scores, nil))
	return 1 - math.Min(std, 1)
}
