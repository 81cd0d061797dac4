package extractor

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
	"go.uber.org/zap"

	"emailanalyser/internal/model"
)

const (
	defaultLanguage = "en"
	englishBoost    = 0.1
)

var supportedLanguages = map[string]lingua.Language{
	"en": lingua.English,
	"es": lingua.Spanish,
	"fr": lingua.French,
	"de": lingua.German,
	"it": lingua.Italian,
	"pt": lingua.Portuguese,
	"nl": lingua.Dutch,
}

// LanguageDetector ranks the languages a text may be written in.
type LanguageDetector struct {
	detector lingua.LanguageDetector
	logger   *zap.Logger
}

// NewLanguageDetector builds a detector restricted to codes (ISO 639-1).
func NewLanguageDetector(codes []string, logger *zap.Logger) (*LanguageDetector, error) {
	langs := make([]lingua.Language, 0, len(codes))
	seen := make(map[lingua.Language]bool)
	for _, code := range codes {
		lang, ok := supportedLanguages[strings.ToLower(strings.TrimSpace(code))]
		if !ok {
			return nil, fmt.Errorf("unsupported language %q", code)
		}
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	// lingua needs at least two candidates
	if len(langs) < 2 {
		return nil, fmt.Errorf("at least two languages are required, got %d", len(langs))
	}

	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
		logger:   logger,
	}, nil
}

// DetectLanguages returns candidate languages ordered by confidence.
func (d *LanguageDetector) DetectLanguages(text string) []model.LanguageScore {
	fallback := []model.LanguageScore{{Lang: defaultLanguage, Confidence: 1.0}}
	if strings.TrimSpace(text) == "" {
		return fallback
	}

	var out []model.LanguageScore
	for _, cv := range d.detector.ComputeLanguageConfidenceValues(text) {
		if cv.Value() <= 0 {
			continue
		}
		out = append(out, model.LanguageScore{
			Lang:       isoCode(cv.Language()),
			Confidence: cv.Value(),
		})
	}
	if len(out) == 0 {
		d.logger.Debug("No language detected, defaulting", zap.String("default", defaultLanguage))
		return fallback
	}

	if out[0].Lang == "en" && hasAlphaToken(text) {
		out[0].Confidence = min(out[0].Confidence+englishBoost, 1.0)
	}
	return out
}

// DetectSegments splits text into sentences and groups consecutive
// sentences by their detected language.
func (d *LanguageDetector) DetectSegments(text string) map[string][]string {
	segments := make(map[string][]string)
	current := ""
	var run []string
	flush := func() {
		if current != "" && len(run) > 0 {
			segments[current] = append(segments[current], run...)
		}
		run = nil
	}

	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lang, ok := d.detector.DetectLanguageOf(sentence)
		if !ok {
			continue
		}
		code := isoCode(lang)
		if code != current {
			flush()
			current = code
		}
		run = append(run, sentence)
	}
	flush()
	return segments
}

func isoCode(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}

func hasAlphaToken(text string) bool {
	return wordRe.MatchString(text)
}
