package extractor

import (
	"testing"

	"go.uber.org/zap"
)

func newTestLanguageDetector(t *testing.T) *LanguageDetector {
	t.Helper()
	d, err := NewLanguageDetector([]string{"en", "es", "fr"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewLanguageDetector() error = %v", err)
	}
	return d
}

func TestNewLanguageDetectorValidation(t *testing.T) {
	if _, err := NewLanguageDetector([]string{"en"}, zap.NewNop()); err == nil {
		t.Error("expected error for a single language")
	}
	if _, err := NewLanguageDetector([]string{"en", "en"}, zap.NewNop()); err == nil {
		t.Error("expected error for duplicate languages")
	}
	if _, err := NewLanguageDetector([]string{"en", "xx"}, zap.NewNop()); err == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestDetectLanguages(t *testing.T) {
	d := newTestLanguageDetector(t)

	en := d.DetectLanguages("Thank you for the meeting yesterday. I will send the updated report to the whole team before Friday.")
	if len(en) == 0 || en[0].Lang != "en" {
		t.Fatalf("expected english first, got %+v", en)
	}
	if en[0].Confidence > 1.0 {
		t.Errorf("confidence should be capped at 1, got %f", en[0].Confidence)
	}
	for i := 1; i < len(en); i++ {
		if en[i].Confidence > en[i-1].Confidence {
			t.Errorf("languages not sorted by confidence: %+v", en)
		}
	}

	es := d.DetectLanguages("Muchas gracias por la reunión de ayer. Te enviaré el informe actualizado antes del viernes.")
	if len(es) == 0 || es[0].Lang != "es" {
		t.Errorf("expected spanish first, got %+v", es)
	}

	for _, text := range []string{"", "   \n"} {
		got := d.DetectLanguages(text)
		if len(got) != 1 || got[0].Lang != "en" || got[0].Confidence != 1.0 {
			t.Errorf("DetectLanguages(%q) = %+v, want default english", text, got)
		}
	}
}

func TestDetectSegments(t *testing.T) {
	d := newTestLanguageDetector(t)
	segments := d.DetectSegments(
		"Thank you very much for the meeting yesterday and for the report. " +
			"Muchas gracias por la reunión de ayer y por el informe del proyecto.")

	if len(segments["en"]) != 1 {
		t.Errorf("english segments = %v", segments["en"])
	}
	if len(segments["es"]) != 1 {
		t.Errorf("spanish segments = %v", segments["es"])
	}
}

func TestHasAlphaToken(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"123 4.5 !!", false},
		{"42 apples", true},
		{"Hello, world.", true},
		{"Hi, thanks!", true},
		{"", false},
	}
	for _, tt := range tests {
		if got := hasAlphaToken(tt.text); got != tt.want {
			t.Errorf("hasAlphaToken(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
