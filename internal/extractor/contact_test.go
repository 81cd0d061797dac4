package extractor

import (
	"testing"

	"emailanalyser/internal/model"
)

func TestExtractName(t *testing.T) {
	nlp := &fakeNLP{entities: []Entity{{Text: "Jane Doe", Label: LabelPerson}}}
	c := NewContactExtractor(nlp)

	tests := []struct {
		name  string
		email *model.Email
		want  string
	}{
		{"signature person", &model.Email{Signature: "Best regards,\nJane Doe", From: "x@y.com"}, "Jane Doe"},
		{"quoted display name", &model.Email{From: `"Bob Stone" <bob@example.com>`}, "Bob Stone"},
		{"bare display name", &model.Email{From: "Ann Lee <ann@example.com>"}, "Ann Lee"},
		{"bare address", &model.Email{From: "bob@example.com"}, ""},
		{"empty", &model.Email{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.ExtractName(tt.email); got != tt.want {
				t.Errorf("ExtractName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPredictGender(t *testing.T) {
	c := NewContactExtractor(&fakeNLP{})
	tests := map[string]string{
		"Jane Doe":   GenderFemale,
		"JOHN smith": GenderMale,
		"Alex":       GenderMostlyMale,
		"Taylor":     GenderAndy,
		"Zyxw":       GenderUnknown,
		"":           GenderUnknown,
		"   ":        GenderUnknown,
	}
	for name, want := range tests {
		if got := c.PredictGender(name); got != want {
			t.Errorf("PredictGender(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExtractPhone(t *testing.T) {
	c := NewContactExtractor(&fakeNLP{})

	got := c.ExtractPhone("Call me on +1 650-253-0000 after lunch.")
	if got == nil {
		t.Fatal("expected a phone number")
	}
	if *got != "+1 650-253-0000" {
		t.Errorf("phone = %q", *got)
	}

	if got := c.ExtractPhone("Order 12 arrives on 3 May."); got != nil {
		t.Errorf("expected nil, got %q", *got)
	}
}

func TestExtractAddress(t *testing.T) {
	c := NewContactExtractor(&fakeNLP{entities: []Entity{
		{Text: "Paris", Label: LabelGPE},
		{Text: "Acme", Label: "ORGANIZATION"},
	}})

	got := c.ExtractAddress("Acme office, Paris 75001")
	if got == nil || *got != "Paris, 75001" {
		t.Errorf("address = %v", got)
	}
	if got := c.ExtractAddress("nothing to see"); got != nil {
		t.Errorf("expected nil, got %q", *got)
	}
}

func TestLoadGenderTableSkipsComments(t *testing.T) {
	table := loadGenderTable([]byte("# header\n\nKim, mostly_female\nbroken\n"))
	if len(table) != 1 || table["kim"] != GenderMostlyFemale {
		t.Errorf("table = %v", table)
	}
}
