package extractor

import (
	"testing"

	"emailanalyser/internal/model"
)

func strOrNil(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestJobFromSignature(t *testing.T) {
	nlp := &fakeNLP{entities: []Entity{{Text: "Jane Doe", Label: LabelPerson}}}
	j := NewJobCompanyExtractor(nlp)

	info := j.Extract(&model.Email{
		From:      "jane@gmail.com",
		Signature: "Best regards,\nJane Doe\nSenior Software Engineer\nAcme Corp\nPlatform Team",
	})

	if strOrNil(info.JobTitle) != "Senior Software Engineer" {
		t.Errorf("title = %s", strOrNil(info.JobTitle))
	}
	if strOrNil(info.Company) != "Acme Corp" {
		t.Errorf("company = %s", strOrNil(info.Company))
	}
	if strOrNil(info.Department) != "Platform" {
		t.Errorf("department = %s", strOrNil(info.Department))
	}
	if !almostEqual(info.ConfidenceScore, 0.9) || strOrNil(info.Source) != SourceSignature {
		t.Errorf("confidence = %f source = %s", info.ConfidenceScore, strOrNil(info.Source))
	}
}

func TestJobFromDomain(t *testing.T) {
	j := NewJobCompanyExtractor(&fakeNLP{})

	info := j.Extract(&model.Email{From: "Bob <bob@mail.globex.co.uk>"})
	if strOrNil(info.Company) != "Globex" || info.ConfidenceScore != 0.3 || strOrNil(info.Source) != SourceEmailDomain {
		t.Errorf("info = %+v company=%s", info, strOrNil(info.Company))
	}
	if info.JobTitle != nil {
		t.Errorf("unexpected title %s", *info.JobTitle)
	}
}

func TestJobFromBody(t *testing.T) {
	j := NewJobCompanyExtractor(&fakeNLP{})

	info := j.Extract(&model.Email{
		From: "someone@gmail.com",
		Body: "Hello. I am working as a data analyst at Initech.",
	})
	if strOrNil(info.JobTitle) != "Data Analyst" {
		t.Errorf("title = %s", strOrNil(info.JobTitle))
	}
	if strOrNil(info.Company) != "Initech" {
		t.Errorf("company = %s", strOrNil(info.Company))
	}
	if !almostEqual(info.ConfidenceScore, 0.5) || strOrNil(info.Source) != SourceEmailBody {
		t.Errorf("confidence = %f source = %s", info.ConfidenceScore, strOrNil(info.Source))
	}
}

func TestJobNothingFound(t *testing.T) {
	info := NewJobCompanyExtractor(&fakeNLP{}).Extract(&model.Email{From: "x@yahoo.com"})
	if info.ConfidenceScore != 0 || info.Source != nil || info.Company != nil {
		t.Errorf("expected empty info, got %+v", info)
	}
}

func TestFullJobTitle(t *testing.T) {
	tests := map[string]string{
		"lead product manager":  "Lead Product Manager",
		"director of marketing": "Director Of Marketing",
		"ceo, acme":             "CEO",
		"just a person":         "<nil>",
	}
	for text, want := range tests {
		if got := strOrNil(fullJobTitle(text)); got != want {
			t.Errorf("fullJobTitle(%q) = %q, want %q", text, got, want)
		}
	}
}

func TestDepartment(t *testing.T) {
	tests := map[string]string{
		"Department of Finance": "Finance",
		"the legal department":  "Legal",
		"Consumer division":     "Consumer",
		"nothing here":          "<nil>",
	}
	for text, want := range tests {
		if got := strOrNil(department(text)); got != want {
			t.Errorf("department(%q) = %q, want %q", text, got, want)
		}
	}
}
