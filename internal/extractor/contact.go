package extractor

import (
	"bufio"
	"bytes"
	_ "embed"
	"net/mail"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"emailanalyser/internal/model"
)

// Gender labels.
const (
	GenderMale         = "male"
	GenderFemale       = "female"
	GenderMostlyMale   = "mostly_male"
	GenderMostlyFemale = "mostly_female"
	GenderAndy         = "andy"
	GenderUnknown      = "unknown"
)

const defaultPhoneRegion = "US"

//go:embed data/first_names.csv
var firstNamesCSV []byte

var (
	phoneCandidateRe = regexp.MustCompile(`\+?\(?\d[\d \t().\-]{5,}\d`)
	postalCodeRe     = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	// "Name" <addr> and Name <addr> both carry a display name; a bare address does not
	fromNameRe = regexp.MustCompile(`^"?([^"@<]+?)"?\s*<[^>]*>`)
)

// ContactExtractor pulls the sender's name, gender guess, phone and address.
type ContactExtractor struct {
	nlp     NLP
	genders map[string]string
}

func NewContactExtractor(nlp NLP) *ContactExtractor {
	return &ContactExtractor{
		nlp:     nlp,
		genders: loadGenderTable(firstNamesCSV),
	}
}

func loadGenderTable(raw []byte) map[string]string {
	table := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, gender, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		table[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(gender)
	}
	return table
}

// ExtractName returns the first person named in the signature, falling back
// to the display name of the From header.
func (c *ContactExtractor) ExtractName(e *model.Email) string {
	if name, ok := firstEntity(c.nlp, e.Signature, LabelPerson); ok {
		return name
	}

	from := strings.TrimSpace(e.From)
	if from == "" {
		return ""
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.TrimSpace(addr.Name)
	}
	if m := fromNameRe.FindStringSubmatch(from); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// PredictGender guesses from the first token of name.
func (c *ContactExtractor) PredictGender(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return GenderUnknown
	}
	first := strings.ToLower(strings.Trim(fields[0], `"'.,`))
	if g, ok := c.genders[first]; ok {
		return g
	}
	return GenderUnknown
}

// ExtractPhone returns the first valid phone number in text, formatted
// internationally.
func (c *ContactExtractor) ExtractPhone(text string) *string {
	for _, candidate := range phoneCandidateRe.FindAllString(text, -1) {
		num, err := phonenumbers.Parse(strings.TrimSpace(candidate), defaultPhoneRegion)
		if err != nil {
			continue
		}
		if !phonenumbers.IsValidNumber(num) {
			continue
		}
		formatted := phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
		return &formatted
	}
	return nil
}

// ExtractAddress joins place entities and postal codes found in text.
func (c *ContactExtractor) ExtractAddress(text string) *string {
	var parts []string
	for _, ent := range c.nlp.Entities(text) {
		if ent.Label == LabelGPE || ent.Label == LabelLoc {
			parts = append(parts, ent.Text)
		}
	}
	parts = append(parts, postalCodeRe.FindAllString(text, -1)...)
	if len(parts) == 0 {
		return nil
	}
	addr := strings.Join(parts, ", ")
	return &addr
}
