package extractor

import (
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"emailanalyser/internal/model"
)

// Job info sources.
const (
	SourceSignature   = "signature"
	SourceEmailDomain = "email_domain"
	SourceEmailBody   = "email_body"
)

const highConfidence = 0.8

// jobTitleKeywords lists title keywords by seniority group; the order is the search order.
var jobTitleKeywords = [][]string{
	{"ceo", "cto", "cfo", "coo", "president", "vice president", "vp", "director", "chief", "head", "executive"},
	{"manager", "supervisor", "leader", "coordinator", "principal", "administrator", "lead"},
	{"engineer", "developer", "architect", "programmer", "analyst", "scientist", "technician", "specialist"},
	{"sales", "account executive", "representative", "consultant", "associate", "advisor"},
}

var (
	fullTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(senior|junior|lead|principal|chief|head|executive)?\s*\w+\s*(manager|engineer|developer|analyst|director|coordinator|specialist)`),
		regexp.MustCompile(`(?i)(vp|vice president|director)\s+of\s+\w+`),
	}
	cLevelRe = regexp.MustCompile(`(?i)\bc[a-z]o\b`)

	departmentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)department\s+of\s+(\w+)`),
		regexp.MustCompile(`(?i)(\w+)\s+department`),
		regexp.MustCompile(`(?i)(\w+)\s+division`),
		regexp.MustCompile(`(?i)(\w+)\s+team`),
	}

	selfIntroIndicators = []string{"i am", "working as", "my role", "position of", "title is"}
	freeMailProviders   = map[string]bool{"gmail": true, "yahoo": true, "hotmail": true, "outlook": true, "aol": true}
)

type JobCompanyExtractor struct {
	nlp NLP
}

func NewJobCompanyExtractor(nlp NLP) *JobCompanyExtractor {
	return &JobCompanyExtractor{nlp: nlp}
}

// Extract returns the most confident job/company guess across the
// signature, the sender domain and the body.
func (j *JobCompanyExtractor) Extract(e *model.Email) model.JobInfo {
	var best model.JobInfo
	for _, method := range []func(*model.Email) model.JobInfo{j.fromSignature, j.fromDomain, j.fromBody} {
		info := method(e)
		if info.ConfidenceScore > best.ConfidenceScore {
			best = info
			if best.ConfidenceScore > highConfidence {
				break
			}
		}
	}
	return best
}

func (j *JobCompanyExtractor) fromSignature(e *model.Email) model.JobInfo {
	if strings.TrimSpace(e.Signature) == "" {
		return model.JobInfo{}
	}

	var title *string
	for _, line := range strings.Split(strings.ToLower(e.Signature), "\n") {
		if !hasTitleKeyword(line) {
			continue
		}
		if t := fullJobTitle(line); t != nil {
			title = t
			break
		}
	}
	company := j.company(e.Signature)

	return scoredJobInfo(title, company, department(e.Signature), 0.5, 0.4, SourceSignature)
}

func (j *JobCompanyExtractor) fromDomain(e *model.Email) model.JobInfo {
	domain := senderDomain(e.From)
	if domain == "" {
		return model.JobInfo{}
	}
	label := registrableLabel(domain)
	if label == "" || freeMailProviders[label] {
		return model.JobInfo{}
	}
	company := titleCase(label)
	source := SourceEmailDomain
	return model.JobInfo{Company: &company, ConfidenceScore: 0.3, Source: &source}
}

func (j *JobCompanyExtractor) fromBody(e *model.Email) model.JobInfo {
	if strings.TrimSpace(e.Body) == "" {
		return model.JobInfo{}
	}

	var title *string
	for _, sentence := range j.nlp.Sentences(e.Body) {
		lower := strings.ToLower(sentence)
		if !hasAny(lower, selfIntroIndicators) || !hasTitleKeyword(lower) {
			continue
		}
		if t := fullJobTitle(lower); t != nil {
			title = t
		}
	}
	company := j.company(e.Body)

	return scoredJobInfo(title, company, department(e.Body), 0.3, 0.2, SourceEmailBody)
}

// company returns the first organisation-like proper noun chunk that is
// not itself a job title.
func (j *JobCompanyExtractor) company(text string) *string {
	for _, chunk := range properNounChunks(j.nlp, text) {
		if hasTitleKeyword(strings.ToLower(chunk)) {
			continue
		}
		c := chunk
		return &c
	}
	return nil
}

func scoredJobInfo(title, company, dept *string, titleWeight, companyWeight float64, source string) model.JobInfo {
	info := model.JobInfo{JobTitle: title, Company: company, Department: dept, Source: &source}
	if title != nil {
		info.ConfidenceScore += titleWeight
	}
	if company != nil {
		info.ConfidenceScore += companyWeight
	}
	return info
}

func hasTitleKeyword(s string) bool {
	for _, group := range jobTitleKeywords {
		if hasAny(s, group) {
			return true
		}
	}
	return false
}

func hasAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// fullJobTitle extracts the complete title around a title keyword.
func fullJobTitle(text string) *string {
	for _, re := range fullTitlePatterns {
		if m := re.FindString(text); m != "" {
			t := titleCase(strings.TrimSpace(m))
			return &t
		}
	}
	if m := cLevelRe.FindString(text); m != "" {
		t := strings.ToUpper(m)
		return &t
	}
	return nil
}

func department(text string) *string {
	for _, re := range departmentPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			d := titleCase(m[1])
			return &d
		}
	}
	return nil
}

// registrableLabel is the label left of the public suffix, "acme" for
// mail.acme.co.uk.
func registrableLabel(domain string) string {
	etld1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return ""
	}
	label, _, _ := strings.Cut(etld1, ".")
	return strings.ToLower(label)
}

func titleCase(s string) string {
	// Casers keep state and are not safe for concurrent use.
	return cases.Title(language.English).String(strings.ToLower(s))
}

