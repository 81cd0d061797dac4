package extractor

import (
	"net/mail"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"emailanalyser/internal/model"
)

type matcher interface {
	MatchString(s string) bool
}

type weightedPattern struct {
	m      matcher
	weight int
}

func re(expr string, weight int) weightedPattern {
	return weightedPattern{m: regexp.MustCompile("(?i)" + expr), weight: weight}
}

// greetingMatcher matches a greeting that is not followed by "regards" on
// the same line, so sign-offs like "Hi all ... Kind regards" are not counted.
type greetingMatcher struct {
	greeting *regexp.Regexp
}

func (g greetingMatcher) MatchString(s string) bool {
	for _, loc := range g.greeting.FindAllStringIndex(s, -1) {
		rest := s[loc[1]:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		if !strings.Contains(strings.ToLower(rest), "regards") {
			return true
		}
	}
	return false
}

// Category order doubles as the tie-break order.
var emailTypeOrder = []string{
	model.EmailTypeFormal,
	model.EmailTypeCasual,
	model.EmailTypeTransactional,
	model.EmailTypeMarketing,
	model.EmailTypeAutomated,
}

var emailTypePatterns = map[string][]weightedPattern{
	model.EmailTypeMarketing: {
		re(`\b(subscribe|unsubscribe|offer|discount|sale|off|save|deal|promotion)\b`, 2),
		re(`\b(newsletter|limited time|exclusive|special)\b`, 1),
		re(`\b(buy|shop|order now)\b`, 1),
	},
	model.EmailTypeAutomated: {
		re(`\b(this is an automated|do not reply|system notification|automatic)\b`, 3),
		re(`\b(generated|notification|alert|system|automated)\b`, 1),
		re(`@no-?reply`, 3),
		re(`\b(ticket|case|incident) #\d+`, 2),
	},
	model.EmailTypeFormal: {
		re(`\b(dear|to whom it may concern|sincerely|yours faithfully)\b`, 2),
		re(`\b(meeting|proposal|contract|report|agenda|board|client)\b`, 1),
		re(`\b(please find attached|as discussed|regarding|with reference to)\b`, 2),
		re(`\b(appreciate your consideration|look forward to|professional)\b`, 1),
		re(`[A-Z][a-z]+ [A-Z][a-z]+\s*\n.*\n.*Manager|Director|CEO`, 2),
		re(`\b(confidential|proprietary|business)\b`, 1),
	},
	model.EmailTypeCasual: {
		{m: greetingMatcher{greeting: regexp.MustCompile(`(?i)\b(hey there|hey|hi|hello)\b`)}, weight: 1},
		re(`\b(thanks|cheers|talk soon|catch up)\b`, 1),
		re(`^\s*hi\s+team`, 1),
		re(`\b(quick|heads up|fyi|question)\b`, 1),
		re(`[!]{2,}|\?{2,}`, 1),
		re(`\b(great|awesome|cool)\b`, 1),
	},
	model.EmailTypeTransactional: {
		re(`\b(action required|please review|deadline|due date|reminder)\b`, 2),
		re(`\b(approve|reject|confirm|verify|validate|complete)\b`, 1),
		re(`\b(form|document|submission|application|request)\b`, 1),
		re(`\b(status|update|processed|completed|pending)\b`, 1),
		re(`by (today|tomorrow|\d{1,2}/\d{1,2})`, 2),
		re(`\b(password|account|login|access)\b`, 1),
	},
}

var (
	automatedSenderHints = []string{"noreply", "no-reply", "donotreply", "system", "notification"}
	signatureTitleRe     = regexp.MustCompile(`(?i)(title|position):`)
	urgentSubjectRe      = regexp.MustCompile(`(?i)\b(urgent|important|asap|priority)\b`)
)

// BasicExtractor classifies the email type and describes when it was sent.
type BasicExtractor struct {
	logger *zap.Logger
}

func NewBasicExtractor(logger *zap.Logger) *BasicExtractor {
	return &BasicExtractor{logger: logger}
}

// EmailType scores the email against each category and returns the winner.
func (b *BasicExtractor) EmailType(e *model.Email) string {
	scores := b.scoreEmailType(e)

	max := 0
	first := true
	for _, cat := range emailTypeOrder {
		if first || scores[cat] > max {
			max = scores[cat]
			first = false
		}
	}
	var top []string
	for _, cat := range emailTypeOrder {
		if scores[cat] == max {
			top = append(top, cat)
		}
	}

	if len(top) > 1 && contains(top, model.EmailTypeCasual) && contains(top, model.EmailTypeFormal) {
		return model.EmailTypeCasual
	}
	if len(top) > 1 && contains(top, model.EmailTypeTransactional) && contains(top, model.EmailTypeAutomated) {
		return model.EmailTypeAutomated
	}
	return top[0]
}

func (b *BasicExtractor) scoreEmailType(e *model.Email) map[string]int {
	body := strings.ToLower(e.Body)
	subject := strings.ToLower(e.Subject)
	signature := strings.ToLower(e.Signature)
	fullText := subject + "\n" + body

	scores := make(map[string]int, len(emailTypeOrder))
	for _, cat := range emailTypeOrder {
		for _, p := range emailTypePatterns[cat] {
			if p.m.MatchString(fullText) {
				scores[cat] += p.weight
			}
		}
	}

	// bulk mail headers
	if _, ok := e.Header("List-Unsubscribe"); ok {
		scores[model.EmailTypeMarketing] += 3
	} else if prec, ok := e.Header("Precedence"); ok && strings.EqualFold(strings.TrimSpace(prec), "bulk") {
		scores[model.EmailTypeMarketing] += 3
	}

	from := strings.ToLower(e.From)
	for _, hint := range automatedSenderHints {
		if strings.Contains(from, hint) {
			scores[model.EmailTypeAutomated] += 3
			break
		}
	}

	if signature != "" {
		if strings.Count(signature, "\n") >= 4 {
			scores[model.EmailTypeFormal]++
		}
		if signatureTitleRe.MatchString(signature) {
			scores[model.EmailTypeFormal]++
		}
	}

	if urgentSubjectRe.MatchString(subject) {
		scores[model.EmailTypeTransactional] += 2
	}

	words := len(strings.Fields(body))
	switch {
	case words < 30:
		scores[model.EmailTypeCasual]++
	case words > 200:
		scores[model.EmailTypeFormal]++
	}

	return scores
}

// TimeCharacteristics describes the send time in the sender's own offset.
func (b *BasicExtractor) TimeCharacteristics(date string) model.TimeCharacteristics {
	if strings.TrimSpace(date) == "" {
		return model.TimeCharacteristics{}
	}
	t, err := mail.ParseDate(date)
	if err != nil {
		b.logger.Warn("Error extracting time characteristics", zap.String("date", date), zap.Error(err))
		return model.TimeCharacteristics{}
	}

	hour := t.Hour()
	day := t.Weekday().String()
	weekend := t.Weekday() == 0 || t.Weekday() == 6
	business := hour >= 9 && hour <= 17
	return model.TimeCharacteristics{
		HourOfDay:       &hour,
		DayOfWeek:       &day,
		IsWeekend:       &weekend,
		IsBusinessHours: &business,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
