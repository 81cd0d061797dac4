package model

import "time"

// Email types, in tie-break order.
const (
	EmailTypeFormal        = "formal"
	EmailTypeCasual        = "casual"
	EmailTypeTransactional = "transactional"
	EmailTypeMarketing     = "marketing"
	EmailTypeAutomated     = "automated"
)

// Polarity labels.
const (
	PolarityPositive = "positive"
	PolarityNegative = "negative"
	PolarityNeutral  = "neutral"
)

// TimeCharacteristics describes when an email was sent. Nil fields mean the
// date was missing or unparsable.
type TimeCharacteristics struct {
	HourOfDay       *int    `json:"hour_of_day"`
	DayOfWeek       *string `json:"day_of_week"`
	IsWeekend       *bool   `json:"is_weekend"`
	IsBusinessHours *bool   `json:"is_business_hours"`
}

type LanguageScore struct {
	Lang       string  `json:"lang"`
	Confidence float64 `json:"confidence"`
}

type ComponentSentiment struct {
	Score     float64 `json:"score"`
	Magnitude float64 `json:"magnitude"`
	Polarity  string  `json:"polarity"`
}

type Emotion struct {
	Emotion   string  `json:"emotion"`
	Intensity float64 `json:"intensity"`
}

type Sentiment struct {
	OverallScore float64                       `json:"overall_score"`
	Components   map[string]ComponentSentiment `json:"components"`
	Emotions     []Emotion                     `json:"emotions"`
	Confidence   float64                       `json:"confidence"`
}

// Topic types.
const (
	TopicTypePhrase = "phrase"
	TopicTypeEntity = "entity"
)

type Topic struct {
	Topic string  `json:"topic"`
	Score float64 `json:"score"`
	Type  string  `json:"type"`
}

// JobInfo is the best job/company guess for the sender.
type JobInfo struct {
	JobTitle        *string `json:"job_title"`
	Company         *string `json:"company"`
	Department      *string `json:"department"`
	ConfidenceScore float64 `json:"confidence_score"`
	Source          *string `json:"source"`
}

// AnalysisResult is one row of the analysis output.
type AnalysisResult struct {
	Timestamp  time.Time           `json:"timestamp"`
	RunID      string              `json:"run_id"`
	EmailID    string              `json:"email_id"`
	MessageKey string              `json:"message_key"`
	Subject    string              `json:"subject"`
	Date       string              `json:"date"`
	From       string              `json:"from"`
	To         string              `json:"to"`
	FullName   string              `json:"full_name"`
	Gender     string              `json:"gender"`
	Phone      *string             `json:"phone"`
	Address    *string             `json:"address"`
	Location   *string             `json:"location"`
	Job        JobInfo             `json:"job"`
	EmailType  string              `json:"email_type"`
	Activity   TimeCharacteristics `json:"active_email_usage_timeline"`
	Languages  []LanguageScore     `json:"languages"`
	Sentiment  Sentiment           `json:"sentiment"`
	Topics     []Topic             `json:"topics"`
}

// PrimaryLanguage is the most likely language code, or "".
func (r *AnalysisResult) PrimaryLanguage() string {
	if len(r.Languages) == 0 {
		return ""
	}
	return r.Languages[0].Lang
}
