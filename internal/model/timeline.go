package model

type UsageSpan struct {
	FirstEmailDate string `json:"first_email_date"`
	LastEmailDate  string `json:"last_email_date"`
	TotalDays      int    `json:"total_days"`
	ActiveMonths   int    `json:"active_months"`
}

type PeakTimes struct {
	Hour  *int   `json:"hour"`
	Day   string `json:"day"`
	Month string `json:"month"`
}

type ActivityPatterns struct {
	Hourly    map[int]int    `json:"hourly"`
	Daily     map[string]int `json:"daily"`
	Monthly   map[string]int `json:"monthly"`
	PeakTimes PeakTimes      `json:"peak_times"`
}

type FrequencyAnalysis struct {
	TotalEmails     int     `json:"total_emails"`
	EmailsPerDay    float64 `json:"emails_per_day"`
	EmailsPerWeek   float64 `json:"emails_per_week"`
	EmailsPerMonth  float64 `json:"emails_per_month"`
	BusiestDay      string  `json:"busiest_day"`
	BusiestDayCount int     `json:"busiest_day_count"`
}

type TimelineSegment struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
	First  string `json:"first"`
	Last   string `json:"last"`
}

type Gap struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Days  float64 `json:"days"`
}

type GapsAnalysis struct {
	LongestGapDays  float64 `json:"longest_gap_days"`
	AverageGapDays  float64 `json:"average_gap_days"`
	SignificantGaps []Gap   `json:"significant_gaps"`
}

// Timeline is the usage timeline across a set of emails.
type Timeline struct {
	UsageSpan         UsageSpan         `json:"usage_span"`
	ActivityPatterns  ActivityPatterns  `json:"activity_patterns"`
	FrequencyAnalysis FrequencyAnalysis `json:"frequency_analysis"`
	TimelineSegments  []TimelineSegment `json:"timeline_segments"`
	GapsAnalysis      GapsAnalysis      `json:"gaps_analysis"`
}
