package extractor

import (
	"testing"

	"go.uber.org/zap"

	"emailanalyser/internal/model"
)

func TestEmailType(t *testing.T) {
	tests := []struct {
		name  string
		email *model.Email
		want  string
	}{
		{
			name: "marketing with unsubscribe header",
			email: &model.Email{
				Subject: "Big sale",
				Body:    "Big sale on everything, 50% off. Subscribe to our newsletter.",
				Headers: map[string]string{"List-Unsubscribe": "<mailto:unsub@shop.example>"},
			},
			want: model.EmailTypeMarketing,
		},
		{
			name: "automated sender",
			email: &model.Email{
				From:    "noreply@system.example.com",
				Subject: "Ticket update",
				Body:    "This is an automated notification. Ticket #123 has been updated.",
			},
			want: model.EmailTypeAutomated,
		},
		{
			name: "formal",
			email: &model.Email{
				Subject: "Proposal",
				Body: "Dear Mr. Smith,\n\nPlease find attached the proposal regarding the contract. " +
					"I look forward to your reply.\n\nSincerely,\nJohn",
			},
			want: model.EmailTypeFormal,
		},
		{
			name:  "casual wins a tie with formal",
			email: &model.Email{Body: "Dear Bob, great"},
			want:  model.EmailTypeCasual,
		},
		{
			name:  "automated wins a tie with transactional",
			email: &model.Email{Body: "system update"},
			want:  model.EmailTypeAutomated,
		},
		{
			name:  "bulk precedence",
			email: &model.Email{Body: "hello", Headers: map[string]string{"Precedence": " Bulk "}},
			want:  model.EmailTypeMarketing,
		},
	}

	b := NewBasicExtractor(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.EmailType(tt.email); got != tt.want {
				t.Errorf("EmailType() = %q, want %q (scores %v)", got, tt.want, b.scoreEmailType(tt.email))
			}
		})
	}
}

func TestGreetingMatcherIgnoresSignOff(t *testing.T) {
	m := emailTypePatterns[model.EmailTypeCasual][0].m
	if m.MatchString("hi all, kind regards") {
		t.Error("greeting followed by regards on the same line should not match")
	}
	if !m.MatchString("hi all\nkind regards") {
		t.Error("greeting on its own line should match")
	}
}

func TestTimeCharacteristics(t *testing.T) {
	b := NewBasicExtractor(zap.NewNop())

	tc := b.TimeCharacteristics("Sat, 14 Oct 2023 10:15:00 +0200")
	if tc.HourOfDay == nil || *tc.HourOfDay != 10 {
		t.Fatalf("hour = %v", tc.HourOfDay)
	}
	if *tc.DayOfWeek != "Saturday" {
		t.Errorf("day = %q", *tc.DayOfWeek)
	}
	if !*tc.IsWeekend {
		t.Error("expected weekend")
	}
	if !*tc.IsBusinessHours {
		t.Error("expected business hours")
	}

	evening := b.TimeCharacteristics("Tue, 10 Oct 2023 18:00:00 +0000")
	if *evening.IsBusinessHours || *evening.IsWeekend {
		t.Errorf("unexpected characteristics %+v", evening)
	}

	for _, date := range []string{"", "not a date"} {
		tc := b.TimeCharacteristics(date)
		if tc.HourOfDay != nil || tc.DayOfWeek != nil || tc.IsWeekend != nil || tc.IsBusinessHours != nil {
			t.Errorf("expected all nil for %q, got %+v", date, tc)
		}
	}
}

func TestNewsletterMentionWeight(t *testing.T) {
	b := NewBasicExtractor(zap.NewNop())
	scores := b.scoreEmailType(&model.Email{Body: "Read the weekly newsletter"})
	if got := scores[model.EmailTypeMarketing]; got != 1 {
		t.Errorf("marketing score = %d, want 1", got)
	}
}
