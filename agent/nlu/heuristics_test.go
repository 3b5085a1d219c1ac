package nlu

import (
	"reflect"
	"testing"
	"time"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	now, err := time.Parse(time.RFC3339, "2025-07-14T09:00:00Z")
	if err != nil {
		t.Fatalf("parse fixed time: %v", err)
	}
	return now
}

func TestClassifyRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		phase   statex.Phase
		want    contractx.Intent
		decided bool
	}{
		{"meeting keyword", "schedule a sync with the team", statex.PhaseIdle, contractx.IntentNewRequest, true},
		{"hindi keyword", "ek meeting rakho kal", statex.PhaseIdle, contractx.IntentNewRequest, true},
		{"email plus time", "raj@gmail.com at 3pm", statex.PhaseIdle, contractx.IntentNewRequest, true},
		{"date plus time", "tomorrow at 15:00", statex.PhaseIdle, contractx.IntentNewRequest, true},
		{"confirm while confirming", "yes please", statex.PhaseConfirming, contractx.IntentConfirmation, true},
		{"hindi confirm", "haan kar do", statex.PhaseConfirming, contractx.IntentConfirmation, true},
		{"deny while confirming", "nahi, cancel karo", statex.PhaseConfirming, contractx.IntentDenial, true},
		{"short answer while collecting", "project review", statex.PhaseCollecting, contractx.IntentNewRequest, true},
		{"email answer while collecting", "raj@gmail.com", statex.PhaseCollecting, contractx.IntentNewRequest, true},
		{"small talk undecided", "how is the weather in your world", statex.PhaseIdle, contractx.IntentGeneral, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, decided := classifyRules(tt.message, tt.phase)
			if got != tt.want || decided != tt.decided {
				t.Fatalf("classifyRules(%q, %s) = (%s, %v), want (%s, %v)",
					tt.message, tt.phase, got, decided, tt.want, tt.decided)
			}
		})
	}
}

func TestExtractRulesEmails(t *testing.T) {
	t.Parallel()

	patch := extractRules("invite raj@gmail.com and priya.k+test@corp.co.in", fixedNow(t))
	want := []string{"raj@gmail.com", "priya.k+test@corp.co.in"}
	if !reflect.DeepEqual(patch.Participants, want) {
		t.Fatalf("Participants = %v, want %v", patch.Participants, want)
	}
}

func TestExtractRulesDates(t *testing.T) {
	t.Parallel()

	now := fixedNow(t)
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"dmy slashes", "meeting on 15/07/2025", "2025-07-15"},
		{"dmy dashes", "meeting on 5-7-2025", "2025-07-05"},
		{"iso", "meeting on 2025-07-20", "2025-07-20"},
		{"tomorrow", "meeting tomorrow", "2025-07-15"},
		{"kal", "kal meeting rakho", "2025-07-15"},
		{"today", "aaj schedule karo", "2025-07-14"},
		{"day after", "parso chalega", "2025-07-16"},
		{"none", "schedule something", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			patch := extractRules(tt.message, now)
			if patch.Date != tt.want {
				t.Fatalf("Date = %q, want %q", patch.Date, tt.want)
			}
		})
	}
}

func TestExtractRulesClockTimes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"pm", "at 3 pm", "15:00"},
		{"pm no space", "at 3PM", "15:00"},
		{"am midnight", "12 am works", "00:00"},
		{"24h", "start at 15:30", "15:30"},
		{"half past pm", "3:30 pm", "15:30"},
		{"baje evening", "5 baje", "17:00"},
		{"baje late", "9 baje", "09:00"},
		{"date digits ignored", "on 15/07/2025 at 4pm", "16:00"},
		{"bare number skipped", "need 2 rooms", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			patch := extractRules(tt.message, fixedNow(t))
			if patch.StartTime != tt.want {
				t.Fatalf("StartTime = %q, want %q", patch.StartTime, tt.want)
			}
		})
	}
}

func TestExtractRulesTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"quoted", `schedule "Q3 Planning" tomorrow at 3pm`, "Q3 Planning"},
		{"labelled", "title: Project Review with raj@gmail.com", "Project Review"},
		{"residue", "schedule a project review meeting tomorrow at 3pm", "project review"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			patch := extractRules(tt.message, fixedNow(t))
			if patch.Title != tt.want {
				t.Fatalf("Title = %q, want %q", patch.Title, tt.want)
			}
		})
	}
}
