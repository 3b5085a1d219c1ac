package nlu

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

var (
	emailPattern   = regexp.MustCompile(`[\w.+-]+@[\w.-]+\.\w+`)
	dmyDatePattern = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`)
	isoDatePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	clockPattern   = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm|baje)?\b`)
	timeHint       = regexp.MustCompile(`(?i)\d{1,2}\s*(am|pm|baje|:)`)
	quotedPattern  = regexp.MustCompile(`["'](.+?)["']`)
	titleLabel     = regexp.MustCompile(`(?i)title\s*[-:]\s*(.+?)(?:\s+on\s|\s+at\s|\s+with\s|\s+mail|\s+email|\s+time|\s+date|\d|$)`)
	punctRuns      = regexp.MustCompile(`[,\-.:—–]+`)
)

var confirmWords = []string{
	"yes", "yep", "yeah", "sure", "ok", "okay", "confirm",
	"go ahead", "haan", "ha", "yes please", "theek hai",
	"thik hai", "kar do", "kardo", "done", "agreed",
}

var denyWords = []string{
	"no", "nope", "cancel", "stop", "nahi", "nah",
	"don't", "dont", "mat karo", "band karo", "ruko", "cancel karo",
}

var meetingKeywords = []string{
	"schedule", "meeting", "book", "create", "set up", "setup",
	"interview", "rakho", "rakh", "karo", "banao", "bana",
	"calendar", "appointment", "call", "sync", "standup",
	"plan", "arrange",
}

var dateWords = []string{"tomorrow", "kal", "today", "aaj", "parso", "tmrw"}

// titleStopwords are filler tokens stripped when guessing a title from the
// residue of a message.
var titleStopwords = map[string]bool{
	"schedule": true, "meeting": true, "set": true, "up": true, "a": true,
	"with": true, "on": true, "at": true, "for": true, "about": true,
	"the": true, "please": true, "create": true, "book": true, "rakho": true,
	"rakh": true, "do": true, "karo": true, "ek": true, "ka": true,
	"ki": true, "ke": true, "ko": true, "me": true, "mein": true,
	"hai": true, "hain": true, "tomorrow": true, "today": true, "kal": true,
	"aaj": true, "title": true, "mail": true, "id": true, "email": true,
	"time": true, "date": true, "parso": true, "interview": true,
	"se": true, "baje": true, "and": true, "-": true, ",": true, ".": true,
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var wordPunct = strings.NewReplacer(",", " ", ".", " ", "!", " ", "?", " ", ";", " ", ":", " ")

// matchesVocab reports whether any vocabulary entry appears as a whole word
// or phrase. Substring checks are too eager here ("nahi" contains "ha").
func matchesVocab(lower string, words []string) bool {
	normalized := " " + wordPunct.Replace(lower) + " "
	for _, w := range words {
		if strings.Contains(normalized, " "+w+" ") {
			return true
		}
	}
	return false
}

// classifyRules is the deterministic classification fast-path. The second
// return value reports whether the rules reached a verdict; when false the
// caller may consult the model before defaulting to IntentGeneral.
func classifyRules(message string, phase statex.Phase) (contractx.Intent, bool) {
	lower := strings.ToLower(strings.TrimSpace(message))

	if phase == statex.PhaseConfirming {
		if matchesVocab(lower, confirmWords) {
			return contractx.IntentConfirmation, true
		}
		if matchesVocab(lower, denyWords) {
			return contractx.IntentDenial, true
		}
	}

	hasKeyword := containsAny(lower, meetingKeywords)
	hasEmail := emailPattern.MatchString(message)
	hasDate := dmyDatePattern.MatchString(message) || isoDatePattern.MatchString(message) ||
		containsAny(lower, dateWords)
	hasTime := timeHint.MatchString(lower)

	if hasKeyword {
		return contractx.IntentNewRequest, true
	}
	if hasEmail && (hasDate || hasTime) {
		return contractx.IntentNewRequest, true
	}
	if hasDate && hasTime {
		return contractx.IntentNewRequest, true
	}

	// While collecting, short answers are almost always responses to the
	// missing-field questions.
	if phase == statex.PhaseCollecting {
		if hasEmail || hasDate || hasTime {
			return contractx.IntentNewRequest, true
		}
		if len(strings.Fields(lower)) <= 8 && !containsAny(lower, []string{"hi", "hello", "hey", "kya", "kaisa"}) {
			return contractx.IntentNewRequest, true
		}
	}

	return contractx.IntentGeneral, false
}

// extractRules is the best-effort regex extractor used to fill whatever the
// model missed. It handles emails, numeric and relative dates, clock times
// with an optional meridiem, and a title guessed from the leftover words.
func extractRules(message string, now time.Time) statex.SlotPatch {
	var patch statex.SlotPatch
	lower := strings.ToLower(message)

	if emails := emailPattern.FindAllString(message, -1); len(emails) > 0 {
		patch.Participants = emails
	}

	patch.Date = extractDate(message, lower, now)
	patch.StartTime = extractClockTime(message)

	if title := extractTitle(message); title != "" {
		patch.Title = title
	}

	return patch
}

func extractDate(message, lower string, now time.Time) string {
	if m := dmyDatePattern.FindStringSubmatch(message); m != nil {
		// day/month/year order, as users around here write it
		if t, err := time.Parse("2-1-2006", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := isoDatePattern.FindString(message); m != "" {
		return m
	}
	switch {
	case containsAny(lower, []string{"tomorrow", "kal", "tmrw"}):
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case containsAny(lower, []string{"today", "aaj", "abhi"}):
		return now.Format("2006-01-02")
	case strings.Contains(lower, "parso") || strings.Contains(lower, "day after"):
		return now.AddDate(0, 0, 2).Format("2006-01-02")
	}
	return ""
}

// extractClockTime finds the first plausible time of day. Dates and emails
// are blanked first so their digits are not mistaken for an hour. A bare
// hour with no meridiem is taken as written (AM below 13), matching the
// source heuristic.
func extractClockTime(message string) string {
	cleaned := emailPattern.ReplaceAllString(message, " ")
	cleaned = dmyDatePattern.ReplaceAllString(cleaned, " ")
	cleaned = isoDatePattern.ReplaceAllString(cleaned, " ")

	for _, m := range clockPattern.FindAllStringSubmatch(cleaned, -1) {
		hour := atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		period := strings.ToLower(m[3])

		// A bare number with neither minutes nor meridiem is too ambiguous
		// to take as a time.
		if m[2] == "" && period == "" {
			continue
		}

		switch {
		case period == "pm" && hour < 12:
			hour += 12
		case period == "am" && hour == 12:
			hour = 0
		case period == "baje" && hour < 7:
			hour += 12
		}
		if hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}
	return ""
}

func extractTitle(message string) string {
	if m := quotedPattern.FindStringSubmatch(message); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	if m := titleLabel.FindStringSubmatch(message); m != nil {
		t := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[1]), ",-"))
		if t != "" {
			return t
		}
	}

	residue := emailPattern.ReplaceAllString(message, "")
	residue = dmyDatePattern.ReplaceAllString(residue, "")
	residue = isoDatePattern.ReplaceAllString(residue, "")
	residue = clockPattern.ReplaceAllString(residue, "")
	residue = punctRuns.ReplaceAllString(residue, " ")

	var kept []string
	for _, w := range strings.Fields(residue) {
		if !titleStopwords[strings.ToLower(w)] {
			kept = append(kept, w)
		}
	}
	meaningful := strings.TrimSpace(strings.Join(kept, " "))
	if len(meaningful) > 2 {
		return meaningful
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
