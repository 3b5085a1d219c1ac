package state

import "time"

// RequiredFields are the slots that must be filled before a meeting can be
// confirmed, in the order missing-field questions are asked.
var RequiredFields = []string{FieldTitle, FieldDate, FieldStartTime, FieldParticipants}

const (
	FieldTitle        = "title"
	FieldDate         = "date"
	FieldStartTime    = "start_time"
	FieldEndTime      = "end_time"
	FieldTimezone     = "timezone"
	FieldParticipants = "participants"
	FieldDescription  = "description"
)

// MeetingSlots is the meeting record assembled across turns. Zero values mean
// "not yet known"; Date is YYYY-MM-DD and times are HH:MM (24h).
type MeetingSlots struct {
	Title        string   `json:"title,omitempty"`
	Date         string   `json:"date,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// SlotPatch is the result of one extraction pass. Fields left empty are
// absent and must not disturb previously collected values.
type SlotPatch struct {
	Title        string   `json:"title,omitempty"`
	Date         string   `json:"date,omitempty"`
	StartTime    string   `json:"start_time,omitempty"`
	EndTime      string   `json:"end_time,omitempty"`
	Timezone     string   `json:"timezone,omitempty"`
	Participants []string `json:"participants,omitempty"`
	Description  string   `json:"description,omitempty"`
}

// IsEmpty reports whether the patch carries no values at all.
func (p SlotPatch) IsEmpty() bool {
	return p.Title == "" && p.Date == "" && p.StartTime == "" && p.EndTime == "" &&
		p.Timezone == "" && len(p.Participants) == 0 && p.Description == ""
}

// Merge folds a patch into the slot set. A field already holding a non-empty
// value is only replaced by another non-empty value; an empty extraction
// never erases known data.
func (m *MeetingSlots) Merge(p SlotPatch) {
	if p.Title != "" {
		m.Title = p.Title
	}
	if p.Date != "" {
		m.Date = p.Date
	}
	if p.StartTime != "" {
		m.StartTime = p.StartTime
	}
	if p.EndTime != "" {
		m.EndTime = p.EndTime
	}
	if p.Timezone != "" {
		m.Timezone = p.Timezone
	}
	if len(p.Participants) > 0 {
		m.Participants = append([]string(nil), p.Participants...)
	}
	if p.Description != "" {
		m.Description = p.Description
	}
}

// ApplyDefaults fills the timezone the first time it is unset and derives a
// one-hour end time from the start time. An explicit end time is never
// overwritten. Runs once per turn, after Merge.
func (m *MeetingSlots) ApplyDefaults(defaultTimezone string) {
	if m.Timezone == "" {
		m.Timezone = defaultTimezone
	}
	if m.StartTime != "" && m.EndTime == "" {
		if end, ok := addHour(m.StartTime); ok {
			m.EndTime = end
		}
	}
}

// addHour shifts a bare HH:MM time of day forward one hour, wrapping past
// midnight ("23:30" -> "00:30").
func addHour(clock string) (string, bool) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return "", false
	}
	return t.Add(time.Hour).Format("15:04"), true
}

// Missing returns the required fields that are still absent or empty, in
// RequiredFields order. end_time, timezone and description never appear here.
func (m MeetingSlots) Missing() []string {
	var missing []string
	for _, f := range RequiredFields {
		switch f {
		case FieldTitle:
			if m.Title == "" {
				missing = append(missing, f)
			}
		case FieldDate:
			if m.Date == "" {
				missing = append(missing, f)
			}
		case FieldStartTime:
			if m.StartTime == "" {
				missing = append(missing, f)
			}
		case FieldParticipants:
			if len(m.Participants) == 0 {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

// Complete reports whether every required field is present.
func (m MeetingSlots) Complete() bool {
	return len(m.Missing()) == 0
}

// HasAny reports whether anything at all has been collected yet.
func (m MeetingSlots) HasAny() bool {
	return m.Title != "" || m.Date != "" || m.StartTime != "" ||
		len(m.Participants) > 0 || m.Description != ""
}

func (m MeetingSlots) Clone() MeetingSlots {
	out := m
	out.Participants = append([]string(nil), m.Participants...)
	return out
}
