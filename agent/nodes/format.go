package plannernode

import (
	"fmt"
	"strings"

	statex "github.com/calplan/calplan/agent/state"
)

// formatDetails renders the collected slots as the summary block shown in
// replies. Only fields with values appear; timezone always does.
func formatDetails(slots statex.MeetingSlots, defaultTimezone string) string {
	var lines []string
	if slots.Title != "" {
		lines = append(lines, fmt.Sprintf("📌 Title        : %s", slots.Title))
	}
	if slots.Date != "" {
		lines = append(lines, fmt.Sprintf("📅 Date         : %s", slots.Date))
	}
	if slots.StartTime != "" {
		end := slots.EndTime
		if end == "" {
			end = "—"
		}
		lines = append(lines, fmt.Sprintf("⏰ Time         : %s – %s", slots.StartTime, end))
	}
	tz := slots.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	lines = append(lines, fmt.Sprintf("🌍 Timezone     : %s", tz))
	if len(slots.Participants) > 0 {
		lines = append(lines, fmt.Sprintf("👥 Participants : %s", strings.Join(slots.Participants, ", ")))
	}
	if slots.Description != "" {
		lines = append(lines, fmt.Sprintf("📝 Description  : %s", slots.Description))
	}
	return strings.Join(lines, "\n")
}
