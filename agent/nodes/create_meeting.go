package plannernode

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/calplan/calplan/agent/contract"
	statex "github.com/calplan/calplan/agent/state"
)

// CreateMeeting invokes the calendar provider with the confirmed slots.
// Transport trouble surfaces as an error payload from the invoker, application
// errors arrive the same way; both land the session in the error phase with a
// readable reply rather than failing the turn.
func CreateMeeting(ctx context.Context, in *GraphState, tools contractx.ToolInvoker, organizerFallback, defaultTimezone string) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	slots := in.Session.Slots
	log.Info().Str("session_id", in.SessionID).Interface("meeting_info", slots).Msg("creating meeting")

	title := slots.Title
	if title == "" {
		title = "Meeting"
	}
	endTime := slots.EndTime
	if endTime == "" {
		endTime = slots.StartTime
	}
	timezone := slots.Timezone
	if timezone == "" {
		timezone = defaultTimezone
	}
	participants := slots.Participants
	if participants == nil {
		participants = []string{}
	}

	result := tools.CallTool(ctx, contractx.ToolCreateMeeting, map[string]any{
		"title":        title,
		"date":         slots.Date,
		"start_time":   slots.StartTime,
		"end_time":     endTime,
		"timezone":     timezone,
		"participants": participants,
		"description":  slots.Description,
	})

	if msg, failed := contractx.ErrorOf(result); failed {
		in.Reply = fmt.Sprintf("❌ Failed to create meeting: %s", msg)
		in.Session.Phase = statex.PhaseError
		return in, nil
	}

	event, _ := result.(map[string]any)
	link := stringField(event, "link")
	meetLink := stringField(event, "meet_link")
	organizer := stringField(event, "organizer")
	if organizer == "" {
		organizer = organizerFallback
	}

	var b strings.Builder
	b.WriteString("🎉 **Meeting created successfully!**\n\n")
	b.WriteString(formatDetails(slots, defaultTimezone))
	fmt.Fprintf(&b, "\n📧 Organizer    : %s\n\n", organizer)
	if meetLink != "" {
		fmt.Fprintf(&b, "📹 **Google Meet**: %s\n", meetLink)
	}
	if link != "" {
		fmt.Fprintf(&b, "🔗 Calendar link : %s\n", link)
	}
	b.WriteString("\nWant to schedule another meeting?")

	in.Reply = b.String()
	in.Session.Phase = statex.PhaseCreated
	return in, nil
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
