package contract

// Intent classifies one inbound message for routing.
type Intent string

const (
	IntentNewRequest   Intent = "new_request"
	IntentConfirmation Intent = "confirmation"
	IntentDenial       Intent = "denial"
	IntentModification Intent = "modification"
	IntentGeneral      Intent = "general"

	// Derived by the completeness check, never emitted by the NLU provider.
	IntentIncomplete Intent = "incomplete"
	IntentComplete   Intent = "complete"
)

// Tool names exposed by the calendar provider process.
const (
	ToolCreateMeeting     = "create_meeting"
	ToolListMeetings      = "list_meetings"
	ToolCheckAvailability = "check_availability"
)

// ErrorOf extracts the application-level error field from a decoded tool
// payload. Tool providers report per-call failures as {"error": "..."}
// objects rather than protocol faults.
func ErrorOf(result any) (string, bool) {
	obj, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := obj["error"].(string)
	if !ok || msg == "" {
		return "", false
	}
	return msg, true
}
