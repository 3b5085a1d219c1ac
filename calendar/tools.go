package calendar

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/calplan/calplan/pkg/mcp"
)

// RegisterTools wires the calendar backend onto a tool provider. Backend
// failures are reported inside the payload as {"error": "..."} so clients
// can tell a broken calendar from a broken connection.
func RegisterTools(srv *mcp.Server, svc Service) {
	srv.Register(mcp.ToolInfo{
		Name:        "create_meeting",
		Description: "Create a calendar meeting. Date is YYYY-MM-DD, times are HH:MM (24h), timezone is an IANA name.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":        map[string]any{"type": "string"},
				"date":         map[string]any{"type": "string"},
				"start_time":   map[string]any{"type": "string"},
				"end_time":     map[string]any{"type": "string"},
				"timezone":     map[string]any{"type": "string"},
				"participants": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"description":  map[string]any{"type": "string"},
			},
			"required": []string{"title", "date", "start_time", "end_time", "timezone", "participants"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return createMeeting(ctx, svc, args)
	})

	srv.Register(mcp.ToolInfo{
		Name:        "list_meetings",
		Description: "List upcoming calendar meetings.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"max_results": map[string]any{"type": "integer"},
			},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return listMeetings(ctx, svc, args)
	})

	srv.Register(mcp.ToolInfo{
		Name:        "check_availability",
		Description: "Check whether a time slot is free of conflicting meetings.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"date":       map[string]any{"type": "string"},
				"start_time": map[string]any{"type": "string"},
				"end_time":   map[string]any{"type": "string"},
				"timezone":   map[string]any{"type": "string"},
			},
			"required": []string{"date", "start_time", "end_time"},
		},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		return checkAvailability(ctx, svc, args)
	})
}

func createMeeting(ctx context.Context, svc Service, args map[string]any) (string, error) {
	req := CreateRequest{
		Title:        stringArg(args, "title"),
		Start:        fmt.Sprintf("%sT%s:00", stringArg(args, "date"), stringArg(args, "start_time")),
		End:          fmt.Sprintf("%sT%s:00", stringArg(args, "date"), stringArg(args, "end_time")),
		Timezone:     stringArg(args, "timezone"),
		Participants: stringSliceArg(args, "participants"),
		Description:  stringArg(args, "description"),
	}

	event, err := svc.CreateEvent(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("create_meeting failed")
		return errorPayload(err), nil
	}
	log.Info().Str("event_id", event.ID).Msg("meeting created")
	return marshalPayload(event)
}

func listMeetings(ctx context.Context, svc Service, args map[string]any) (string, error) {
	maxResults := intArg(args, "max_results", 10)

	events, err := svc.ListEvents(ctx, maxResults)
	if err != nil {
		log.Error().Err(err).Msg("list_meetings failed")
		return errorPayload(err), nil
	}
	return marshalPayload(events)
}

// checkAvailability reports conflicts by lexicographic overlap of the local
// datetime strings, which is sound for same-format timestamps.
func checkAvailability(ctx context.Context, svc Service, args map[string]any) (string, error) {
	events, err := svc.ListEvents(ctx, 50)
	if err != nil {
		log.Error().Err(err).Msg("check_availability failed")
		return errorPayload(err), nil
	}

	date := stringArg(args, "date")
	targetStart := fmt.Sprintf("%sT%s:00", date, stringArg(args, "start_time"))
	targetEnd := fmt.Sprintf("%sT%s:00", date, stringArg(args, "end_time"))

	conflicts := make([]Event, 0)
	for _, e := range events {
		if e.Start < targetEnd && e.End > targetStart {
			conflicts = append(conflicts, e)
		}
	}

	return marshalPayload(map[string]any{
		"available": len(conflicts) == 0,
		"conflicts": conflicts,
	})
}

func marshalPayload(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorPayload(err), nil
	}
	return string(data), nil
}

func errorPayload(err error) string {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(data)
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, _ := args[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
