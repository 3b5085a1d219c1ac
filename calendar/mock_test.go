package calendar

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestMockCreateEvent(t *testing.T) {
	t.Parallel()

	m := NewMock("planner@localhost")
	event, err := m.CreateEvent(context.Background(), CreateRequest{
		Title:        "Design Review",
		Start:        "2025-07-15T15:00:00",
		End:          "2025-07-15T16:00:00",
		Timezone:     "Asia/Kolkata",
		Participants: []string{"a@b.com"},
	})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	if !strings.HasPrefix(event.ID, "mock_") || len(event.ID) != len("mock_")+10 {
		t.Fatalf("id = %q, want mock_ plus 10 hex chars", event.ID)
	}
	if event.Link != "mock://"+event.ID {
		t.Fatalf("link = %q", event.Link)
	}
	if event.Organizer != "planner@localhost" {
		t.Fatalf("organizer = %q", event.Organizer)
	}
	if event.Status != "confirmed (mock)" {
		t.Fatalf("status = %q", event.Status)
	}
}

func TestMockListEventsSample(t *testing.T) {
	t.Parallel()

	m := NewMock("planner@localhost")
	events, err := m.ListEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].ID != "mock_sample" {
		t.Fatalf("empty backend should yield the sample event, got %+v", events)
	}
	if events[0].Title != "Sample Meeting" {
		t.Fatalf("sample title = %q", events[0].Title)
	}
}

func TestMockListEventsCapped(t *testing.T) {
	t.Parallel()

	m := NewMock("planner@localhost")
	for i := 0; i < 3; i++ {
		if _, err := m.CreateEvent(context.Background(), CreateRequest{
			Title: fmt.Sprintf("Meeting %d", i),
			Start: fmt.Sprintf("2025-07-1%dT10:00:00", i+5),
			End:   fmt.Sprintf("2025-07-1%dT11:00:00", i+5),
		}); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
	}

	events, err := m.ListEvents(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}

	all, err := m.ListEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want all 3", len(all))
	}
}
