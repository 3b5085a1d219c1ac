package calendar

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Mock is the in-memory backend used when no Google credentials are
// configured. Events live for the life of the process.
type Mock struct {
	mu        sync.Mutex
	events    []Event
	organizer string
	now       func() time.Time
}

var _ Service = (*Mock)(nil)

func NewMock(organizer string) *Mock {
	return &Mock{
		organizer: organizer,
		now:       time.Now,
	}
}

func (m *Mock) CreateEvent(_ context.Context, req CreateRequest) (*Event, error) {
	id := "mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]

	event := Event{
		ID:           id,
		Title:        req.Title,
		Link:         fmt.Sprintf("mock://%s", id),
		Start:        req.Start,
		End:          req.End,
		Organizer:    m.organizer,
		Participants: req.Participants,
		Timezone:     req.Timezone,
		Description:  req.Description,
		Status:       "confirmed (mock)",
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	return &event, nil
}

// ListEvents returns stored events, or one sample event when nothing has
// been created yet so demo clients always have something to render.
func (m *Mock) ListEvents(_ context.Context, maxResults int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.events) == 0 {
		now := m.now()
		return []Event{{
			ID:           "mock_sample",
			Title:        "Sample Meeting",
			Start:        now.Format("2006-01-02T15:04:05"),
			End:          now.Add(time.Hour).Format("2006-01-02T15:04:05"),
			Participants: []string{"demo@example.com"},
			Link:         "mock://mock_sample",
		}}, nil
	}

	if maxResults <= 0 || maxResults > len(m.events) {
		maxResults = len(m.events)
	}
	out := make([]Event, maxResults)
	copy(out, m.events[:maxResults])
	return out, nil
}
