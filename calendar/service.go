// Package calendar provides the event backends behind the stdio tool
// provider: an in-memory mock and a Google Calendar client.
package calendar

import "context"

// Event is the wire shape of one calendar entry, shared by both backends.
type Event struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Link         string   `json:"link,omitempty"`
	MeetLink     string   `json:"meet_link,omitempty"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	Organizer    string   `json:"organizer,omitempty"`
	Participants []string `json:"participants"`
	Timezone     string   `json:"timezone,omitempty"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
}

// CreateRequest carries the resolved fields for one new event. Start and End
// are local datetimes (YYYY-MM-DDTHH:MM:SS) interpreted in Timezone.
type CreateRequest struct {
	Title        string
	Start        string
	End          string
	Timezone     string
	Participants []string
	Description  string
}

// Service is a calendar backend.
type Service interface {
	CreateEvent(ctx context.Context, req CreateRequest) (*Event, error)
	ListEvents(ctx context.Context, maxResults int) ([]Event, error)
}
