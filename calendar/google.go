package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleConfig locates the OAuth credentials for the live backend.
// Tokens must already exist; there is no interactive consent flow in a
// headless provider process.
type GoogleConfig struct {
	CredentialsFile string `envconfig:"CREDENTIALS_FILE" split_words:"true" default:"credentials.json"`
	TokenFile       string `envconfig:"TOKEN_FILE" split_words:"true" default:"token.json"`
	CalendarID      string `envconfig:"CALENDAR_ID" split_words:"true" default:"primary"`
	SenderEmail     string `envconfig:"SENDER_EMAIL" split_words:"true"`
}

// GoogleService is the live Google Calendar backend.
type GoogleService struct {
	svc        *calendarapi.Service
	calendarID string
	organizer  string
}

var _ Service = (*GoogleService)(nil)

func NewGoogleService(ctx context.Context, cfg GoogleConfig) (*GoogleService, error) {
	credBytes, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	oauthConf, err := google.ConfigFromJSON(credBytes, calendarapi.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokBytes, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokBytes, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}

	svc, err := calendarapi.NewService(ctx, option.WithTokenSource(oauthConf.TokenSource(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	calendarID := strings.TrimSpace(cfg.CalendarID)
	if calendarID == "" {
		calendarID = "primary"
	}

	return &GoogleService{
		svc:        svc,
		calendarID: calendarID,
		organizer:  cfg.SenderEmail,
	}, nil
}

func (g *GoogleService) CreateEvent(ctx context.Context, req CreateRequest) (*Event, error) {
	attendees := make([]*calendarapi.EventAttendee, 0, len(req.Participants))
	for _, email := range req.Participants {
		attendees = append(attendees, &calendarapi.EventAttendee{Email: email})
	}

	body := &calendarapi.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start:       &calendarapi.EventDateTime{DateTime: req.Start, TimeZone: req.Timezone},
		End:         &calendarapi.EventDateTime{DateTime: req.End, TimeZone: req.Timezone},
		Attendees:   attendees,
		Reminders:   &calendarapi.EventReminders{UseDefault: true, ForceSendFields: []string{"UseDefault"}},
		ConferenceData: &calendarapi.ConferenceData{
			CreateRequest: &calendarapi.CreateConferenceRequest{
				RequestId:             strings.ReplaceAll(uuid.NewString(), "-", ""),
				ConferenceSolutionKey: &calendarapi.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, body).
		SendUpdates("all").
		ConferenceDataVersion(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar api error: %w", err)
	}
	log.Info().Str("event_id", created.Id).Msg("calendar event created")

	meetLink := ""
	if created.ConferenceData != nil {
		for _, ep := range created.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" {
				meetLink = ep.Uri
				break
			}
		}
	}

	title := created.Summary
	if title == "" {
		title = req.Title
	}

	return &Event{
		ID:           created.Id,
		Title:        title,
		Link:         created.HtmlLink,
		MeetLink:     meetLink,
		Start:        req.Start,
		End:          req.End,
		Organizer:    g.organizer,
		Participants: req.Participants,
		Timezone:     req.Timezone,
		Description:  req.Description,
		Status:       "confirmed",
	}, nil
}

func (g *GoogleService) ListEvents(ctx context.Context, maxResults int) ([]Event, error) {
	if maxResults <= 0 {
		maxResults = 10
	}

	result, err := g.svc.Events.List(g.calendarID).
		TimeMin(time.Now().UTC().Format(time.RFC3339)).
		MaxResults(int64(maxResults)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar api error: %w", err)
	}

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		participants := make([]string, 0, len(item.Attendees))
		for _, a := range item.Attendees {
			participants = append(participants, a.Email)
		}
		events = append(events, Event{
			ID:           item.Id,
			Title:        item.Summary,
			Start:        eventTime(item.Start),
			End:          eventTime(item.End),
			Participants: participants,
			Link:         item.HtmlLink,
		})
	}
	return events, nil
}

func eventTime(t *calendarapi.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
