package caldav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"

	productID = "-//MediRemind//CalDAV//EN"
)

var ErrCalendarNotSet = errors.New("calendar path not specified")

// Client is a CalDAV client for a single calendar
type Client struct {
	baseURL    string
	username   string
	password   string
	calendarID string // Optional: specific calendar to use
	client     *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// SetCalendarID sets the calendar to use
func (c *Client) SetCalendarID(id string) {
	c.calendarID = id
}

func (c *Client) CalendarID() string {
	return c.calendarID
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// ListEvents returns every event in the calendar
func (c *Client) ListEvents(ctx context.Context) ([]Event, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}
	if c.calendarID == "" {
		return nil, ErrCalendarNotSet
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT"}},
		},
	}

	objects, err := client.QueryCalendar(ctx, c.calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []Event
	for _, obj := range objects {
		event, err := parseCalendar(obj.Data)
		if err != nil {
			continue // Skip invalid events
		}
		events = append(events, event)
	}

	return events, nil
}

// PutEvent creates or replaces the event stored under event.UID
func (c *Client) PutEvent(ctx context.Context, event *Event) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	if c.calendarID == "" {
		return ErrCalendarNotSet
	}
	if event.UID == "" {
		return errors.New("event UID is required")
	}

	if _, err := client.PutCalendarObject(ctx, c.eventPath(event.UID), eventToICS(event, time.Now())); err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	return nil
}

// DeleteEvent deletes an event by UID
func (c *Client) DeleteEvent(ctx context.Context, eventUID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}
	if c.calendarID == "" {
		return ErrCalendarNotSet
	}

	if err := client.RemoveAll(ctx, c.eventPath(eventUID)); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (c *Client) eventPath(uid string) string {
	p := c.calendarID
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p + uid + ".ics"
}

// parseCalendar extracts the first VEVENT of cal
func parseCalendar(cal *ical.Calendar) (Event, error) {
	event := Event{}

	if cal == nil {
		return event, errors.New("no data in calendar object")
	}

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			event.UID = prop.Value
		}
		if prop := comp.Props.Get(ical.PropSummary); prop != nil {
			event.Summary, _ = prop.Text()
		}
		if prop := comp.Props.Get(ical.PropDescription); prop != nil {
			event.Description, _ = prop.Text()
		}
		if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil {
				event.StartTime = t
			}
		}
		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if t, err := prop.DateTime(time.UTC); err == nil {
				event.EndTime = t
			}
		}
		if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
			event.RRule = prop.Value
		}
		for _, child := range comp.Children {
			if child.Name == ical.CompAlarm {
				event.Alarm = true
			}
		}
		return event, nil
	}

	return event, errors.New("no VEVENT in calendar object")
}

// eventToICS converts an Event to iCalendar format
func eventToICS(event *Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}

	// UTC avoids shipping a VTIMEZONE
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
	if !event.EndTime.IsZero() {
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())
	}
	if event.RRule != "" {
		vevent.Props.Set(&ical.Prop{Name: ical.PropRecurrenceRule, Params: make(ical.Params), Value: event.RRule})
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if event.Alarm {
		alarm := ical.NewComponent(ical.CompAlarm)
		alarm.Props.SetText(ical.PropAction, "DISPLAY")
		alarm.Props.Set(&ical.Prop{Name: ical.PropTrigger, Params: make(ical.Params), Value: "-PT0M"})
		alarm.Props.SetText(ical.PropDescription, event.Summary)
		vevent.Children = append(vevent.Children, alarm)
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// SerializeCalendar converts calendar to string (for debugging)
func SerializeCalendar(cal *ical.Calendar) string {
	var buf bytes.Buffer
	enc := ical.NewEncoder(&buf)
	_ = enc.Encode(cal)
	return buf.String()
}
