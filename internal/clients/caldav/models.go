package caldav

import "time"

// Calendar represents a CalDAV calendar collection
type Calendar struct {
	ID          string // Calendar path/URL
	DisplayName string
	URL         string
}

// Event represents a recurring calendar event
type Event struct {
	UID         string // Unique ID in CalDAV
	Summary     string // Title
	Description string
	StartTime   time.Time
	EndTime     time.Time
	RRule       string // Recurrence rule (e.g., "FREQ=WEEKLY;BYDAY=MO")
	Alarm       bool   // Attach a VALARM firing at the start time
}
