package application

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// InviteGenerator renders iCalendar invitation documents for events.
type InviteGenerator struct {
	prodID       string
	uidGenerator func() string
	now          func() time.Time
}

// NewInviteGenerator wires dependencies for invite rendering. The UID
// generator and clock are injectable so output is deterministic in tests.
func NewInviteGenerator(prodID string, uidGenerator func() string, now func() time.Time) *InviteGenerator {
	if prodID == "" {
		prodID = "-//eventcal//EN"
	}
	if uidGenerator == nil {
		uidGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &InviteGenerator{
		prodID:       prodID,
		uidGenerator: uidGenerator,
		now:          now,
	}
}

// Placeholder text for optional fields. Calendar clients are intolerant of
// missing lines, so absent values render as fixed text rather than being
// dropped.
const (
	placeholderDescription = "No description provided"
	placeholderLocation    = "No location specified"
)

// Generate renders a METHOD:REQUEST invitation for the event. All attendees
// appear in the single document; the same bytes are attached to every
// recipient's invite mail.
func (g *InviteGenerator) Generate(event Event, organizerEmail string) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("InviteGenerator is nil")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, g.prodID)
	cal.Props.SetText(ical.PropMethod, "REQUEST")

	vevent := ical.NewComponent(ical.CompEvent)
	vevent.Props.SetText(ical.PropUID, g.uidGenerator())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, g.now().UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	vevent.Props.SetText(ical.PropSummary, event.Title)
	vevent.Props.SetText(ical.PropStatus, "CONFIRMED")
	vevent.Props.SetText(ical.PropTransparency, "OPAQUE")

	// SEQUENCE is an INTEGER property and ORGANIZER/ATTENDEE are CAL-ADDRESS,
	// so their values are assigned raw. SetText would tag each line with a
	// spurious VALUE=TEXT parameter that calendar clients reject.
	sequence := ical.NewProp(ical.PropSequence)
	sequence.Value = "0"
	vevent.Props.Set(sequence)

	description := placeholderDescription
	if event.Description != nil && *event.Description != "" {
		description = *event.Description
	}
	vevent.Props.SetText(ical.PropDescription, description)

	location := placeholderLocation
	if event.Location != nil && *event.Location != "" {
		location = *event.Location
	}
	vevent.Props.SetText(ical.PropLocation, location)

	if organizerEmail != "" {
		organizer := ical.NewProp(ical.PropOrganizer)
		organizer.Value = fmt.Sprintf("mailto:%s", organizerEmail)
		vevent.Props.Add(organizer)
	}

	for _, attendee := range event.Attendees {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Params.Set("RSVP", "TRUE")
		prop.Params.Set("PARTSTAT", "NEEDS-ACTION")
		prop.Value = fmt.Sprintf("mailto:%s", attendee.Email)
		vevent.Props.Add(prop)
	}

	cal.Children = append(cal.Children, vevent)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode invite: %w", err)
	}
	return buf.Bytes(), nil
}
