package ingest

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/normalize"
)

// AttendanceParser maps webinar attendance export rows to RawAttendance.
// Attendance rows never carry an order key; linking is waterfall-only.
type AttendanceParser struct {
	Norm normalize.Normalizer
	// InternalDomains marks hosts and staff whose attendance rows are kept
	// but excluded from engagement aggregation.
	InternalDomains []string
}

// Parse converts one attendance row.
func (p AttendanceParser) Parse(row Row) (model.RawAttendance, error) {
	meeting := row.Get("meeting id", "webinar id")
	participant := row.Get("name (original name)", "name", "participant name", "user name")
	if meeting == "" || participant == "" {
		return model.RawAttendance{}, eris.New("ingest: attendance row missing meeting id or participant")
	}

	a := model.RawAttendance{
		MeetingID:       meeting,
		MeetingTopic:    row.Get("topic", "meeting topic"),
		MeetingDate:     row.Get("start time", "date", "meeting date"),
		ParticipantName: participant,
		EmailRaw:        row.Get("user email", "email"),
		DurationMinutes: parseInt(row.Get("duration (minutes)", "duration", "total duration (minutes)")),
		Sessions:        parseInt(row.Get("join count", "sessions")),
	}
	if a.Sessions == 0 {
		a.Sessions = 1
	}

	if email, err := normalize.Email(a.EmailRaw); err == nil {
		a.Email = email
		for _, domain := range p.InternalDomains {
			if strings.HasSuffix(email, "@"+strings.ToLower(domain)) {
				a.Internal = true
				break
			}
		}
	}

	return a, nil
}
