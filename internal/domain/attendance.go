package domain

import "time"

// AttendanceRecord is the single check-in fact of an attendee.
type AttendanceRecord struct {
	ID         string
	AttendeeID string
	EntryTime  time.Time
	CreatedAt  time.Time
}

// CheckInState is the outcome of a scan.
type CheckInState string

const (
	CheckInMarked        CheckInState = "marked"
	CheckInAlreadyMarked CheckInState = "already_marked"
)

// CheckInResult is returned by a scan; EntryTime is the stored time on repeats.
type CheckInResult struct {
	State     CheckInState
	Attendee  Attendee
	EntryTime time.Time
}

func (r CheckInResult) AlreadyMarked() bool {
	return r.State == CheckInAlreadyMarked
}
