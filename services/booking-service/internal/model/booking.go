package model

import "time"

type BookingState string

const (
	StateConfirmed       BookingState = "confirmed"
	StateCancelledByUser BookingState = "cancelled_by_user"
	StateCancelledByHost BookingState = "cancelled_by_host"
)

func (s BookingState) IsCancelled() bool {
	return s == StateCancelledByUser || s == StateCancelledByHost
}

// CancelParty is who asked for a cancellation.
type CancelParty string

const (
	CancelByUser CancelParty = "user"
	CancelByHost CancelParty = "host"
)

func (p CancelParty) State() (BookingState, bool) {
	switch p {
	case CancelByUser:
		return StateCancelledByUser, true
	case CancelByHost:
		return StateCancelledByHost, true
	default:
		return "", false
	}
}

type Booking struct {
	ID                string
	ResourceID        string
	CustomerID        string
	CustomerName      string
	Title             string
	Start             time.Time
	End               time.Time
	State             BookingState
	ConsultingType    ConsultingType
	OrderID           string
	Notes             string
	CancellationNotes string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BookingTitle renders "<customer> - <Y-m-d H:i>" with the start shown in loc.
func BookingTitle(customer string, start time.Time, loc *time.Location) string {
	return customer + " - " + start.In(loc).Format("2006-01-02 15:04")
}
