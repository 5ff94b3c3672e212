package model

import "time"

// Observer is a party that may receive a proximity alert. A nil Location
// means no location is on file; it is never encoded as (0, 0).
type Observer struct {
	ID       string
	Location *Point
}

// Located returns the observer location and whether one is known.
func (o Observer) Located() (Point, bool) {
	if o.Location == nil {
		return Point{}, false
	}
	return *o.Location, true
}

// Reason is the explicit cause of an alert decision.
type Reason int

const (
	ReasonWithinRadius Reason = iota + 1
	ReasonNoLocation
	ReasonOutsideRadius
	ReasonNoLocationSkipped
)

func (r Reason) String() string {
	switch r {
	case ReasonWithinRadius:
		return "within alert radius"
	case ReasonNoLocation:
		return "no location on file; alert sent by default"
	case ReasonOutsideRadius:
		return "outside alert radius"
	case ReasonNoLocationSkipped:
		return "no location on file; skipped"
	default:
		return "unknown"
	}
}

// Code is a stable machine-readable form of the reason, used as a metric
// label and in API payloads.
func (r Reason) Code() string {
	switch r {
	case ReasonWithinRadius:
		return "within_radius"
	case ReasonNoLocation:
		return "no_location"
	case ReasonOutsideRadius:
		return "outside_radius"
	case ReasonNoLocationSkipped:
		return "no_location_skipped"
	default:
		return "unknown"
	}
}

// AlertOutcome is the classification of one observer for one dispatch.
type AlertOutcome struct {
	Observer  Observer
	Qualifies bool
	Reason    Reason
}

// Delivery is one notification handed to the delivery workers.
type Delivery struct {
	ID         string
	DispatchID string
	Observer   Observer
	Message    string
	Center     Point
	Reply      chan<- DeliveryReport
}

// DeliveryReport is the sender's verdict for one delivery.
type DeliveryReport struct {
	DeliveryID string
	ObserverID string
	Receipt    string
	Err        error
}

// AlertRecord is a persisted, successfully sent alert.
type AlertRecord struct {
	ID         string
	DispatchID string
	ObserverID string
	Message    string
	Location   Point
	Receipt    string
	SentAt     time.Time
}
