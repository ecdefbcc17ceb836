package routeplanner

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

// Stage is the conversation's position in the input-collection sequence.
type Stage string

const (
	StageIdle                 Stage = "idle"
	StageAwaitingDayCount     Stage = "awaiting_day_count"
	StageAwaitingDeparture    Stage = "awaiting_departure"
	StageAwaitingDestination  Stage = "awaiting_destination"
	StageAwaitingExtraStop    Stage = "awaiting_extra_stop"
	StageAwaitingConfirmation Stage = "awaiting_confirmation"
)

// Stop is one city of the route together with its forecast.
type Stop struct {
	City     string                `json:"city"`
	Forecast []forecast.DaySummary `json:"forecast"`
}

// Session is the per-owner route being assembled.
type Session struct {
	OwnerID       string    `json:"ownerId"`
	Generation    string    `json:"generation"`
	RequestedDays int       `json:"requestedDays"`
	Stops         []Stop    `json:"stops"`
	Stage         Stage     `json:"stage"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func newSession(ownerID string) Session {
	return Session{
		OwnerID:    ownerID,
		Generation: uuid.NewString(),
		Stage:      StageIdle,
	}
}

// HasStop reports whether city is already part of the route, ignoring case.
func (s Session) HasStop(city string) bool {
	for _, stop := range s.Stops {
		if strings.EqualFold(stop.City, city) {
			return true
		}
	}
	return false
}

// Cities lists the stop names in route order.
func (s Session) Cities() []string {
	out := make([]string, 0, len(s.Stops))
	for _, stop := range s.Stops {
		out = append(out, stop.City)
	}
	return out
}

func (s Session) clone() Session {
	out := s
	if s.Stops != nil {
		out.Stops = make([]Stop, len(s.Stops))
		for i, stop := range s.Stops {
			out.Stops[i] = Stop{City: stop.City, Forecast: append([]forecast.DaySummary(nil), stop.Forecast...)}
		}
	}
	return out
}

// reset discards the route and starts a new generation so late results cannot land.
func (s *Session) reset(stage Stage) {
	s.Generation = uuid.NewString()
	s.RequestedDays = 0
	s.Stops = nil
	s.Stage = stage
}

// insertBeforeLast places stop ahead of the final destination.
func insertBeforeLast(stops []Stop, stop Stop) []Stop {
	if len(stops) == 0 {
		return []Stop{stop}
	}
	out := make([]Stop, 0, len(stops)+1)
	out = append(out, stops[:len(stops)-1]...)
	out = append(out, stop, stops[len(stops)-1])
	return out
}
