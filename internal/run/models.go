package run

import (
	"time"

	"backend-runlog/internal/shared/geo"
)

// DateLayout is the calendar date format runs are stored with.
const DateLayout = "2006-01-02"

type Run struct {
	ID              int64
	UserID          string
	Date            string
	DistanceKm      float64
	DurationMin     int
	PathCoordinates *string
	CreatedAt       time.Time
}

// Response is the wire representation of a run. Pace is derived on every
// read and never stored.
type Response struct {
	ID              int64   `json:"id"`
	UserID          string  `json:"user_id"`
	Date            string  `json:"date"`
	DistanceKm      float64 `json:"distance_km"`
	DurationMin     int     `json:"duration_min"`
	Pace            string  `json:"pace"`
	PathCoordinates *string `json:"path_coordinates"`
}

func (r Run) Response() Response {
	return Response{
		ID:              r.ID,
		UserID:          r.UserID,
		Date:            r.Date,
		DistanceKm:      geo.Round(r.DistanceKm, 2),
		DurationMin:     r.DurationMin,
		Pace:            ComputePace(r.DistanceKm, float64(r.DurationMin)),
		PathCoordinates: r.PathCoordinates,
	}
}

func Responses(runs []Run) []Response {
	out := make([]Response, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Response())
	}
	return out
}

type ManualRunRequest struct {
	Date        *string `json:"date"`
	DistanceKm  *Number `json:"distance_km"`
	DurationMin *Number `json:"duration_min"`
}

type GPSRunRequest struct {
	PathCoordinates *Coordinates `json:"path_coordinates"`
	DurationMin     *Number      `json:"duration_min"`
	Date            *string      `json:"date"`
}

// UpdateRunRequest is a partial update; nil fields keep their stored value.
type UpdateRunRequest struct {
	Date        *string `json:"date"`
	DistanceKm  *Number `json:"distance_km"`
	DurationMin *Number `json:"duration_min"`
}

const (
	EventRunCreated = "run.created"
	EventRunUpdated = "run.updated"
	EventRunDeleted = "run.deleted"
)

// Event is pushed to the owner's stream after a successful write.
type Event struct {
	Type  string    `json:"type"`
	RunID int64     `json:"run_id"`
	Run   *Response `json:"run,omitempty"`
}
