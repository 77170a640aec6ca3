package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"backend-runlog/internal/db"
	"backend-runlog/internal/shared/geo"
	"backend-runlog/internal/stream"

	"github.com/jackc/pgx/v5"
)

// MinGPSDistanceKm is the shortest GPS track accepted. Anything below it is
// treated as a stationary capture or GPS noise.
const MinGPSDistanceKm = 0.01

// Service validates run submissions and enforces per-user ownership.
// Concurrent writes to the same run are last-write-wins.
type Service struct {
	db  db.Querier
	hub *stream.Hub
	now func() time.Time
}

func NewService(db db.Querier, hub *stream.Hub) *Service {
	return &Service{db: db, hub: hub, now: time.Now}
}

func (s *Service) SubmitManualRun(ctx context.Context, userID string, req ManualRunRequest) (Run, error) {
	if isBlank(req.Date) || req.DistanceKm == nil || req.DurationMin == nil {
		return Run{}, fmt.Errorf("%w: date, distance_km and duration_min are required", ErrIncompleteData)
	}
	date, err := parseDate(*req.Date)
	if err != nil {
		return Run{}, err
	}
	distance, err := parseDistance(req.DistanceKm)
	if err != nil {
		return Run{}, err
	}
	duration, err := parseDuration(req.DurationMin)
	if err != nil {
		return Run{}, err
	}

	run, err := s.insert(ctx, Run{
		UserID:      userID,
		Date:        date,
		DistanceKm:  distance,
		DurationMin: duration,
	})
	if err != nil {
		return Run{}, err
	}
	s.publishRun(EventRunCreated, run)
	return run, nil
}

func (s *Service) SubmitGPSRun(ctx context.Context, userID string, req GPSRunRequest) (Run, error) {
	if req.PathCoordinates == nil || req.DurationMin == nil {
		return Run{}, fmt.Errorf("%w: path_coordinates and duration_min are required", ErrIncompleteData)
	}

	minutes, err := req.DurationMin.Float()
	if err != nil {
		return Run{}, fmt.Errorf("%w: duration_min %v", ErrInvalidFormat, err)
	}
	if minutes <= 0 {
		return Run{}, ErrInvalidDuration
	}

	distance, err := geo.TotalPathDistance(req.PathCoordinates.Payload)
	if err != nil {
		return Run{}, err
	}
	if distance < MinGPSDistanceKm {
		return Run{}, ErrInsufficientMovement
	}

	duration := int(math.RoundToEven(minutes))
	if duration < 1 {
		return Run{}, fmt.Errorf("%w: %.2f minutes rounds to 0", ErrInvalidDuration, minutes)
	}

	date := s.now().Format(DateLayout)
	if !isBlank(req.Date) {
		if date, err = parseDate(*req.Date); err != nil {
			return Run{}, err
		}
	}

	payload := req.PathCoordinates.Payload
	run, err := s.insert(ctx, Run{
		UserID:          userID,
		Date:            date,
		DistanceKm:      distance,
		DurationMin:     duration,
		PathCoordinates: &payload,
	})
	if err != nil {
		return Run{}, err
	}
	s.publishRun(EventRunCreated, run)
	return run, nil
}

// ListRuns returns the user's runs, newest first.
func (s *Service) ListRuns(ctx context.Context, userID string) ([]Run, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, date, distance_km, duration_min, path_coordinates, created_at
		FROM runs WHERE user_id=$1
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.UserID, &r.Date, &r.DistanceKm, &r.DurationMin, &r.PathCoordinates, &r.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun loads a run and checks that userID owns it.
func (s *Service) GetRun(ctx context.Context, userID string, id int64) (Run, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, user_id, date, distance_km, duration_min, path_coordinates, created_at
		FROM runs WHERE id=$1
	`, id)
	var r Run
	if err := row.Scan(&r.ID, &r.UserID, &r.Date, &r.DistanceKm, &r.DurationMin, &r.PathCoordinates, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, ErrNotFound
		}
		return Run{}, err
	}
	if r.UserID != userID {
		return Run{}, ErrForbidden
	}
	return r, nil
}

func (s *Service) UpdateRun(ctx context.Context, userID string, id int64, req UpdateRunRequest) (Run, error) {
	run, err := s.GetRun(ctx, userID, id)
	if err != nil {
		return Run{}, err
	}

	if req.Date != nil {
		if run.Date, err = parseDate(*req.Date); err != nil {
			return Run{}, err
		}
	}
	if req.DistanceKm != nil {
		if run.DistanceKm, err = parseDistance(req.DistanceKm); err != nil {
			return Run{}, err
		}
	}
	if req.DurationMin != nil {
		if run.DurationMin, err = parseDuration(req.DurationMin); err != nil {
			return Run{}, err
		}
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE runs
		SET date=$3, distance_km=$4, duration_min=$5
		WHERE id=$1 AND user_id=$2
	`, run.ID, userID, run.Date, run.DistanceKm, run.DurationMin)
	if err != nil {
		return Run{}, err
	}
	if tag.RowsAffected() == 0 {
		return Run{}, ErrNotFound
	}
	s.publishRun(EventRunUpdated, run)
	return run, nil
}

func (s *Service) DeleteRun(ctx context.Context, userID string, id int64) error {
	if _, err := s.GetRun(ctx, userID, id); err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM runs WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.publish(userID, Event{Type: EventRunDeleted, RunID: id})
	return nil
}

func (s *Service) insert(ctx context.Context, r Run) (Run, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO runs (user_id, date, distance_km, duration_min, path_coordinates)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at
	`, r.UserID, r.Date, r.DistanceKm, r.DurationMin, nullableString(r.PathCoordinates))
	if err := row.Scan(&r.ID, &r.CreatedAt); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (s *Service) publishRun(eventType string, r Run) {
	resp := r.Response()
	s.publish(r.UserID, Event{Type: eventType, RunID: r.ID, Run: &resp})
}

func (s *Service) publish(userID string, event Event) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.hub.Broadcast(userID, payload)
}

func parseDate(raw string) (string, error) {
	date := strings.TrimSpace(raw)
	if date == "" {
		return "", fmt.Errorf("%w: date is required", ErrIncompleteData)
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidFormat, raw)
	}
	return date, nil
}

func parseDistance(n *Number) (float64, error) {
	v, err := n.Float()
	if err != nil {
		return 0, fmt.Errorf("%w: distance_km %v", ErrInvalidFormat, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: distance_km must not be negative", ErrInvalidFormat)
	}
	return v, nil
}

func parseDuration(n *Number) (int, error) {
	v, err := n.Int()
	if err != nil {
		return 0, fmt.Errorf("%w: duration_min %v", ErrInvalidFormat, err)
	}
	if v <= 0 {
		return 0, ErrInvalidDuration
	}
	return v, nil
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
