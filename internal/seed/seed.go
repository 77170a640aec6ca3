// Package seed loads the demo account and its sample runs into an empty
// database.
package seed

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"backend-runlog/internal/auth"
	"backend-runlog/internal/db"
	"backend-runlog/internal/shared/geo"
)

const (
	SampleUsername = "admin"
	SamplePassword = "123456"
)

type sampleRun struct {
	date        string
	distanceKm  float64
	durationMin int
	path        string
}

// Stored distances are the recorded ones, not recomputed from the paths.
var sampleRuns = []sampleRun{
	{date: "2025-10-25", distanceKm: 5.2, durationMin: 32, path: "[[106.82, -6.18], [106.84, -6.20]]"},
	{date: "2025-10-27", distanceKm: 10.0, durationMin: 65, path: "[[106.84, -6.20], [106.86, -6.22]]"},
	{date: "2025-10-29", distanceKm: 7.0, durationMin: 39, path: "[[106.80, -6.15], [106.81, -6.17]]"},
}

var hashPasswordFn = bcrypt.GenerateFromPassword

// SampleData creates the sample user and runs when no users exist yet, in a
// single transaction. It reports whether anything was written.
func SampleData(ctx context.Context, q db.TxQuerier) (bool, error) {
	tx, err := q.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}

	seeded, err := sampleData(ctx, tx)
	if err != nil || !seeded {
		_ = tx.Rollback(ctx)
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}

func sampleData(ctx context.Context, q db.Querier) (bool, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	hash, err := hashPasswordFn([]byte(SamplePassword), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	// Only CreateUser is used, so no signing secret is needed.
	user, err := auth.NewService("", q, nil).CreateUser(ctx, SampleUsername, string(hash))
	if err != nil {
		return false, fmt.Errorf("create sample user: %w", err)
	}

	for _, r := range sampleRuns {
		if _, err := geo.ParsePath(r.path); err != nil {
			return false, fmt.Errorf("sample run %s: %w", r.date, err)
		}
		if _, err := q.Exec(ctx, `
			INSERT INTO runs (user_id, date, distance_km, duration_min, path_coordinates)
			VALUES ($1,$2,$3,$4,$5)
		`, user.ID, r.date, r.distanceKm, r.durationMin, r.path); err != nil {
			return false, fmt.Errorf("insert sample run %s: %w", r.date, err)
		}
	}
	return true, nil
}
