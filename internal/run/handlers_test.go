package run

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func asUser(userID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		return c.Next()
	}
}

func newApp(svc *Service, userID string) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app.Group("/runs"), svc, asUser(userID), nil)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestRunHandlersCreateManual(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "user-1")

	mock.ExpectQuery(`INSERT INTO runs`).
		WithArgs("user-1", "2025-01-01", 5.0, 25, nil).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	resp := doJSON(t, app, http.MethodPost, "/runs", `{"date":"2025-01-01","distance_km":5,"duration_min":25}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var body map[string]any
	decodeBody(t, resp, &body)
	if body["pace"] != "05:00" || body["user_id"] != "user-1" || body["distance_km"] != 5.0 {
		t.Fatalf("unexpected body: %v", body)
	}
	if v, ok := body["path_coordinates"]; !ok || v != nil {
		t.Fatalf("expected explicit null path_coordinates, got %v", v)
	}
}

func TestRunHandlersCreateManualValidation(t *testing.T) {
	app := newApp(NewService(newMock(t), nil), "user-1")

	cases := map[string]string{
		"missing field":  `{"date":"2025-01-01","distance_km":5}`,
		"bad distance":   `{"date":"2025-01-01","distance_km":"five","duration_min":25}`,
		"bad duration":   `{"date":"2025-01-01","distance_km":5,"duration_min":"x"}`,
		"broken payload": `{bad`,
	}
	for name, body := range cases {
		resp := doJSON(t, app, http.MethodPost, "/runs", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestRunHandlersCreateGPS(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "user-1")

	mock.ExpectQuery(`INSERT INTO runs`).
		WithArgs("user-1", "2025-01-05", 111.195, 600, `[[0,0],[0,1]]`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), time.Now()))

	resp := doJSON(t, app, http.MethodPost, "/runs/gps", `{"path_coordinates":"[[0,0],[0,1]]","duration_min":"600","date":"2025-01-05"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var body Response
	decodeBody(t, resp, &body)
	if body.PathCoordinates == nil || *body.PathCoordinates != `[[0,0],[0,1]]` {
		t.Fatalf("expected raw payload echoed back")
	}
	if body.DistanceKm != 111.19 {
		t.Fatalf("unexpected distance %v", body.DistanceKm)
	}
}

func TestRunHandlersCreateGPSClientErrors(t *testing.T) {
	app := newApp(NewService(newMock(t), nil), "user-1")

	cases := map[string]string{
		"malformed":  `{"path_coordinates":"not json","duration_min":10}`,
		"stationary": `{"path_coordinates":[[0,0],[0,0],[0,0]],"duration_min":10}`,
		"duration":   `{"path_coordinates":[[0,0],[0,1]],"duration_min":0}`,
		"incomplete": `{"duration_min":10}`,
	}
	for name, body := range cases {
		resp := doJSON(t, app, http.MethodPost, "/runs/gps", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.StatusCode)
		}
	}
}

func TestRunHandlersList(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "user-1")

	mock.ExpectQuery(`FROM runs WHERE user_id=\$1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow(int64(2), "user-1", "2025-01-02", 10.0, 50, nil, time.Now()).
			AddRow(int64(1), "user-1", "2025-01-01", 5.0, 25, nil, time.Now()))

	resp := doJSON(t, app, http.MethodGet, "/runs", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body []Response
	decodeBody(t, resp, &body)
	if len(body) != 2 || body[0].ID != 2 || body[0].Pace != "05:00" {
		t.Fatalf("unexpected list: %+v", body)
	}
}

func TestRunHandlersListEmptyIsArray(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "bob")

	mock.ExpectQuery(`FROM runs WHERE user_id=\$1`).WithArgs("bob").WillReturnRows(pgxmock.NewRows(runColumns))

	resp := doJSON(t, app, http.MethodGet, "/runs", "")
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != "[]" {
		t.Fatalf("expected empty array, got %s", raw)
	}
}

func TestRunHandlersGetUpdateDelete(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "user-1")

	expectRunLookup(mock, 1, "user-1")
	resp := doJSON(t, app, http.MethodGet, "/runs/1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}

	expectRunLookup(mock, 1, "user-1")
	mock.ExpectExec(`UPDATE runs`).
		WithArgs(int64(1), "user-1", "2025-01-01", 5.0, 30).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	resp = doJSON(t, app, http.MethodPut, "/runs/1", `{"duration_min":30}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}
	var updated Response
	decodeBody(t, resp, &updated)
	if updated.DurationMin != 30 || updated.Pace != "06:00" {
		t.Fatalf("unexpected update body: %+v", updated)
	}

	expectRunLookup(mock, 1, "user-1")
	mock.ExpectExec(`DELETE FROM runs`).
		WithArgs(int64(1), "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	resp = doJSON(t, app, http.MethodDelete, "/runs/1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) != 0 {
		t.Fatalf("expected empty delete body")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunHandlersOwnershipAndNotFound(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "bob")

	expectRunLookup(mock, 1, "alice")
	resp := doJSON(t, app, http.MethodPut, "/runs/1", `{"distance_km":1}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("update: expected 403, got %d", resp.StatusCode)
	}

	expectRunLookup(mock, 1, "alice")
	resp = doJSON(t, app, http.MethodDelete, "/runs/1", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("delete: expected 403, got %d", resp.StatusCode)
	}

	mock.ExpectQuery(`FROM runs WHERE id=\$1`).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)
	resp = doJSON(t, app, http.MethodDelete, "/runs/99", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing: expected 404, got %d", resp.StatusCode)
	}

	resp = doJSON(t, app, http.MethodGet, "/runs/abc", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("non-numeric id: expected 404, got %d", resp.StatusCode)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunHandlersPersistenceFault(t *testing.T) {
	mock := newMock(t)
	app := newApp(NewService(mock, nil), "user-1")

	mock.ExpectQuery(`FROM runs WHERE user_id=\$1`).WithArgs("user-1").WillReturnError(errDB)

	resp := doJSON(t, app, http.MethodGet, "/runs", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
