package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/model"
)

// SQLite persists dispatch state in a SQLite database. Request lifecycle
// columns are scalar so the accept path can run as a single conditional
// UPDATE; helper profiles are read-only here and stored as JSON records.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS requests (
    id TEXT PRIMARY KEY,
    requester_id TEXT NOT NULL,
    category_id TEXT NOT NULL,
    title TEXT,
    description TEXT,
    lat REAL,
    lng REAL,
    has_location INTEGER NOT NULL DEFAULT 0,
    address TEXT,
    estimated_price REAL,
    budget_min REAL,
    budget_max REAL,
    urgency TEXT,
    status TEXT NOT NULL,
    broadcast_status TEXT NOT NULL,
    assigned_helper_id TEXT,
    helper_accepted_at INTEGER,
    work_started_at INTEGER,
    broadcast_expires_at INTEGER,
    created_at INTEGER
);
CREATE TABLE IF NOT EXISTS helpers (
    id TEXT PRIMARY KEY,
    eligible INTEGER NOT NULL DEFAULT 0,
    record TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS broadcasts (
    request_id TEXT NOT NULL,
    helper_id TEXT NOT NULL,
    round_id TEXT NOT NULL,
    status TEXT NOT NULL,
    distance_km REAL,
    sent_at INTEGER,
    PRIMARY KEY (request_id, helper_id)
);
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    type TEXT,
    title TEXT,
    message TEXT,
    created_at INTEGER
);
CREATE TABLE IF NOT EXISTS requesters (
    id TEXT PRIMARY KEY,
    name TEXT
);
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    parent_id TEXT,
    slug TEXT,
    name TEXT
);`

// NewSQLite opens or creates the database at path and ensures schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Seed helpers ------------------------------------------------------------

func (s *SQLite) PutRequest(ctx context.Context, r model.ServiceRequest) error {
	var lat, lng float64
	hasLoc := 0
	if r.Location != nil {
		lat, lng, hasLoc = r.Location.Lat, r.Location.Lng, 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO requests
        (id, requester_id, category_id, title, description, lat, lng, has_location, address,
         estimated_price, budget_min, budget_max, urgency, status, broadcast_status,
         assigned_helper_id, helper_accepted_at, work_started_at, broadcast_expires_at, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.RequesterID, r.Category.ID, r.Title, r.Description, lat, lng, hasLoc, r.Address,
		r.EstimatedPrice, r.BudgetMin, r.BudgetMax, string(r.Urgency), string(r.Status), string(r.BroadcastStatus),
		nullStr(r.AssignedHelperID), nullTime(r.HelperAcceptedAt), nullTime(r.WorkStartedAt), nullTime(r.BroadcastExpiresAt),
		r.CreatedAt.Unix())
	return err
}

func (s *SQLite) PutRequester(ctx context.Context, u model.Requester) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO requesters (id, name) VALUES (?,?)`, u.ID, u.Name)
	return err
}

func (s *SQLite) PutCategory(ctx context.Context, c model.Category) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO categories (id, parent_id, slug, name) VALUES (?,?,?,?)`,
		c.ID, c.ParentID, c.Slug, c.Name)
	return err
}

func (s *SQLite) PutHelper(ctx context.Context, h model.HelperProfile) error {
	rec, err := json.Marshal(h)
	if err != nil {
		return err
	}
	eligible := 0
	if h.Eligible() {
		eligible = 1
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO helpers (id, eligible, record) VALUES (?,?,?)`,
		h.ID, eligible, string(rec))
	return err
}

// Store port --------------------------------------------------------------

func (s *SQLite) GetRequest(ctx context.Context, id string) (model.ServiceRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, requester_id, category_id, title, description,
        lat, lng, has_location, address, estimated_price, budget_min, budget_max, urgency,
        status, broadcast_status, assigned_helper_id, helper_accepted_at, work_started_at,
        broadcast_expires_at, created_at FROM requests WHERE id = ?`, id)
	return scanRequest(row, id)
}

func (s *SQLite) GetRequester(ctx context.Context, userID string) (model.Requester, error) {
	var u model.Requester
	err := s.db.QueryRowContext(ctx, `SELECT id, name FROM requesters WHERE id = ?`, userID).Scan(&u.ID, &u.Name)
	if err == sql.ErrNoRows {
		return model.Requester{}, &dispatch.NotFoundError{Kind: "requester", ID: userID}
	}
	return u, err
}

func (s *SQLite) GetCategory(ctx context.Context, id string) (model.Category, error) {
	var c model.Category
	var parent sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, parent_id, slug, name FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &parent, &c.Slug, &c.Name)
	if err == sql.ErrNoRows {
		return model.Category{}, &dispatch.NotFoundError{Kind: "category", ID: id}
	}
	c.ParentID = parent.String
	return c, err
}

func (s *SQLite) ListEligibleHelpers(ctx context.Context) ([]model.HelperProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM helpers WHERE eligible = 1`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.HelperProfile
	for rows.Next() {
		var rec string
		if err := rows.Scan(&rec); err != nil {
			return nil, err
		}
		var h model.HelperProfile
		if err := json.Unmarshal([]byte(rec), &h); err != nil {
			return nil, fmt.Errorf("unmarshal helper: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkBroadcasting(ctx context.Context, requestID string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE requests SET status = ?, broadcast_status = ?,
        assigned_helper_id = NULL, helper_accepted_at = NULL, work_started_at = NULL,
        broadcast_expires_at = ? WHERE id = ? AND broadcast_status != ?`,
		string(model.StatusOpen), string(model.BroadcastActive), expiresAt.Unix(), requestID,
		string(model.BroadcastCompleted))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.explainRequestMiss(ctx, requestID)
	}
	return nil
}

func (s *SQLite) DeleteBroadcasts(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM broadcasts WHERE request_id = ?`, requestID)
	return err
}

func (s *SQLite) InsertBroadcasts(ctx context.Context, rows []model.BroadcastNotification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, b := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO broadcasts
            (request_id, helper_id, round_id, status, distance_km, sent_at) VALUES (?,?,?,?,?,?)`,
			b.RequestID, b.HelperID, b.RoundID, string(b.Status), b.DistanceKm, b.SentAt.Unix()); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLite) MarkBroadcastResponse(ctx context.Context, requestID, helperID string, status model.BroadcastState) error {
	res, err := s.db.ExecContext(ctx, `UPDATE broadcasts SET status = ? WHERE request_id = ? AND helper_id = ?`,
		string(status), requestID, helperID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &dispatch.NotFoundError{Kind: "broadcast", ID: requestID + "/" + helperID}
	}
	return nil
}

func (s *SQLite) InsertNotification(ctx context.Context, n model.Notification) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO notifications
        (id, user_id, type, title, message, created_at) VALUES (?,?,?,?,?,?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.CreatedAt.Unix())
	return err
}

// AssignHelper is a single conditional UPDATE guarded by the open/unassigned
// predicate. Concurrent accepts race on this statement; exactly one wins.
func (s *SQLite) AssignHelper(ctx context.Context, requestID, helperID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE requests SET status = ?, assigned_helper_id = ?,
        helper_accepted_at = ? WHERE id = ? AND status = ? AND assigned_helper_id IS NULL`,
		string(model.StatusAssigned), helperID, at.Unix(), requestID, string(model.StatusOpen))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Disambiguate for the caller: missing, terminal, or lost race.
		req, gerr := s.GetRequest(ctx, requestID)
		if gerr != nil {
			return gerr
		}
		if req.BroadcastStatus == model.BroadcastCompleted {
			return &dispatch.TerminalStateError{RequestID: requestID}
		}
		return &dispatch.AlreadyAssignedError{RequestID: requestID, HelperID: req.AssignedHelperID}
	}
	return nil
}

func (s *SQLite) ReleaseAssignment(ctx context.Context, requestID, helperID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE requests SET status = ?, assigned_helper_id = NULL,
        helper_accepted_at = NULL WHERE id = ? AND assigned_helper_id = ? AND work_started_at IS NULL`,
		string(model.StatusOpen), requestID, helperID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		req, gerr := s.GetRequest(ctx, requestID)
		if gerr != nil {
			return gerr
		}
		if req.AssignedHelperID != helperID {
			return &dispatch.NotFoundError{Kind: "assignment", ID: requestID + "/" + helperID}
		}
		return &dispatch.WorkStartedError{RequestID: requestID}
	}
	return nil
}

func (s *SQLite) CompleteRequest(ctx context.Context, requestID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE requests SET status = ?, broadcast_status = ? WHERE id = ?`,
		string(model.StatusCompleted), string(model.BroadcastCompleted), requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &dispatch.NotFoundError{Kind: "request", ID: requestID}
	}
	return nil
}

// explainRequestMiss turns a zero-row conditional update into the proper
// taxonomy error.
func (s *SQLite) explainRequestMiss(ctx context.Context, requestID string) error {
	req, err := s.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.BroadcastStatus == model.BroadcastCompleted {
		return &dispatch.TerminalStateError{RequestID: requestID}
	}
	return fmt.Errorf("request %s: conditional update applied to no rows", requestID)
}

func scanRequest(row *sql.Row, id string) (model.ServiceRequest, error) {
	var (
		r                        model.ServiceRequest
		lat, lng                 float64
		hasLoc                   int
		urgency, status, bstatus string
		assigned                 sql.NullString
		acceptedAt, startedAt    sql.NullInt64
		expiresAt                sql.NullInt64
		createdAt                int64
	)
	err := row.Scan(&r.ID, &r.RequesterID, &r.Category.ID, &r.Title, &r.Description,
		&lat, &lng, &hasLoc, &r.Address, &r.EstimatedPrice, &r.BudgetMin, &r.BudgetMax,
		&urgency, &status, &bstatus, &assigned, &acceptedAt, &startedAt, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return model.ServiceRequest{}, &dispatch.NotFoundError{Kind: "request", ID: id}
	}
	if err != nil {
		return model.ServiceRequest{}, err
	}
	if hasLoc == 1 {
		r.Location = &model.Coordinate{Lat: lat, Lng: lng}
	}
	r.Urgency = model.Urgency(urgency)
	r.Status = model.RequestStatus(status)
	r.BroadcastStatus = model.BroadcastStatus(bstatus)
	r.AssignedHelperID = assigned.String
	r.HelperAcceptedAt = timePtr(acceptedAt)
	r.WorkStartedAt = timePtr(startedAt)
	r.BroadcastExpiresAt = timePtr(expiresAt)
	r.CreatedAt = time.Unix(createdAt, 0)
	return r, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.Unix()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}
