package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"vrpls/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// MigrateDir applies every *.sql file in dir in lexical order. Migrations
// are written to be idempotent.
func (p *Postgres) MigrateDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

const runColumns = `id::text, COALESCE(name,''), status, customers, vehicles, capacity, created_at, started_at, finished_at,
	COALESCE(distance,0), COALESCE(encoding,''), routes, metrics, COALESCE(error,''), COALESCE(callback_url,''), COALESCE(callback_secret,''), COALESCE(submitted_by,'')`

func (p *Postgres) CreateRun(ctx context.Context, run model.Run) (model.Run, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = model.RunQueued
	}
	var cbURL, cbSecret string
	if run.Callback != nil {
		cbURL, cbSecret = run.Callback.URL, run.Callback.Secret
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO runs (id, name, status, customers, vehicles, capacity, created_at, callback_url, callback_secret, submitted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		run.ID, nullIfEmpty(run.Name), run.Status, run.Customers, run.Vehicles, run.Capacity, run.CreatedAt, nullIfEmpty(cbURL), nullIfEmpty(cbSecret), nullIfEmpty(run.SubmittedBy))
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.Run{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, status, cursor string, limit int) ([]model.Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	q := `SELECT ` + runColumns + ` FROM runs WHERE ($1 = '' OR status = $1) AND ($2 = '' OR id::text > $2) ORDER BY id LIMIT $3`
	rows, err := p.db.QueryContext(ctx, q, status, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	var last string
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
		last = r.ID
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	var next string
	if len(out) == limit {
		next = last
	}
	return out, next, nil
}

func (p *Postgres) StartRun(ctx context.Context, id string, at time.Time) error {
	return p.exec1(ctx, `UPDATE runs SET status=$2, started_at=$3 WHERE id=$1`, id, model.RunRunning, at)
}

func (p *Postgres) FinishRun(ctx context.Context, id string, out Outcome) error {
	routes, err := json.Marshal(out.Routes)
	if err != nil {
		return err
	}
	var metrics any
	if out.Metrics != nil {
		b, err := json.Marshal(out.Metrics)
		if err != nil {
			return err
		}
		metrics = b
	}
	return p.exec1(ctx, `UPDATE runs SET status=$2, distance=$3, encoding=$4, routes=$5, metrics=$6, finished_at=$7 WHERE id=$1`,
		id, model.RunSucceeded, out.Distance, out.Encoding, routes, metrics, out.FinishedAt)
}

func (p *Postgres) FailRun(ctx context.Context, id, reason string, at time.Time) error {
	return p.exec1(ctx, `UPDATE runs SET status=$2, error=$3, finished_at=$4 WHERE id=$1`, id, model.RunFailed, reason, at)
}

func (p *Postgres) exec1(ctx context.Context, q string, args ...any) error {
	res, err := p.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var r model.Run
	var started, finished sql.NullTime
	var routes, metrics []byte
	var cbURL, cbSecret string
	if err := row.Scan(&r.ID, &r.Name, &r.Status, &r.Customers, &r.Vehicles, &r.Capacity, &r.CreatedAt, &started, &finished,
		&r.Distance, &r.Encoding, &routes, &metrics, &r.Error, &cbURL, &cbSecret, &r.SubmittedBy); err != nil {
		return model.Run{}, err
	}
	if started.Valid {
		t := started.Time
		r.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if err := decodeRunJSON(routes, metrics, &r); err != nil {
		return model.Run{}, err
	}
	if cbURL != "" {
		r.Callback = &model.Callback{URL: cbURL, Secret: cbSecret}
	}
	return r, nil
}

func decodeRunJSON(routes, metrics []byte, r *model.Run) error {
	if len(routes) > 0 {
		if err := json.Unmarshal(routes, &r.Routes); err != nil {
			return fmt.Errorf("decode routes of run %s: %w", r.ID, err)
		}
	}
	if len(metrics) > 0 {
		r.Metrics = &model.RunMetrics{}
		if err := json.Unmarshal(metrics, r.Metrics); err != nil {
			return fmt.Errorf("decode metrics of run %s: %w", r.ID, err)
		}
	}
	return nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, run_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
		VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
		ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, nullIfEmpty(runID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(run_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
		return err
	}
	if nextAttemptAt == nil {
		t := time.Now().Add(time.Minute)
		nextAttemptAt = &t
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
		id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs); err != nil {
		return err
	}
	// move to DLQ
	if _, err := tx.ExecContext(ctx, `INSERT INTO webhook_dlq (delivery_id, event_type, url, payload, attempts, last_error)
		SELECT id, event_type, url, payload, attempts, $2 FROM webhook_deliveries WHERE id=$1`, id, nullIfEmpty(lastError)); err != nil {
		return err
	}
	return tx.Commit()
}

func computeDedupKey(payload []byte) string {
	// try to parse JSON and use id
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
