package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Skufu/skintriage/internal/triage"
)

//go:embed schema.sql
var schemaSQL string

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db queryable) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

type recordRepoPG struct{ db queryable }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{db: pool}
}

const recordCols = `id, user_id, image_url, image_key, symptoms, result, provenance,
	failure_detail, model, status, doctor_notes, created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		r        Record
		symptoms []byte
		result   []byte
		prov     string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.ImageURL, &r.ImageKey, &symptoms, &result, &prov,
		&r.FailureDetail, &r.Model, &r.Status, &r.DoctorNotes, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(symptoms, &r.Symptoms); err != nil {
		return nil, fmt.Errorf("decode symptoms: %w", err)
	}
	if err := json.Unmarshal(result, &r.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	r.Provenance = triage.Provenance(prov)
	return &r, nil
}

func (r *recordRepoPG) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	symptoms, err := json.Marshal(rec.Symptoms)
	if err != nil {
		return fmt.Errorf("encode symptoms: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO diagnosis_records (`+recordCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		rec.ID, rec.UserID, rec.ImageURL, rec.ImageKey, symptoms, result, string(rec.Provenance),
		rec.FailureDetail, rec.Model, rec.Status, rec.DoctorNotes, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert diagnosis record: %w", err)
	}
	return nil
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	rec, err := scanRecord(r.db.QueryRow(ctx, `SELECT `+recordCols+` FROM diagnosis_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get diagnosis record: %w", err)
	}
	return rec, nil
}

func (r *recordRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM diagnosis_records WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count diagnosis records: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT `+recordCols+` FROM diagnosis_records
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list diagnosis records: %w", err)
	}
	defer rows.Close()

	out := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func (r *recordRepoPG) UpdateReview(ctx context.Context, id uuid.UUID, status, notes string) error {
	tag, err := r.db.Exec(ctx, `UPDATE diagnosis_records SET status = $2, doctor_notes = $3 WHERE id = $1`, id, status, notes)
	if err != nil {
		return fmt.Errorf("update diagnosis review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type userRepoPG struct{ db queryable }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{db: pool}
}

const userCols = `id, name, email, phone, age, gender, medical_history, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Age, &u.Gender, &u.MedicalHistory, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) FindOrCreateByEmail(ctx context.Context, in *User) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("user email is required")
	}
	history := in.MedicalHistory
	if history == nil {
		history = []string{}
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	u, err := scanUser(r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, phone, age, gender, medical_history)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING `+userCols,
		uuid.New(), in.Name, email, in.Phone, in.Age, in.Gender, history))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
