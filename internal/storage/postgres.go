package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/moodlog/internal/config"
	"github.com/your-org/moodlog/internal/models"
)

// Postgres error codes we map to domain errors.
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// handlePattern restricts handles to characters safe for naming a log
// table. Anything else is rejected outright, never escaped into shape.
var handlePattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// dbPool is the slice of pgxpool.Pool the store uses. Tests substitute a
// mock connection to drive the transaction paths.
type dbPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore owns account records and per-account emotion log tables.
// Each account's log is a structurally separate table keyed by handle,
// so one account's access path cannot reach another's entries.
type PostgresStore struct {
	pool dbPool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// validateHandle rejects any handle unsafe for use as part of a table
// name.
func validateHandle(handle string) error {
	if !handlePattern.MatchString(handle) {
		return fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return nil
}

// logTable returns the quoted identifier of the handle's emotion log
// table. Callers must validate the handle first.
func logTable(handle string) string {
	return pgx.Identifier{"emotion_log_" + handle}.Sanitize()
}

// --- Accounts ---

// CreateAccount inserts the account row and provisions its empty emotion
// log in one transaction. Either both exist afterwards or neither does.
// The credential is stored as a bcrypt hash, never in cleartext.
func (s *PostgresStore) CreateAccount(ctx context.Context, handle, password, avatarKey string) (*models.Account, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	a := &models.Account{
		ID:           uuid.New(),
		Handle:       handle,
		PasswordHash: string(hash),
		AvatarKey:    avatarKey,
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create account: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO accounts (id, handle, password_hash, avatar_key)
		 VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		a.ID, a.Handle, a.PasswordHash, a.AvatarKey,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, ErrDuplicateHandle
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	// Uniqueness above guarantees no concurrent creator reaches this
	// point for the same handle, so plain CREATE TABLE is safe.
	_, err = tx.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE %s (
			id bigserial PRIMARY KEY,
			entry_date date NOT NULL,
			entry_time text NOT NULL,
			label text NOT NULL,
			scores vector(7)
		)`, logTable(handle)))
	if err != nil {
		return nil, fmt.Errorf("provision emotion log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create account: %w", err)
	}
	return a, nil
}

// Login verifies the credential against the stored hash. A missing
// account or a mismatch both yield false; neither is an error.
func (s *PostgresStore) Login(ctx context.Context, handle, password string) (bool, *models.Account, error) {
	a, err := s.GetAccount(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrUnknownAccount) {
			return false, nil, nil
		}
		return false, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return false, nil, nil
	}
	return true, a, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, handle string) (*models.Account, error) {
	a := &models.Account{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, handle, password_hash, avatar_key, created_at, updated_at
		 FROM accounts WHERE handle = $1`, handle,
	).Scan(&a.ID, &a.Handle, &a.PasswordHash, &a.AvatarKey, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// UpdateAvatar overwrites the avatar reference. No history is kept; the
// call is idempotent.
func (s *PostgresStore) UpdateAvatar(ctx context.Context, handle, avatarKey string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET avatar_key = $1, updated_at = now() WHERE handle = $2`,
		avatarKey, handle)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownAccount
	}
	return nil
}

// DeleteAccount drops the emotion log and removes the account row in one
// transaction. On any failure nothing is deleted.
func (s *PostgresStore) DeleteAccount(ctx context.Context, handle string) error {
	if err := validateHandle(handle); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete account: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, logTable(handle))); err != nil {
		return fmt.Errorf("drop emotion log: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE handle = $1`, handle)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUnknownAccount
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete account: %w", err)
	}
	return nil
}

// --- Emotion log ---

// AppendEntry appends one classification with the current date and time
// (minute resolution). The Undetected sentinel and anything else outside
// the vocabulary are rejected.
func (s *PostgresStore) AppendEntry(ctx context.Context, handle, label string, scores []float32) (*models.LogEntry, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	if !models.IsEmotionLabel(label) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}

	now := time.Now()
	e := &models.LogEntry{
		Date:  now,
		Time:  now.Format("15:04"),
		Label: label,
	}

	var vec *pgvector.Vector
	if len(scores) > 0 {
		v := pgvector.NewVector(scores)
		vec = &v
	}

	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`INSERT INTO %s (entry_date, entry_time, label, scores)
		 VALUES ($1, $2, $3, $4) RETURNING id, entry_date`, logTable(handle)),
		now, e.Time, e.Label, vec,
	).Scan(&e.ID, &e.Date)
	if err != nil {
		if isPgError(err, pgUndefinedTable) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("append entry: %w", err)
	}
	return e, nil
}

// ListEntries returns the full log in insertion order.
func (s *PostgresStore) ListEntries(ctx context.Context, handle string) ([]models.LogEntry, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, entry_date, entry_time, label FROM %s ORDER BY id`, logTable(handle)))
	if err != nil {
		if isPgError(err, pgUndefinedTable) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.Date, &e.Time, &e.Label); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		if isPgError(err, pgUndefinedTable) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// SimilarEntries returns log entries ranked by cosine similarity of their
// stored mood profile to the given entry's profile.
func (s *PostgresStore) SimilarEntries(ctx context.Context, handle string, entryID int64, limit int) ([]models.SimilarEntry, error) {
	if err := validateHandle(handle); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	table := logTable(handle)

	var target pgvector.Vector
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT scores FROM %s WHERE id = $1 AND scores IS NOT NULL`, table),
		entryID,
	).Scan(&target)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownEntry
		}
		if isPgError(err, pgUndefinedTable) {
			return nil, ErrUnknownAccount
		}
		return nil, fmt.Errorf("get entry profile: %w", err)
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, entry_date, entry_time, label, 1 - (scores <=> $1) AS score
		 FROM %s
		 WHERE id <> $2 AND scores IS NOT NULL
		 ORDER BY scores <=> $1
		 LIMIT $3`, table),
		target, entryID, limit)
	if err != nil {
		return nil, fmt.Errorf("similar entries: %w", err)
	}
	defer rows.Close()

	var matches []models.SimilarEntry
	for rows.Next() {
		var m models.SimilarEntry
		if err := rows.Scan(&m.ID, &m.Date, &m.Time, &m.Label, &m.Score); err != nil {
			return nil, fmt.Errorf("scan similar entry: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
