package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
	txcontext "votebooth/pkg/platform/tx"
)

// PostgresStore persists voters in PostgreSQL. Methods join a transaction
// carried in the context when one is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectVoterColumns = `
	SELECT id, full_name, date_of_birth, address, phone, reference_photo,
	       status, flag_reason, has_voted, voted_at, created_at, updated_at
	FROM voters`

func (s *PostgresStore) Create(ctx context.Context, voter *models.Voter) error {
	if voter == nil {
		return fmt.Errorf("voter is required")
	}
	if _, ok := txcontext.From(ctx); ok {
		return s.create(ctx, txcontext.Executor(ctx, s.db), voter)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin voter create tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op
	}()
	if err := s.create(ctx, tx, voter); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit voter create: %w", err)
	}
	return nil
}

func (s *PostgresStore) create(ctx context.Context, q txcontext.Queryer, voter *models.Voter) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO voters (id, full_name, date_of_birth, address, phone, reference_photo,
		                    status, flag_reason, has_voted, voted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.UUID(voter.ID), voter.FullName, voter.DateOfBirth, voter.Address, voter.Phone,
		voter.ReferencePhoto, string(voter.Status), voter.FlagReason, voter.HasVoted,
		voter.VotedAt, voter.CreatedAt, voter.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("phone already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("insert voter: %w", err)
	}
	for t, value := range voter.Identifiers {
		_, err := q.ExecContext(ctx, `
			INSERT INTO voter_identifiers (voter_id, type, value) VALUES ($1, $2, $3)`,
			uuid.UUID(voter.ID), string(t), value,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%s already registered: %w", t, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert voter identifier: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, selectVoterColumns+` WHERE id = $1`, uuid.UUID(voterID))
	voter, err := scanVoter(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadIdentifiers(ctx, q, []*models.Voter{voter}); err != nil {
		return nil, err
	}
	return voter, nil
}

func (s *PostgresStore) FindByIdentifier(ctx context.Context, t models.IdentifierType, value string) (*models.Voter, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, selectVoterColumns+`
		WHERE id = (SELECT voter_id FROM voter_identifiers WHERE type = $1 AND value = $2)`,
		string(t), value,
	)
	voter, err := scanVoter(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadIdentifiers(ctx, q, []*models.Voter{voter}); err != nil {
		return nil, err
	}
	return voter, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter) ([]*models.Voter, error) {
	q := txcontext.Executor(ctx, s.db)
	statuses := make([]string, 0, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses = append(statuses, string(st))
	}

	rows, err := q.QueryContext(ctx, selectVoterColumns+`
		WHERE cardinality($1::text[]) = 0 OR status = ANY($1)
		ORDER BY created_at DESC`,
		pq.Array(statuses),
	)
	if err != nil {
		return nil, fmt.Errorf("list voters: %w", err)
	}
	defer rows.Close()

	var voters []*models.Voter
	for rows.Next() {
		voter, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		voters = append(voters, voter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voters: %w", err)
	}
	if err := s.loadIdentifiers(ctx, q, voters); err != nil {
		return nil, err
	}
	return voters, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, voter *models.Voter) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE voters SET status = $2, flag_reason = $3, updated_at = $4 WHERE id = $1`,
		uuid.UUID(voter.ID), string(voter.Status), voter.FlagReason, voter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update voter status: %w", err)
	}
	return requireRow(res, "voter not found")
}

// MarkVoted flips has_voted with a conditional update so two concurrent
// transactions cannot both succeed.
func (s *PostgresStore) MarkVoted(ctx context.Context, voterID id.VoterID, at time.Time) error {
	q := txcontext.Executor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		UPDATE voters SET has_voted = true, voted_at = $2, updated_at = $2
		WHERE id = $1 AND has_voted = false`,
		uuid.UUID(voterID), at,
	)
	if err != nil {
		return fmt.Errorf("mark voter voted: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark voter voted rows: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM voters WHERE id = $1)`, uuid.UUID(voterID)).Scan(&exists); err != nil {
		return fmt.Errorf("check voter exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("voter not found: %w", sentinel.ErrNotFound)
	}
	return fmt.Errorf("voter already voted: %w", sentinel.ErrAlreadyUsed)
}

func (s *PostgresStore) Counts(ctx context.Context) (models.Counts, error) {
	var c models.Counts
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'Pending'),
		       count(*) FILTER (WHERE status = 'Verified'),
		       count(*) FILTER (WHERE status = 'Flagged'),
		       count(*) FILTER (WHERE has_voted)
		FROM voters`,
	).Scan(&c.Total, &c.Pending, &c.Verified, &c.Flagged, &c.Voted)
	if err != nil {
		return models.Counts{}, fmt.Errorf("count voters: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) loadIdentifiers(ctx context.Context, q txcontext.Queryer, voters []*models.Voter) error {
	if len(voters) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Voter, len(voters))
	ids := make([]string, 0, len(voters))
	for _, v := range voters {
		v.Identifiers = make(map[models.IdentifierType]string)
		byID[uuid.UUID(v.ID)] = v
		ids = append(ids, v.ID.String())
	}

	rows, err := q.QueryContext(ctx, `
		SELECT voter_id, type, value FROM voter_identifiers WHERE voter_id = ANY($1::uuid[])`,
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load voter identifiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			voterID uuid.UUID
			t       string
			value   string
		)
		if err := rows.Scan(&voterID, &t, &value); err != nil {
			return fmt.Errorf("scan voter identifier: %w", err)
		}
		if v, ok := byID[voterID]; ok {
			v.Identifiers[models.IdentifierType(t)] = value
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate voter identifiers: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVoter(row rowScanner) (*models.Voter, error) {
	var (
		v       models.Voter
		voterID uuid.UUID
		status  string
		votedAt sql.NullTime
	)
	err := row.Scan(&voterID, &v.FullName, &v.DateOfBirth, &v.Address, &v.Phone, &v.ReferencePhoto,
		&status, &v.FlagReason, &v.HasVoted, &votedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("voter not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan voter: %w", err)
	}
	v.ID = id.VoterID(voterID)
	v.Status = models.Status(status)
	if votedAt.Valid {
		at := votedAt.Time
		v.VotedAt = &at
	}
	return &v, nil
}

func requireRow(res sql.Result, msg string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", msg, sentinel.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
