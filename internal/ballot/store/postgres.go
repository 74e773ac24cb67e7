package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"votebooth/internal/ballot/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
	txcontext "votebooth/pkg/platform/tx"
)

// PostgresCandidates persists candidates. IncrementTally must run inside the
// ledger transaction carried in ctx.
type PostgresCandidates struct {
	db *sql.DB
}

func NewPostgresCandidates(db *sql.DB) *PostgresCandidates {
	return &PostgresCandidates{db: db}
}

const selectCandidateColumns = `
	SELECT id, name, party, position, symbol_url, vote_count, created_at
	FROM candidates`

func (s *PostgresCandidates) Create(ctx context.Context, c *models.Candidate) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO candidates (id, name, party, position, symbol_url, vote_count, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		uuid.UUID(c.ID), c.Name, c.Party, c.Position, c.SymbolURL, c.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("candidate %q for %q: %w", c.Name, c.Position, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *PostgresCandidates) FindByID(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectCandidateColumns+` WHERE id = $1`, uuid.UUID(candidateID))
	return scanCandidate(row)
}

func (s *PostgresCandidates) List(ctx context.Context) ([]*models.Candidate, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, selectCandidateColumns+` ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return out, nil
}

func (s *PostgresCandidates) IncrementTally(ctx context.Context, candidateID id.CandidateID) (int64, error) {
	var count int64
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		UPDATE candidates SET vote_count = vote_count + 1 WHERE id = $1 RETURNING vote_count`,
		uuid.UUID(candidateID),
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("candidate not found: %w", sentinel.ErrNotFound)
		}
		return 0, fmt.Errorf("increment tally: %w", err)
	}
	return count, nil
}

// PostgresVotes persists vote records. The unique index on votes(voter_id)
// backs the one-vote-per-voter rule independently of the has-voted flag.
type PostgresVotes struct {
	db *sql.DB
}

func NewPostgresVotes(db *sql.DB) *PostgresVotes {
	return &PostgresVotes{db: db}
}

func (s *PostgresVotes) Insert(ctx context.Context, vote *models.Vote) error {
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO votes (id, voter_id, candidate_id, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.UUID(vote.ID), uuid.UUID(vote.VoterID), uuid.UUID(vote.CandidateID), vote.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("vote for voter %s: %w", vote.VoterID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *PostgresVotes) Logs(ctx context.Context, limit int) ([]*models.VoteLog, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT v.id, v.voter_id, vr.full_name, v.candidate_id, c.name, v.created_at
		FROM votes v
		JOIN voters vr ON vr.id = v.voter_id
		JOIN candidates c ON c.id = v.candidate_id
		ORDER BY v.created_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var logs []*models.VoteLog
	for rows.Next() {
		var (
			entry                   models.VoteLog
			voteID, voterID, candID uuid.UUID
		)
		if err := rows.Scan(&voteID, &voterID, &entry.VoterName, &candID, &entry.CandidateName, &entry.CastAt); err != nil {
			return nil, fmt.Errorf("scan vote log: %w", err)
		}
		entry.VoteID = id.VoteID(voteID)
		entry.VoterID = id.VoterID(voterID)
		entry.CandidateID = id.CandidateID(candID)
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote logs: %w", err)
	}
	return logs, nil
}

func (s *PostgresVotes) Count(ctx context.Context) (int, error) {
	var n int
	if err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM votes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var (
		c           models.Candidate
		candidateID uuid.UUID
	)
	err := row.Scan(&candidateID, &c.Name, &c.Party, &c.Position, &c.SymbolURL, &c.VoteCount, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("candidate not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan candidate: %w", err)
	}
	c.ID = id.CandidateID(candidateID)
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
