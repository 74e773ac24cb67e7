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

	"votebooth/internal/queue/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
	txcontext "votebooth/pkg/platform/tx"
)

// PostgresStore draws ticket numbers from the ticket_number_seq sequence, so
// allocation is a single atomic nextval and numbers survive ClearWaiting.
// A partial unique index keeps one waiting ticket per voter.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectTicketColumns = `
	SELECT id, number, holder_name, voter_id, status, created_at, completed_at
	FROM tickets`

func (s *PostgresStore) Next(ctx context.Context, holderName string, voterID *id.VoterID, now time.Time) (*models.Ticket, error) {
	ticket := &models.Ticket{
		ID:         id.NewTicketID(),
		HolderName: holderName,
		Status:     models.StatusWaiting,
		CreatedAt:  now,
	}
	var voter uuid.NullUUID
	if voterID != nil {
		v := *voterID
		ticket.VoterID = &v
		voter = uuid.NullUUID{UUID: uuid.UUID(v), Valid: true}
	}

	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO tickets (id, number, holder_name, voter_id, status, created_at)
		VALUES ($1, nextval('ticket_number_seq'), $2, $3, $4, $5)
		RETURNING number`,
		uuid.UUID(ticket.ID), holderName, voter, string(models.StatusWaiting), now,
	).Scan(&ticket.Number)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("voter already waiting: %w", sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("insert ticket: %w", err)
	}
	return ticket, nil
}

func (s *PostgresStore) FindWaitingByVoter(ctx context.Context, voterID id.VoterID) (*models.Ticket, error) {
	row := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, selectTicketColumns+`
		WHERE voter_id = $1 AND status = 'waiting'`,
		uuid.UUID(voterID),
	)
	return scanTicket(row)
}

func (s *PostgresStore) Complete(ctx context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error) {
	q := txcontext.Executor(ctx, s.db)
	row := q.QueryRowContext(ctx, `
		UPDATE tickets SET status = 'completed', completed_at = $2
		WHERE id = $1 AND status = 'waiting'
		RETURNING id, number, holder_name, voter_id, status, created_at, completed_at`,
		uuid.UUID(ticketID), at,
	)
	ticket, err := scanTicket(row)
	if err == nil || !errors.Is(err, sentinel.ErrNotFound) {
		return ticket, err
	}

	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id = $1)`, uuid.UUID(ticketID)).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check ticket exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("ticket not found: %w", sentinel.ErrNotFound)
	}
	return nil, fmt.Errorf("ticket already completed: %w", sentinel.ErrInvalidState)
}

func (s *PostgresStore) List(ctx context.Context, status models.Status) ([]*models.Ticket, error) {
	statuses := []string{string(models.StatusWaiting), string(models.StatusCompleted)}
	if status != "" {
		statuses = []string{string(status)}
	}
	return s.query(ctx, selectTicketColumns+`
		WHERE status = ANY($1::text[])
		ORDER BY CASE WHEN status = 'waiting' THEN 0 ELSE 1 END,
		         CASE WHEN status = 'waiting' THEN number END ASC,
		         completed_at DESC`,
		pq.Array(statuses),
	)
}

func (s *PostgresStore) ClearWaiting(ctx context.Context) (int, error) {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM tickets WHERE status = 'waiting'`)
	if err != nil {
		return 0, fmt.Errorf("clear waiting tickets: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear waiting rows: %w", err)
	}
	return int(n), nil
}

func (s *PostgresStore) CountWaiting(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM tickets WHERE status = 'waiting'`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count waiting tickets: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) RecentCompleted(ctx context.Context, limit int) ([]*models.Ticket, error) {
	return s.query(ctx, selectTicketColumns+`
		WHERE status = 'completed'
		ORDER BY completed_at DESC
		LIMIT $1`,
		limit,
	)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]*models.Ticket, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return tickets, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {
	var (
		t           models.Ticket
		ticketID    uuid.UUID
		voterID     uuid.NullUUID
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&ticketID, &t.Number, &t.HolderName, &voterID, &status, &t.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan ticket: %w", err)
	}
	t.ID = id.TicketID(ticketID)
	t.Status = models.Status(status)
	if voterID.Valid {
		v := id.VoterID(voterID.UUID)
		t.VoterID = &v
	}
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	return &t, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
