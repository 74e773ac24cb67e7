//go:build integration

package store_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votebooth/internal/queue/models"
	"votebooth/internal/queue/store"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
	"votebooth/pkg/testutil"
	"votebooth/pkg/testutil/containers"
)

type PostgresTicketSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresTicketSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresTicketSuite))
}

func (s *PostgresTicketSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresTicketSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateModuleTables(context.Background()))
}

func (s *PostgresTicketSuite) currentMax(ctx context.Context) int64 {
	t, err := s.store.Next(ctx, "walk-in", nil, time.Now().UTC())
	s.Require().NoError(err)
	return t.Number
}

func (s *PostgresTicketSuite) TestConcurrentNextIsContiguousAfterCurrentMax() {
	ctx := context.Background()
	k := s.currentMax(ctx)
	const n = 40

	tickets, errs := testutil.RunConcurrentCollect(n, func(int) (*models.Ticket, error) {
		return s.store.Next(ctx, "walk-in", nil, time.Now().UTC())
	})
	s.Require().Empty(errs)

	numbers := make([]int64, 0, n)
	for _, t := range tickets {
		numbers = append(numbers, t.Number)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, got := range numbers {
		s.Equal(k+int64(i)+1, got)
	}
}

func (s *PostgresTicketSuite) TestWaitingTicketPerVoterAndCompletion() {
	ctx := context.Background()
	voterID := s.seedVoter(ctx)

	first, err := s.store.Next(ctx, "Asha", &voterID, time.Now().UTC())
	s.Require().NoError(err)
	_, err = s.store.Next(ctx, "Asha", &voterID, time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrConflict)

	found, err := s.store.FindWaitingByVoter(ctx, voterID)
	s.Require().NoError(err)
	s.Equal(first.ID, found.ID)
	s.Require().NotNil(found.VoterID)
	s.Equal(voterID, *found.VoterID)

	done, err := s.store.Complete(ctx, first.ID, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, done.Status)
	s.NotNil(done.CompletedAt)

	_, err = s.store.Complete(ctx, first.ID, time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrInvalidState)
	_, err = s.store.Complete(ctx, id.NewTicketID(), time.Now().UTC())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresTicketSuite) TestListOrderingAndClear() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	a, _ := s.store.Next(ctx, "a", nil, base)
	b, _ := s.store.Next(ctx, "b", nil, base)
	c, _ := s.store.Next(ctx, "c", nil, base)
	_, err := s.store.Complete(ctx, a.ID, base.Add(time.Minute))
	s.Require().NoError(err)
	_, err = s.store.Complete(ctx, c.ID, base.Add(2*time.Minute))
	s.Require().NoError(err)

	all, err := s.store.List(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(b.ID, all[0].ID)
	s.Equal(c.ID, all[1].ID)
	s.Equal(a.ID, all[2].ID)

	recent, err := s.store.RecentCompleted(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(recent, 1)
	s.Equal(c.ID, recent[0].ID)

	removed, err := s.store.ClearWaiting(ctx)
	s.Require().NoError(err)
	s.Equal(1, removed)
	waiting, err := s.store.CountWaiting(ctx)
	s.Require().NoError(err)
	s.Zero(waiting)

	next, err := s.store.Next(ctx, "d", nil, base)
	s.Require().NoError(err)
	s.Greater(next.Number, c.Number)
}

func (s *PostgresTicketSuite) seedVoter(ctx context.Context) id.VoterID {
	voterID := id.NewVoterID()
	_, err := s.postgres.DB.ExecContext(ctx, `
		INSERT INTO voters (id, full_name, date_of_birth, address, phone, reference_photo, status,
		                    flag_reason, has_voted, created_at, updated_at)
		VALUES ($1, 'Asha', '1990-01-01', 'x', '+15550001111', '', 'Verified', '', false, now(), now())`,
		voterID.String(),
	)
	s.Require().NoError(err)
	return voterID
}
