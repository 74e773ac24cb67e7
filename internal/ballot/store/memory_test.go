package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votebooth/internal/ballot/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
)

func newCandidate(name, position string) *models.Candidate {
	return &models.Candidate{ID: id.NewCandidateID(), Name: name, Party: "P", Position: position, CreatedAt: time.Now()}
}

func TestInMemoryCandidates_UniqueNameAndPosition(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCandidates()

	require.NoError(t, s.Create(ctx, newCandidate("Ravi", "Mayor")))
	require.NoError(t, s.Create(ctx, newCandidate("Ravi", "Council")))
	err := s.Create(ctx, newCandidate("RAVI", "mayor"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestInMemoryCandidates_IncrementTallyIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCandidates()
	c := newCandidate("Meera", "Mayor")
	require.NoError(t, s.Create(ctx, c))

	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementTally(ctx, c.ID)
		}()
	}
	wg.Wait()

	found, err := s.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), found.VoteCount)

	_, err = s.IncrementTally(ctx, id.NewCandidateID())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryCandidates_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryCandidates()
	c := newCandidate("Meera", "Mayor")
	require.NoError(t, s.Create(ctx, c))

	found, _ := s.FindByID(ctx, c.ID)
	found.VoteCount = 99
	again, _ := s.FindByID(ctx, c.ID)
	assert.Equal(t, int64(0), again.VoteCount)
}

func TestInMemoryVotes_OnePerVoter(t *testing.T) {
	ctx := context.Background()
	cands := NewInMemoryCandidates()
	c := newCandidate("Meera", "Mayor")
	require.NoError(t, cands.Create(ctx, c))
	votes := NewInMemoryVotes(cands, nil)

	voter := id.NewVoterID()
	first := &models.Vote{ID: id.NewVoteID(), VoterID: voter, CandidateID: c.ID, CreatedAt: time.Now()}
	require.NoError(t, votes.Insert(ctx, first))
	err := votes.Insert(ctx, &models.Vote{ID: id.NewVoteID(), VoterID: voter, CandidateID: c.ID})
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	second := &models.Vote{ID: id.NewVoteID(), VoterID: id.NewVoterID(), CandidateID: c.ID, CreatedAt: time.Now()}
	require.NoError(t, votes.Insert(ctx, second))

	logs, err := votes.Logs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, second.ID, logs[0].VoteID)
	assert.Equal(t, "Meera", logs[0].CandidateName)

	count, _ := votes.Count(ctx)
	assert.Equal(t, 2, count)
}

func TestMemoryTx_SerializesPerVoter(t *testing.T) {
	tx := NewMemoryTx()
	voter := id.NewVoterID()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = tx.RunInTx(context.Background(), voter, func(context.Context) error {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestMemoryTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := NewMemoryTx().RunInTx(ctx, id.NewVoterID(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
