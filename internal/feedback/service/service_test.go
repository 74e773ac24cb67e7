package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votebooth/internal/audit"
	"votebooth/internal/feedback/models"
	"votebooth/internal/feedback/store"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

type rollStub map[id.VoterID]*votermodels.Voter

func (r rollStub) GetByID(_ context.Context, voterID id.VoterID) (*votermodels.Voter, error) {
	v, ok := r[voterID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
	}
	return v, nil
}

type failingStore struct{ store.InMemory }

func (*failingStore) Create(context.Context, *models.Feedback) error {
	return errors.New("disk full")
}

type recordingAudit struct {
	events []audit.Event
}

func (a *recordingAudit) Emit(_ context.Context, event audit.Event) error {
	a.events = append(a.events, event)
	return nil
}

type FeedbackServiceSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	voter   *votermodels.Voter
	store   *store.InMemory
	audit   *recordingAudit
	service *Service
}

func TestFeedbackServiceSuite(t *testing.T) {
	suite.Run(t, new(FeedbackServiceSuite))
}

func (s *FeedbackServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 4, 14, 17, 0, 0, 0, time.UTC)
	s.voter = &votermodels.Voter{ID: id.NewVoterID(), FullName: "Meena Iyer", HasVoted: true}
	s.store = store.NewInMemory()
	s.audit = &recordingAudit{}
	s.service = New(s.store, rollStub{s.voter.ID: s.voter}, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithAuditPublisher(s.audit),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *FeedbackServiceSuite) submit(message string) (*models.Feedback, error) {
	return s.service.Submit(s.ctx, &models.SubmitRequest{VoterID: s.voter.ID.String(), Message: message})
}

func (s *FeedbackServiceSuite) TestSubmit() {
	s.Run("stores the message and records an audit event", func() {
		f, err := s.submit("queue moved quickly")
		s.Require().NoError(err)
		s.Equal(s.voter.ID, f.VoterID)
		s.Equal(s.now, f.CreatedAt)
		s.False(f.ID.IsNil())

		s.Require().Len(s.audit.events, 1)
		s.Equal(audit.ActionFeedbackReceived, s.audit.events[0].Action)
		s.Equal(s.voter.ID.String(), s.audit.events[0].VoterID)
	})

	s.Run("unknown voter is not found", func() {
		_, err := s.service.Submit(s.ctx, &models.SubmitRequest{VoterID: id.NewVoterID().String(), Message: "hello"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("malformed voter id is invalid input", func() {
		_, err := s.service.Submit(s.ctx, &models.SubmitRequest{VoterID: "booth-7", Message: "hello"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("store failure is internal", func() {
		svc := New(&failingStore{}, rollStub{s.voter.ID: s.voter}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		_, err := svc.Submit(s.ctx, &models.SubmitRequest{VoterID: s.voter.ID.String(), Message: "hello"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *FeedbackServiceSuite) TestRecentIsNewestFirst() {
	for _, msg := range []string{"first", "second", "third"} {
		_, err := s.submit(msg)
		s.Require().NoError(err)
		s.now = s.now.Add(time.Minute)
	}

	items, err := s.service.Recent(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(items, 3)
	s.Equal("third", items[0].Message)
	s.Equal("first", items[2].Message)

	items, err = s.service.Recent(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(items, 2)
	s.Equal("second", items[1].Message)
}

func TestSubmitRequestValidation(t *testing.T) {
	for name, tc := range map[string]struct {
		req     models.SubmitRequest
		wantErr bool
	}{
		"trimmed message":    {req: models.SubmitRequest{VoterID: " x ", Message: "  fine  "}},
		"blank message":      {req: models.SubmitRequest{VoterID: "x", Message: "   "}, wantErr: true},
		"missing voter id":   {req: models.SubmitRequest{Message: "fine"}, wantErr: true},
		"message too long":   {req: models.SubmitRequest{VoterID: "x", Message: strings.Repeat("é", models.MaxMessageLength+1)}, wantErr: true},
		"message at the cap": {req: models.SubmitRequest{VoterID: "x", Message: strings.Repeat("é", models.MaxMessageLength)}},
	} {
		t.Run(name, func(t *testing.T) {
			req := tc.req
			req.Sanitize()
			err := req.Validate()
			if tc.wantErr {
				if !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
					t.Fatalf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
