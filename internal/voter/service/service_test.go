package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votebooth/internal/audit"
	"votebooth/internal/voter/models"
	"votebooth/internal/voter/store"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

type recordingAudit struct {
	actions []audit.Action
}

func (a *recordingAudit) Emit(_ context.Context, event audit.Event) error {
	a.actions = append(a.actions, event.Action)
	return nil
}

type VoterServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemory
	audit   *recordingAudit
	service *Service
	now     time.Time
}

func TestVoterServiceSuite(t *testing.T) {
	suite.Run(t, new(VoterServiceSuite))
}

func (s *VoterServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.audit = &recordingAudit{}
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store, logger, WithAuditPublisher(s.audit), WithClock(func() time.Time { return s.now }))
}

func (s *VoterServiceSuite) registerRequest() *models.RegisterRequest {
	return &models.RegisterRequest{
		FullName:      "Asha Rao",
		DateOfBirth:   "1990-04-12",
		Address:       "12 Lake Road",
		Phone:         "+919800000001",
		AadhaarNumber: "123456789012",
		VoterIDNumber: "abc1234567",
	}
}

func (s *VoterServiceSuite) TestRegister() {
	s.Run("creates a pending voter with normalized identifiers", func() {
		voter, err := s.service.Register(s.ctx, s.registerRequest())
		s.Require().NoError(err)
		s.Equal(models.StatusPending, voter.Status)
		s.False(voter.HasVoted)
		s.Equal("ABC1234567", voter.Identifiers[models.IdentifierVoterID])
		s.Equal(s.now, voter.CreatedAt)
		s.Contains(s.audit.actions, audit.ActionVoterRegistered)
	})

	s.Run("duplicate identifier is a conflict", func() {
		req := s.registerRequest()
		req.Phone = "+919800000099"
		req.VoterIDNumber = ""
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("duplicate phone is a conflict", func() {
		req := s.registerRequest()
		req.AadhaarNumber = "999999999999"
		req.VoterIDNumber = ""
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("at least one identifier is required", func() {
		req := s.registerRequest()
		req.Phone = "+919800000002"
		req.AadhaarNumber = ""
		req.VoterIDNumber = ""
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("malformed aadhaar is rejected", func() {
		req := s.registerRequest()
		req.Phone = "+919800000003"
		req.AadhaarNumber = "12345"
		req.VoterIDNumber = ""
		_, err := s.service.Register(s.ctx, req)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *VoterServiceSuite) TestResolveByIdentifier() {
	created, err := s.service.Register(s.ctx, s.registerRequest())
	s.Require().NoError(err)

	s.Run("resolves by aadhaar", func() {
		voter, err := s.service.ResolveByIdentifier(s.ctx, "AADHAAR", "123456789012")
		s.Require().NoError(err)
		s.Equal(created.ID, voter.ID)
	})

	s.Run("voter id lookup is case-insensitive", func() {
		voter, err := s.service.ResolveByIdentifier(s.ctx, "voter_id", " abc1234567 ")
		s.Require().NoError(err)
		s.Equal(created.ID, voter.ID)
	})

	s.Run("unknown identifier is not found", func() {
		_, err := s.service.ResolveByIdentifier(s.ctx, "AADHAAR", "000000000000")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown identifier type is invalid input", func() {
		_, err := s.service.ResolveByIdentifier(s.ctx, "PASSPORT", "X1")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *VoterServiceSuite) TestApproveAndFlag() {
	created, err := s.service.Register(s.ctx, s.registerRequest())
	s.Require().NoError(err)

	flagged, err := s.service.Flag(s.ctx, created.ID, "  ")
	s.Require().NoError(err)
	s.Equal(models.StatusFlagged, flagged.Status)
	s.Equal("No reason provided", flagged.FlagReason)
	s.False(flagged.Eligible())

	s.now = s.now.Add(time.Minute)
	approved, err := s.service.Approve(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, approved.Status)
	s.Empty(approved.FlagReason)
	s.True(approved.Eligible())

	stored, err := s.service.GetByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, stored.Status)
	s.Equal(s.now, stored.UpdatedAt)

	_, err = s.service.Approve(s.ctx, id.NewVoterID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *VoterServiceSuite) TestListAndCounts() {
	first, err := s.service.Register(s.ctx, s.registerRequest())
	s.Require().NoError(err)

	s.now = s.now.Add(time.Hour)
	second := s.registerRequest()
	second.Phone = "+919800000050"
	second.AadhaarNumber = "210987654321"
	second.VoterIDNumber = ""
	created, err := s.service.Register(s.ctx, second)
	s.Require().NoError(err)
	_, err = s.service.Approve(s.ctx, created.ID)
	s.Require().NoError(err)

	all, err := s.service.List(s.ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(created.ID, all[0].ID, "newest first")
	s.Equal(first.ID, all[1].ID)

	pending, err := s.service.List(s.ctx, models.ListFilter{Statuses: []models.Status{models.StatusPending}})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(first.ID, pending[0].ID)

	_, err = s.service.List(s.ctx, models.ListFilter{Statuses: []models.Status{"Archived"}})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	counts, err := s.service.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.Counts{Total: 2, Pending: 1, Verified: 1}, counts)
}
