package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votebooth/internal/audit"
	"votebooth/internal/auth/models"
	"votebooth/internal/credential"
	"votebooth/internal/credential/revocation"
	"votebooth/internal/liveness"
	"votebooth/internal/otp"
	otpstore "votebooth/internal/otp/store"
	votermodels "votebooth/internal/voter/models"
	voterservice "votebooth/internal/voter/service"
	voterstore "votebooth/internal/voter/store"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/requestcontext"
)

const testSigningKey = "check-in-test-signing-key-0123456789abcdef"

type capturingSender struct {
	codes map[string]string
}

func (c *capturingSender) Send(_ context.Context, contact, code string) error {
	c.codes[contact] = code
	return nil
}

type recordingMatcher struct {
	verdict   liveness.Verdict
	err       error
	reference string
	live      string
}

func (m *recordingMatcher) Compare(_ context.Context, reference, live string) (liveness.Verdict, error) {
	m.reference, m.live = reference, live
	return m.verdict, m.err
}

type CheckInSuite struct {
	suite.Suite
	ctx         context.Context
	now         time.Time
	voters      *voterstore.InMemory
	sender      *capturingSender
	matcher     *recordingMatcher
	credentials *credential.Service
	trail       *audit.InMemoryStore
	service     *Service
	voter       *votermodels.Voter
}

func TestCheckInSuite(t *testing.T) {
	suite.Run(t, new(CheckInSuite))
}

func (s *CheckInSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Now()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.voters = voterstore.NewInMemory()
	s.sender = &capturingSender{codes: make(map[string]string)}
	s.matcher = &recordingMatcher{verdict: liveness.Verified}
	s.trail = audit.NewInMemoryStore(100)

	creds, err := credential.New(testSigningKey, "votebooth-test")
	s.Require().NoError(err)
	s.credentials = creds

	codes := otp.New(otpstore.NewInMemory(), s.sender, logger, otp.WithClock(func() time.Time { return s.now }))
	s.service = New(
		voterservice.New(s.voters, logger),
		codes,
		creds,
		s.matcher,
		logger,
		WithAuditPublisher(audit.NewPublisher(s.trail, logger)),
		WithCredentialTTLs(10*time.Minute, time.Hour),
	)

	s.voter = s.seedVoter(votermodels.StatusVerified)
}

func (s *CheckInSuite) seedVoter(status votermodels.Status) *votermodels.Voter {
	v := &votermodels.Voter{
		ID:             id.NewVoterID(),
		FullName:       "Meera Nair",
		DateOfBirth:    "1992-07-30",
		Address:        "22 Beach Road",
		Phone:          "+919876543210",
		Identifiers:    map[votermodels.IdentifierType]string{votermodels.IdentifierAadhaar: "123456789012"},
		ReferencePhoto: "reference-photo",
		Status:         status,
		CreatedAt:      s.now,
		UpdatedAt:      s.now,
	}
	s.Require().NoError(s.voters.Create(s.ctx, v))
	return v
}

func (s *CheckInSuite) initiate() {
	res, err := s.service.Initiate(s.ctx, &models.InitiateRequest{IdentifierType: "AADHAAR", IdentifierValue: "123456789012"})
	s.Require().NoError(err)
	s.Equal("3210", res.PhoneHint)
	s.NotContains(res.Message, s.sender.codes[s.voter.Phone])
}

func (s *CheckInSuite) verifyCode(code string) (*models.StageResult, error) {
	return s.service.VerifyCode(s.ctx, &models.VerifyCodeRequest{
		IdentifierType:  "AADHAAR",
		IdentifierValue: "123456789012",
		Code:            code,
	})
}

func (s *CheckInSuite) TestCodeStageIssuesOTPVerifiedCredential() {
	s.initiate()
	code := s.sender.codes[s.voter.Phone]
	s.Require().Len(code, 6)

	res, err := s.verifyCode(code)
	s.Require().NoError(err)
	s.Equal(credential.PurposeOTPVerified.String(), res.Purpose)
	s.Equal(s.voter.ID.String(), res.Voter.ID)

	verified, err := s.credentials.Verify(s.ctx, res.Token, credential.PurposeOTPVerified)
	s.Require().NoError(err)
	s.Equal(s.voter.ID, verified.Subject)

	_, err = s.verifyCode(code)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized), "code is cleared after a successful verification")
}

func (s *CheckInSuite) TestWrongCodeAndUnknownVoterLookAlike() {
	s.initiate()

	_, wrongErr := s.verifyCode("000000")
	_, unknownErr := s.service.VerifyCode(s.ctx, &models.VerifyCodeRequest{
		IdentifierType:  "AADHAAR",
		IdentifierValue: "999999999999",
		Code:            "000000",
	})

	s.Require().Error(wrongErr)
	s.Require().Error(unknownErr)
	s.Equal(wrongErr.Error(), unknownErr.Error())
	s.True(dErrors.HasCode(unknownErr, dErrors.CodeUnauthorized))
}

func (s *CheckInSuite) TestExpiredCodeIsRejected() {
	s.initiate()
	code := s.sender.codes[s.voter.Phone]

	s.now = s.now.Add(5*time.Minute + time.Second)
	_, err := s.verifyCode(code)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *CheckInSuite) TestInitiateRefusals() {
	s.Run("unknown voter", func() {
		_, err := s.service.Initiate(s.ctx, &models.InitiateRequest{IdentifierType: "AADHAAR", IdentifierValue: "111111111111"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("already voted", func() {
		s.Require().NoError(s.voters.MarkVoted(s.ctx, s.voter.ID, s.now))
		_, err := s.service.Initiate(s.ctx, &models.InitiateRequest{IdentifierType: "AADHAAR", IdentifierValue: "123456789012"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Empty(s.sender.codes)
	})
}

func (s *CheckInSuite) TestPendingVoterCannotStart() {
	pending := &votermodels.Voter{
		ID:          id.NewVoterID(),
		FullName:    "Pending Person",
		DateOfBirth: "2000-01-01",
		Address:     "x",
		Phone:       "+910000000001",
		Identifiers: map[votermodels.IdentifierType]string{votermodels.IdentifierRegisterNumber: "REG-1"},
		Status:      votermodels.StatusPending,
	}
	s.Require().NoError(s.voters.Create(s.ctx, pending))

	_, err := s.service.Initiate(s.ctx, &models.InitiateRequest{IdentifierType: "REGISTER_NUMBER", IdentifierValue: "REG-1"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *CheckInSuite) TestFaceStage() {
	s.Run("match issues vote-eligible credential for the credential subject", func() {
		s.matcher.verdict = liveness.Verified
		res, err := s.service.VerifyFace(s.ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "live-photo"})
		s.Require().NoError(err)
		s.Equal("reference-photo", s.matcher.reference)
		s.Equal("live-photo", s.matcher.live)

		verified, err := s.credentials.Verify(s.ctx, res.Token, credential.PurposeVoteEligible)
		s.Require().NoError(err)
		s.Equal(s.voter.ID, verified.Subject)
	})

	s.Run("mismatch is unauthorized and audited", func() {
		s.matcher.verdict = liveness.NotVerified
		_, err := s.service.VerifyFace(s.ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "someone-else"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		events, _ := s.trail.Recent(s.ctx, 1)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionFaceRejected, events[0].Action)
	})

	s.Run("matcher outage is retryable and issues nothing", func() {
		s.matcher.verdict = ""
		s.matcher.err = dErrors.Wrap(liveness.ErrServiceUnavailable, dErrors.CodeUnavailable, "liveness service timed out")
		res, err := s.service.VerifyFace(s.ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "live-photo"})
		s.Nil(res)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
		s.True(dErrors.Retryable(err))
		s.matcher.err = nil
	})

	s.Run("unexpected matcher error is internal", func() {
		s.matcher.err = errors.New("boom")
		_, err := s.service.VerifyFace(s.ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "live-photo"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.matcher.err = nil
	})

	s.Run("unknown subject", func() {
		_, err := s.service.VerifyFace(s.ctx, id.NewVoterID(), &models.FaceRequest{LivePhoto: "live-photo"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *CheckInSuite) TestFlaggedVoterCannotVerifyFace() {
	v := s.voter.Clone()
	v.Flag("duplicate registration", s.now)
	s.Require().NoError(s.voters.UpdateStatus(s.ctx, v))

	_, err := s.service.VerifyFace(s.ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "live-photo"})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *CheckInSuite) TestFaceStageConsumesTheOTPCredential() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	creds, err := credential.New(testSigningKey, "votebooth-test", credential.WithRevocationList(revocation.NewInMemory()))
	s.Require().NoError(err)
	svc := New(voterservice.New(s.voters, logger), otp.New(otpstore.NewInMemory(), s.sender, logger), creds, s.matcher, logger,
		WithCredentialRevoker(creds))

	otpToken, err := creds.Issue(s.ctx, s.voter.ID, credential.PurposeOTPVerified, 10*time.Minute)
	s.Require().NoError(err)
	ctx := requestcontext.WithCredential(s.ctx, requestcontext.Credential{
		ID:        otpToken.ID,
		Purpose:   otpToken.Purpose.String(),
		ExpiresAt: otpToken.ExpiresAt,
	})

	s.Run("a rejected face leaves the credential usable for a retry", func() {
		s.matcher.verdict = liveness.NotVerified
		_, err := svc.VerifyFace(ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "blurry"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, err = creds.Verify(s.ctx, otpToken.Value, credential.PurposeOTPVerified)
		s.NoError(err)
	})

	s.Run("a match retires it", func() {
		s.matcher.verdict = liveness.Verified
		res, err := svc.VerifyFace(ctx, s.voter.ID, &models.FaceRequest{LivePhoto: "live-photo"})
		s.Require().NoError(err)

		_, err = creds.Verify(s.ctx, otpToken.Value, credential.PurposeOTPVerified)
		s.ErrorIs(err, credential.ErrRevoked)

		_, err = creds.Verify(s.ctx, res.Token, credential.PurposeVoteEligible)
		s.NoError(err, "only the presented credential is retired")
	})
}
