// Package service runs the voter check-in stages: identifier to one-time
// code, code to an otp-verified credential, and a live face match to a
// vote-eligible credential. The acting voter of the face stage comes only from
// the presented credential.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"votebooth/internal/audit"
	"votebooth/internal/auth/models"
	"votebooth/internal/credential"
	"votebooth/internal/liveness"
	"votebooth/internal/otp"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/requestcontext"
)

const (
	defaultOTPVerifiedTTL  = 10 * time.Minute
	defaultVoteEligibleTTL = time.Hour
)

// VoterResolver finds voters by identifier or credential subject.
type VoterResolver interface {
	ResolveByIdentifier(ctx context.Context, identifierType, value string) (*votermodels.Voter, error)
	GetByID(ctx context.Context, voterID id.VoterID) (*votermodels.Voter, error)
}

// CodeAuthenticator issues and checks one-time codes per contact.
type CodeAuthenticator interface {
	Request(ctx context.Context, contact string) error
	Verify(ctx context.Context, contact, code string) (bool, error)
	Clear(ctx context.Context, contact string) error
}

// CredentialIssuer mints stage credentials.
type CredentialIssuer interface {
	Issue(ctx context.Context, subject id.VoterID, purpose credential.Purpose, ttl time.Duration) (*credential.Token, error)
}

// CredentialRevoker retires a credential before its natural expiry.
type CredentialRevoker interface {
	Revoke(ctx context.Context, v *credential.Verified) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

var errInvalidCode = dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")

type Service struct {
	voters          VoterResolver
	codes           CodeAuthenticator
	credentials     CredentialIssuer
	matcher         liveness.Matcher
	revoker         CredentialRevoker
	logger          *slog.Logger
	audit           AuditPublisher
	otpVerifiedTTL  time.Duration
	voteEligibleTTL time.Duration
}

type Option func(*Service)

func WithAuditPublisher(a AuditPublisher) Option {
	return func(s *Service) { s.audit = a }
}

// WithCredentialRevoker makes the face stage consume the otp-verified
// credential it was given, so one code check yields one vote-eligible
// credential.
func WithCredentialRevoker(r CredentialRevoker) Option {
	return func(s *Service) { s.revoker = r }
}

// WithCredentialTTLs overrides the lifetimes of the two stage credentials.
// Non-positive values keep the defaults.
func WithCredentialTTLs(otpVerified, voteEligible time.Duration) Option {
	return func(s *Service) {
		if otpVerified > 0 {
			s.otpVerifiedTTL = otpVerified
		}
		if voteEligible > 0 {
			s.voteEligibleTTL = voteEligible
		}
	}
}

func New(voters VoterResolver, codes CodeAuthenticator, credentials CredentialIssuer, matcher liveness.Matcher, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		voters:          voters,
		codes:           codes,
		credentials:     credentials,
		matcher:         matcher,
		logger:          logger,
		otpVerifiedTTL:  defaultOTPVerifiedTTL,
		voteEligibleTTL: defaultVoteEligibleTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Initiate resolves the voter and sends a one-time code to the registered phone.
func (s *Service) Initiate(ctx context.Context, req *models.InitiateRequest) (*models.InitiateResult, error) {
	voter, err := s.voters.ResolveByIdentifier(ctx, req.IdentifierType, req.IdentifierValue)
	if err != nil {
		return nil, err
	}
	if err := checkCanProceed(voter); err != nil {
		return nil, err
	}
	if voter.Phone == "" {
		s.logger.ErrorContext(ctx, "voter has no registered phone", "voter_id", voter.ID.String())
		return nil, dErrors.New(dErrors.CodeInternal, "no registered phone number for this voter")
	}

	if err := s.codes.Request(ctx, voter.Phone); err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionOTPRequested, VoterID: voter.ID.String()})
	return &models.InitiateResult{
		Message:   "a one-time code has been sent to your registered mobile number",
		PhoneHint: otp.ContactHint(voter.Phone),
	}, nil
}

// VerifyCode checks the submitted code. Unknown voters, wrong codes and
// expired codes all produce the same error. On success the code is cleared
// and an otp-verified credential is issued.
func (s *Service) VerifyCode(ctx context.Context, req *models.VerifyCodeRequest) (*models.StageResult, error) {
	voter, err := s.voters.ResolveByIdentifier(ctx, req.IdentifierType, req.IdentifierValue)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, errInvalidCode
		}
		return nil, err
	}
	if err := checkCanProceed(voter); err != nil {
		return nil, err
	}

	ok, err := s.codes.Verify(ctx, voter.Phone, req.Code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
	}
	if !ok {
		s.emit(ctx, audit.Event{Action: audit.ActionOTPRejected, VoterID: voter.ID.String()})
		return nil, errInvalidCode
	}

	if err := s.codes.Clear(ctx, voter.Phone); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear code")
	}

	token, err := s.credentials.Issue(ctx, voter.ID, credential.PurposeOTPVerified, s.otpVerifiedTTL)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.Event{Action: audit.ActionOTPVerified, VoterID: voter.ID.String()})
	return stageResult("code verified, proceed to face verification", token, voter), nil
}

// VerifyFace compares the live capture with the reference photo of the voter
// named by the otp-verified credential and, on a match, issues a
// vote-eligible credential for that same voter.
func (s *Service) VerifyFace(ctx context.Context, voterID id.VoterID, req *models.FaceRequest) (*models.StageResult, error) {
	voter, err := s.voters.GetByID(ctx, voterID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "voter session is invalid")
		}
		return nil, err
	}
	if err := checkCanProceed(voter); err != nil {
		return nil, err
	}
	if voter.ReferencePhoto == "" {
		return nil, dErrors.New(dErrors.CodeForbidden, "no reference photo on file, contact an election officer")
	}

	verdict, err := s.matcher.Compare(ctx, voter.ReferencePhoto, req.LivePhoto)
	if err != nil {
		if liveness.IsUnavailable(err) {
			s.logger.WarnContext(ctx, "liveness service unavailable", "voter_id", voter.ID.String(), "error", err)
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "face verification failed")
	}
	if verdict != liveness.Verified {
		s.emit(ctx, audit.Event{Action: audit.ActionFaceRejected, VoterID: voter.ID.String()})
		return nil, dErrors.New(dErrors.CodeUnauthorized, "face verification failed")
	}

	token, err := s.credentials.Issue(ctx, voter.ID, credential.PurposeVoteEligible, s.voteEligibleTTL)
	if err != nil {
		return nil, err
	}

	s.consumePresentedCredential(ctx, voter.ID)
	s.emit(ctx, audit.Event{Action: audit.ActionFaceVerified, VoterID: voter.ID.String()})
	return stageResult("face verified, you may join the queue and vote", token, voter), nil
}

// checkCanProceed refuses voters who already voted or are not approved.
func checkCanProceed(voter *votermodels.Voter) error {
	if voter.HasVoted {
		return dErrors.New(dErrors.CodeConflict, "this voter has already cast their vote")
	}
	switch voter.Status {
	case votermodels.StatusVerified:
		return nil
	case votermodels.StatusFlagged:
		return dErrors.New(dErrors.CodeForbidden, "voter is flagged for review")
	default:
		return dErrors.New(dErrors.CodeForbidden, "voter registration is pending approval")
	}
}

func stageResult(msg string, token *credential.Token, voter *votermodels.Voter) *models.StageResult {
	return &models.StageResult{
		Message:   msg,
		Token:     token.Value,
		Purpose:   token.Purpose.String(),
		ExpiresAt: token.ExpiresAt,
		Voter: models.VoterSummary{
			ID:       voter.ID.String(),
			FullName: voter.FullName,
		},
	}
}

// consumePresentedCredential revokes the otp-verified credential carried by
// the request. The vote-eligible credential is already issued, so a failure
// is only logged.
func (s *Service) consumePresentedCredential(ctx context.Context, voterID id.VoterID) {
	if s.revoker == nil {
		return
	}
	info, ok := requestcontext.CredentialInfo(ctx)
	if !ok || info.ID == "" || info.Purpose != credential.PurposeOTPVerified.String() {
		return
	}
	err := s.revoker.Revoke(ctx, &credential.Verified{
		Subject:   voterID,
		ID:        info.ID,
		Purpose:   credential.PurposeOTPVerified,
		ExpiresAt: info.ExpiresAt,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to consume otp-verified credential",
			"voter_id", voterID.String(),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", string(event.Action))
	}
}
