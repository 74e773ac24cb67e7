package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"votebooth/internal/ballot/handler/mocks"
	"votebooth/internal/ballot/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/ballot-mocks.go -package=mocks Service
type BallotHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestBallotHandlerSuite(t *testing.T) {
	suite.Run(t, new(BallotHandlerSuite))
}

func (s *BallotHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.RegisterVoter(s.router)
	h.RegisterAdmin(s.router)
}

func (s *BallotHandlerSuite) TestCastVote() {
	voterID := id.NewVoterID()
	candidateID := id.NewCandidateID()

	s.Run("records the vote and returns a receipt", func() {
		s.service.EXPECT().CastVote(gomock.Any(), voterID, candidateID.String()).Return(&models.Receipt{
			VoteID:        id.NewVoteID(),
			CandidateID:   candidateID,
			CandidateName: "Arjun Rao",
			VoteCount:     4,
			VotedAt:       time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vote", map[string]string{"candidateId": candidateID.String()})
		rr := testutil.DoRequest(s.router, testutil.WithVoter(req, voterID, "vote-eligible"))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "message", "vote recorded")
		testutil.AssertJSONHasKey(s.T(), rr, "receipt")
	})

	s.Run("second cast is a conflict", func() {
		s.service.EXPECT().CastVote(gomock.Any(), voterID, candidateID.String()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "this voter has already cast their vote"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vote", map[string]string{"candidateId": candidateID.String()})
		rr := testutil.DoRequest(s.router, testutil.WithVoter(req, voterID, "vote-eligible"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("missing candidate is rejected before the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vote", map[string]string{})
		rr := testutil.DoRequest(s.router, testutil.WithVoter(req, voterID, "vote-eligible"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing subject is an internal error", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/vote", map[string]string{"candidateId": candidateID.String()})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func (s *BallotHandlerSuite) TestListCandidates() {
	s.service.EXPECT().ListCandidates(gomock.Any()).Return([]*models.Candidate{
		{ID: id.NewCandidateID(), Name: "Arjun Rao", Party: "Unity", Position: "Ward 7"},
		{ID: id.NewCandidateID(), Name: "Bela Das", Party: "Green", Position: "Ward 7"},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/candidates"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "total", float64(2))
}

func (s *BallotHandlerSuite) TestCreateCandidate() {
	s.Run("created", func() {
		s.service.EXPECT().CreateCandidate(gomock.Any(), &models.CreateCandidateRequest{
			Name: "Chitra Menon", Party: "Independent", Position: "Ward 7",
		}).Return(&models.Candidate{ID: id.NewCandidateID(), Name: "Chitra Menon"}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/candidates", map[string]string{
			"name": "  Chitra Menon ", "party": "Independent", "position": "Ward 7",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "name", "Chitra Menon")
	})

	s.Run("duplicate is a conflict", func() {
		s.service.EXPECT().CreateCandidate(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "candidate already exists"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/candidates", map[string]string{
			"name": "Chitra Menon", "party": "Independent", "position": "Ward 7",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("party is required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/candidates", map[string]string{
			"name": "Chitra Menon", "position": "Ward 7",
		})
		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *BallotHandlerSuite) TestResults() {
	s.service.EXPECT().Results(gomock.Any()).Return([]models.Result{
		{CandidateID: id.NewCandidateID(), Name: "Bela Das", Votes: 2, Share: 66.67},
		{CandidateID: id.NewCandidateID(), Name: "Arjun Rao", Votes: 1, Share: 33.33},
	}, nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/results"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "totalVotes", float64(3))
}

func (s *BallotHandlerSuite) TestVoteLogs() {
	s.Run("default limit", func() {
		s.service.EXPECT().VoteLogs(gomock.Any(), defaultLogLimit).Return(nil, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/votes"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "total", float64(0))
	})

	s.Run("limit is capped", func() {
		s.service.EXPECT().VoteLogs(gomock.Any(), maxLogLimit).Return([]*models.VoteLog{{VoteID: id.NewVoteID()}}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/votes?limit=50000"))

		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("bad limit", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/admin/votes?limit=-2"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}
