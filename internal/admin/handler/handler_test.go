package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"votebooth/internal/admin"
	"votebooth/internal/audit"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/testutil"
)

type stubService struct {
	stats     *admin.StatsResponse
	err       error
	lastLimit int
}

func (s *stubService) Stats(context.Context) (*admin.StatsResponse, error) { return s.stats, s.err }

func (s *stubService) AuditTrail(_ context.Context, limit int) (*admin.AuditTrailResponse, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return &admin.AuditTrailResponse{Events: []audit.Event{{Action: audit.ActionVoteCast}}, Total: 1}, nil
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestHandleStats(t *testing.T) {
	t.Run("returns counters", func(t *testing.T) {
		svc := &stubService{stats: &admin.StatsResponse{Votes: 7, WaitingTickets: 3, GeneratedAt: time.Now()}}
		rr := testutil.DoRequest(newRouter(svc), testutil.NewRequest(t, http.MethodGet, "/admin/stats"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "votes", float64(7))
		testutil.AssertJSONContains(t, rr, "waitingTickets", float64(3))
	})

	t.Run("internal failure hides detail", func(t *testing.T) {
		svc := &stubService{err: dErrors.Wrap(errors.New("db down"), dErrors.CodeInternal, "failed to gather stats")}
		rr := testutil.DoRequest(newRouter(svc), testutil.NewRequest(t, http.MethodGet, "/admin/stats"))

		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
		assert.NotContains(t, rr.Body.String(), "db down")
	})
}

func TestHandleAuditTrail(t *testing.T) {
	svc := &stubService{}
	router := newRouter(svc)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?limit=25"))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "total", float64(1))
	assert.Equal(t, 25, svc.lastLimit)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/admin/audit?limit=ten"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}
