// Package httpapi composes the feature handlers into the public router and
// applies the per-stage guards.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	adminhandler "votebooth/internal/admin/handler"
	authhandler "votebooth/internal/auth/handler"
	ballothandler "votebooth/internal/ballot/handler"
	"votebooth/internal/credential"
	feedbackhandler "votebooth/internal/feedback/handler"
	"votebooth/internal/platform/health"
	queuehandler "votebooth/internal/queue/handler"
	"votebooth/internal/ratelimit"
	voterhandler "votebooth/internal/voter/handler"
	adminmw "votebooth/pkg/platform/middleware/admin"
	authmw "votebooth/pkg/platform/middleware/auth"
	devicemw "votebooth/pkg/platform/middleware/device"
	"votebooth/pkg/platform/middleware/metadata"
	request "votebooth/pkg/platform/middleware/request"
	"votebooth/pkg/platform/middleware/requesttime"
)

// APIPrefix is where every versioned endpoint is mounted.
const APIPrefix = "/api/v1"

// Deps carries everything the router mounts. Nil handlers are skipped.
type Deps struct {
	Logger         *slog.Logger
	Authenticator  authmw.Authenticator
	StaffTokenHash string
	AdminTokenHash string
	RequestTimeout time.Duration
	Latency        *request.Metrics
	Metrics        http.Handler
	// CheckInLimit throttles the unauthenticated check-in endpoints per client IP.
	CheckInLimit *ratelimit.Middleware

	Health   *health.Handler
	Auth     *authhandler.Handler
	Voters   *voterhandler.Handler
	Queue    *queuehandler.Handler
	Ballot   *ballothandler.Handler
	Feedback *feedbackhandler.Handler
	Admin    *adminhandler.Handler
}

// NewRouter wires the middleware chain and every route group.
//
// Check-in order is enforced by credential purpose: the face step accepts only
// an otp-verified credential, and slot, ballot and vote accept only
// vote-eligible. Staff and admin groups take bearer tokens in dedicated
// headers; admin routes reject the staff token. Staff may read the roll but
// only admins change it.
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(devicemw.Device(&devicemw.Config{FingerprintFn: credential.Fingerprint}))
	r.Use(request.Logger(d.Logger))
	r.Use(request.Latency(d.Latency))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route(APIPrefix, func(api chi.Router) {
		// The display stream is long-lived and must stay outside the timeout.
		if d.Queue != nil {
			d.Queue.RegisterStream(api)
		}

		api.Group(func(r chi.Router) {
			r.Use(request.ContentTypeJSON)
			if d.RequestTimeout > 0 {
				r.Use(request.Timeout(d.RequestTimeout))
			}

			r.Group(func(r chi.Router) {
				if d.CheckInLimit != nil {
					r.Use(d.CheckInLimit.Handler)
				}
				if d.Auth != nil {
					d.Auth.Register(r)
				}
			})
			if d.Voters != nil {
				d.Voters.Register(r)
			}
			if d.Feedback != nil {
				d.Feedback.Register(r)
			}

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequirePurpose(d.Authenticator, string(credential.PurposeOTPVerified), d.Logger))
				if d.Auth != nil {
					d.Auth.RegisterFace(r)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(authmw.RequirePurpose(d.Authenticator, string(credential.PurposeVoteEligible), d.Logger))
				if d.Queue != nil {
					d.Queue.RegisterVoter(r)
				}
				if d.Ballot != nil {
					d.Ballot.RegisterVoter(r)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(adminmw.RequireToken(d.Logger,
					adminmw.StaffCredential(d.StaffTokenHash),
					adminmw.AdminCredential(d.AdminTokenHash),
				))
				if d.Queue != nil {
					d.Queue.Register(r)
				}
				if d.Voters != nil {
					d.Voters.RegisterStaff(r)
				}
			})

			r.Group(func(r chi.Router) {
				r.Use(adminmw.RequireToken(d.Logger, adminmw.AdminCredential(d.AdminTokenHash)))
				if d.Voters != nil {
					d.Voters.RegisterAdmin(r)
				}
				if d.Ballot != nil {
					d.Ballot.RegisterAdmin(r)
				}
				if d.Feedback != nil {
					d.Feedback.RegisterAdmin(r)
				}
				if d.Admin != nil {
					d.Admin.Register(r)
				}
			})
		})
	})
	return r
}
