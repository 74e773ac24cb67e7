package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"votebooth/internal/admin"
	"votebooth/internal/admin/adapters"
	adminhandler "votebooth/internal/admin/handler"
	"votebooth/internal/audit"
	authhandler "votebooth/internal/auth/handler"
	authservice "votebooth/internal/auth/service"
	ballothandler "votebooth/internal/ballot/handler"
	ballotservice "votebooth/internal/ballot/service"
	ballotstore "votebooth/internal/ballot/store"
	"votebooth/internal/credential"
	"votebooth/internal/credential/revocation"
	feedbackhandler "votebooth/internal/feedback/handler"
	feedbackservice "votebooth/internal/feedback/service"
	feedbackstore "votebooth/internal/feedback/store"
	httpapi "votebooth/internal/http"
	"votebooth/internal/liveness"
	"votebooth/internal/otp"
	otpstore "votebooth/internal/otp/store"
	"votebooth/internal/platform/config"
	"votebooth/internal/platform/database"
	"votebooth/internal/platform/health"
	"votebooth/internal/platform/httpserver"
	"votebooth/internal/platform/kafka"
	"votebooth/internal/platform/kafka/producer"
	"votebooth/internal/platform/logger"
	"votebooth/internal/platform/metrics"
	"votebooth/internal/platform/redis"
	"votebooth/internal/queue/broadcast"
	queuehandler "votebooth/internal/queue/handler"
	queueservice "votebooth/internal/queue/service"
	queuestore "votebooth/internal/queue/store"
	"votebooth/internal/ratelimit"
	ratelimitstore "votebooth/internal/ratelimit/store"
	voterhandler "votebooth/internal/voter/handler"
	voterservice "votebooth/internal/voter/service"
	voterstore "votebooth/internal/voter/store"
	"votebooth/pkg/platform/circuit"
	request "votebooth/pkg/platform/middleware/request"
)

const (
	auditTrailCapacity = 1000
	auditOutboxSize    = 256
	shutdownTimeout    = 10 * time.Second
)

// infra holds the optional backing services. Nil members select in-memory
// implementations.
type infra struct {
	db       *sql.DB
	pool     *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

// main wires dependencies, exposes the HTTP router, and owns the server
// lifecycle. Business logic lives in the internal service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	healthHandler := health.New(cfg.Server.Environment)

	deps, err := connect(ctx, cfg, log, healthHandler)
	if err != nil {
		log.Error("failed to connect dependencies", "error", err)
		os.Exit(1)
	}
	defer deps.close(log)

	var auditOpts []audit.Option
	auditOpts = append(auditOpts, audit.WithMetrics(m))
	var outbox chan audit.Event
	workerDone := make(chan struct{})
	if deps.producer != nil {
		outbox = make(chan audit.Event, auditOutboxSize)
		auditOpts = append(auditOpts, audit.WithOutbox(outbox))
		worker := audit.NewWorker(deps.producer, cfg.Kafka.AuditTopic, outbox, log, m)
		go func() {
			defer close(workerDone)
			if err := worker.Run(context.WithoutCancel(ctx)); err != nil {
				log.Warn("audit worker stopped", "error", err)
			}
		}()
	} else {
		close(workerDone)
	}
	auditor := audit.NewPublisher(audit.NewInMemoryStore(auditTrailCapacity), log, auditOpts...)

	// Voter roll and identity resolution.
	var voterStore interface {
		voterservice.Store
		ballotservice.VoterStore
		adapters.VoterCounter
	}
	if deps.db != nil {
		voterStore = voterstore.NewPostgres(deps.db)
	} else {
		voterStore = voterstore.NewInMemory()
	}
	voters := voterservice.New(voterStore, log, voterservice.WithAuditPublisher(auditor))

	// Stage credentials and one-time codes.
	var (
		revocations credential.RevocationList
		codeStore   otp.Store
		limitStore  ratelimit.Store
	)
	if deps.redis != nil {
		revocations = revocation.NewRedis(deps.redis.Client)
		codeStore = otpstore.NewRedis(deps.redis.Client)
		limitStore = ratelimitstore.NewRedisStore(deps.redis.Client)
	} else {
		revocations = revocation.NewInMemory()
		codeStore = otpstore.NewInMemory()
		limitStore = ratelimitstore.NewInMemoryStore()
	}
	credentials, err := credential.New(cfg.Credential.SigningKey, cfg.Credential.Issuer,
		credential.WithRevocationList(revocations),
		credential.WithDeviceBinding(cfg.Credential.DeviceBindingEnabled),
		credential.WithMetrics(m),
		credential.WithLogger(log),
	)
	if err != nil {
		log.Error("failed to build credential service", "error", err)
		os.Exit(1)
	}
	codes := otp.New(codeStore, otp.NewLogSender(log), log, otp.WithTTL(cfg.OTP.TTL), otp.WithMetrics(m))

	auth := authservice.New(voters, codes, credentials, newMatcher(cfg, log, m), log,
		authservice.WithAuditPublisher(auditor),
		authservice.WithCredentialRevoker(credentials),
		authservice.WithCredentialTTLs(cfg.Credential.OTPVerifiedTTL, cfg.Credential.VoteEligibleTTL),
	)

	// Queue with fire-and-forget broadcast to the display hub and Kafka.
	hub := broadcast.NewHub()
	sinks := []broadcast.Sink{hub}
	if deps.producer != nil {
		sinks = append(sinks, broadcast.NewKafkaSink(deps.producer, cfg.Kafka.QueueTopic))
	}
	fanout := broadcast.NewFanout(log, sinks, broadcast.WithMetrics(m))

	var ticketStore interface {
		queueservice.Store
		adapters.WaitingCounter
	}
	if deps.db != nil {
		ticketStore = queuestore.NewPostgres(deps.db)
	} else {
		ticketStore = queuestore.NewInMemory()
	}
	queue := queueservice.New(ticketStore, voters, log,
		queueservice.WithPublisher(fanout),
		queueservice.WithAuditPublisher(auditor),
		queueservice.WithMetrics(m),
	)

	// Ballot and vote ledger.
	var (
		candidates ballotservice.CandidateStore
		votes      ballotservice.VoteStore
		ledgerTx   ballotservice.LedgerTx
	)
	if deps.db != nil {
		candidates = ballotstore.NewPostgresCandidates(deps.db)
		votes = ballotstore.NewPostgresVotes(deps.db)
		ledgerTx = newLedgerPostgresTx(deps.db)
	} else {
		memCandidates := ballotstore.NewInMemoryCandidates()
		candidates = memCandidates
		votes = ballotstore.NewInMemoryVotes(memCandidates, voterStore)
		ledgerTx = ballotstore.NewMemoryTx()
	}
	ballot := ballotservice.New(candidates, votes, voterStore, ledgerTx, log,
		ballotservice.WithAuditPublisher(auditor),
		ballotservice.WithMetrics(m),
		ballotservice.WithTracer(otel.Tracer("votebooth/ballot")),
	)

	var feedbackStore feedbackservice.Store
	if deps.db != nil {
		feedbackStore = feedbackstore.NewPostgres(deps.db)
	} else {
		feedbackStore = feedbackstore.NewInMemory()
	}
	feedback := feedbackservice.New(feedbackStore, voters, log, feedbackservice.WithAuditPublisher(auditor))

	stats := admin.NewService(
		adapters.NewVoterCountsAdapter(voterStore),
		ballot,
		adapters.NewQueueCountsAdapter(ticketStore),
		auditor,
		log,
	)

	checkInLimit := ratelimit.NewMiddleware(limitStore, "checkin",
		cfg.RateLimit.CheckInLimit, cfg.RateLimit.CheckInWindow, log)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         log,
		Authenticator:  credentials,
		StaffTokenHash: cfg.Staff.StaffTokenHash,
		AdminTokenHash: cfg.Staff.AdminTokenHash,
		RequestTimeout: cfg.Server.RequestTimeout,
		Latency:        request.NewMetrics(),
		Metrics:        promhttp.Handler(),
		CheckInLimit:   checkInLimit,
		Health:         healthHandler,
		Auth:           authhandler.New(auth, log),
		Voters:         voterhandler.New(voters, log),
		Queue:          queuehandler.New(queue, log, queuehandler.WithStream(hub, cfg.Realtime.AllowedOrigins)),
		Ballot:         ballothandler.New(ballot, log),
		Feedback:       feedbackhandler.New(feedback, log),
		Admin:          adminhandler.New(stats, log),
	})

	if cfg.Staff.StaffTokenHash == "" || cfg.Staff.AdminTokenHash == "" {
		log.Warn("staff or admin token hash not configured, the matching routes reject every request")
	}

	srv := httpserver.New(cfg.Server.Addr, router)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting votebooth", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment,
			"postgres", deps.db != nil, "redis", deps.redis != nil, "kafka", deps.producer != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	fanout.Wait()
	if outbox != nil {
		close(outbox)
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn("audit worker did not drain before shutdown deadline")
	}
	log.Info("votebooth stopped")
}

// connect opens the configured backing services and registers their
// readiness checks.
func connect(ctx context.Context, cfg config.Config, log *slog.Logger, h *health.Handler) (*infra, error) {
	deps := &infra{}

	pool, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		deps.pool = pool
		deps.db = pool.DB()
		h.RegisterCheck("postgres", pool.Health)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		deps.close(log)
		return nil, err
	}
	if rc != nil {
		deps.redis = rc
		h.RegisterCheck("redis", rc.Health)
	}

	if cfg.Kafka.Enabled() {
		p, err := producer.New(cfg.Kafka, log)
		if err != nil {
			deps.close(log)
			return nil, err
		}
		deps.producer = p
		if err := p.EnsureTopics(ctx, cfg.Kafka.QueueTopic, cfg.Kafka.AuditTopic); err != nil {
			log.Warn("kafka topic provisioning failed, relying on auto-create", "error", err)
		}
		h.RegisterCheck("kafka", kafka.NewHealthChecker(cfg.Kafka.Brokers).Check)
	}
	return deps, nil
}

func (d *infra) close(log *slog.Logger) {
	if d.producer != nil {
		if err := d.producer.Close(); err != nil {
			log.Warn("failed to close kafka producer", "error", err)
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}
	if d.pool != nil {
		if err := d.pool.Close(); err != nil {
			log.Warn("failed to close database pool", "error", err)
		}
	}
}

// newMatcher selects the remote face matcher, or a static one that accepts
// every capture when no URL is configured. Config refuses the static matcher
// in production.
func newMatcher(cfg config.Config, log *slog.Logger, m *metrics.Metrics) liveness.Matcher {
	if cfg.Liveness.URL == "" {
		log.Warn("LIVENESS_URL not set, every face capture will be accepted")
		return liveness.StaticMatcher{Verdict: liveness.Verified}
	}
	breaker := circuit.New("liveness",
		circuit.WithFailureThreshold(cfg.Liveness.FailureThreshold),
		circuit.WithCooldown(cfg.Liveness.Cooldown),
	)
	return liveness.NewHTTPMatcher(cfg.Liveness.URL, log,
		liveness.WithTimeout(cfg.Liveness.Timeout),
		liveness.WithBreaker(breaker),
		liveness.WithMetrics(m),
		liveness.WithTracer(otel.Tracer("votebooth/liveness")),
	)
}
