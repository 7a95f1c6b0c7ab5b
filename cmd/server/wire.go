package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	attendance "clockgate/internal/attendance"
	atthandler "clockgate/internal/attendance/handler"
	attmetrics "clockgate/internal/attendance/metrics"
	attservice "clockgate/internal/attendance/service"
	attstore "clockgate/internal/attendance/store"
	"clockgate/internal/biometric"
	biohandler "clockgate/internal/biometric/handler"
	biomets "clockgate/internal/biometric/metrics"
	bioservice "clockgate/internal/biometric/service"
	biostore "clockgate/internal/biometric/store"
	clockhandler "clockgate/internal/clock/handler"
	clockmetrics "clockgate/internal/clock/metrics"
	clockservice "clockgate/internal/clock/service"
	clockstore "clockgate/internal/clock/store"
	devhandler "clockgate/internal/device/handler"
	devmetrics "clockgate/internal/device/metrics"
	devservice "clockgate/internal/device/service"
	devstore "clockgate/internal/device/store"
	"clockgate/internal/geo"
	idhandler "clockgate/internal/identity/handler"
	idservice "clockgate/internal/identity/service"
	idstore "clockgate/internal/identity/store"
	jwttoken "clockgate/internal/jwt_token"
	losthandler "clockgate/internal/lostdevice/handler"
	lostmetrics "clockgate/internal/lostdevice/metrics"
	lostservice "clockgate/internal/lostdevice/service"
	loststore "clockgate/internal/lostdevice/store"
	"clockgate/internal/platform/config"
	"clockgate/internal/platform/kafka"
	"clockgate/internal/platform/metrics"
	"clockgate/internal/platform/postgres"
	redisclient "clockgate/internal/platform/redis"
	rlmetrics "clockgate/internal/ratelimit/metrics"
	rlmiddleware "clockgate/internal/ratelimit/middleware"
	rlmodels "clockgate/internal/ratelimit/models"
	"clockgate/internal/ratelimit/store/bucket"
	"clockgate/internal/stats"
	statshandler "clockgate/internal/stats/handler"
	statsmetrics "clockgate/internal/stats/metrics"
	statsservice "clockgate/internal/stats/service"
	httptransport "clockgate/internal/transport/http"
	"clockgate/pkg/platform/audit"
	"clockgate/pkg/platform/audit/outbox"
	"clockgate/pkg/platform/audit/publisher"
	auditmemory "clockgate/pkg/platform/audit/store/memory"
	auditpostgres "clockgate/pkg/platform/audit/store/postgres"
	"clockgate/pkg/platform/circuit"
	txcontext "clockgate/pkg/platform/tx"
)

// stores is the persistence backend selected by storage.driver.
type stores struct {
	identities  idservice.Store
	devices     devservice.Store
	lost        lostservice.Store
	credentials bioservice.CredentialStore
	challenges  bioservice.ChallengeStore
	records     attservice.Store
	sessions    clockservice.Store
	audit       audit.Store
	grantTx     txcontext.Runner
}

// app owns every long-lived resource the serve command starts and stops.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *metrics.Registry
	db       *sql.DB
	redis    *redisclient.Client
	producer *kafka.Producer
	relay    *outbox.Relay
	audit    *publisher.Publisher
	router   http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger, registry: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	loc, err := cfg.Policy.Location()
	if err != nil {
		return nil, err
	}
	catalogue, err := geo.LoadCatalogue(cfg.Stations.File)
	if err != nil {
		return nil, err
	}

	st, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}
	a.audit = publisher.NewPublisher(st.audit,
		publisher.WithLogger(logger),
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
	)

	if err := a.startRelay(ctx); err != nil {
		return nil, err
	}

	reg := a.registry.Registry

	identities := idservice.New(st.identities,
		idservice.WithLogger(logger),
		idservice.WithAuditPublisher(a.audit),
	)
	devices := devservice.New(st.devices, cfg.Policy.MaxDevices,
		devservice.WithLogger(logger),
		devservice.WithAuditPublisher(a.audit),
		devservice.WithMetrics(devmetrics.New(reg)),
	)
	lost := lostservice.New(st.lost, devices, cfg.Policy.MaxLostWindowDays,
		lostservice.WithLogger(logger),
		lostservice.WithAuditPublisher(a.audit),
		lostservice.WithMetrics(lostmetrics.New(reg)),
		lostservice.WithLocation(loc),
		lostservice.WithTxRunner(st.grantTx),
	)
	bio := bioservice.New(st.challenges, st.credentials, biometric.ECDSAAuthenticator{}, biometric.RandomSource{},
		bioservice.WithLogger(logger),
		bioservice.WithAuditPublisher(a.audit),
		bioservice.WithMetrics(biomets.New(reg)),
		bioservice.WithChallengeTTL(cfg.Policy.ChallengeTTL),
		bioservice.WithMultipleCredentials(cfg.Policy.AllowMultipleCredentials),
	)
	records := attservice.New(st.records, catalogue, attendance.NewClassifier(cfg.Policy.FullDayHours, loc),
		attservice.WithLogger(logger),
		attservice.WithMetrics(attmetrics.New(reg)),
	)
	clock, err := clockservice.New(clockservice.Dependencies{
		Sessions:   st.sessions,
		Stations:   catalogue,
		Identities: identities,
		Devices:    devices,
		Grants:     lost,
		Biometrics: bio,
		Attendance: records,
	},
		clockservice.WithLogger(logger),
		clockservice.WithAuditPublisher(a.audit),
		clockservice.WithMetrics(clockmetrics.New(reg)),
		clockservice.WithLocationTTL(cfg.Policy.LocationTTL),
	)
	if err != nil {
		return nil, err
	}
	statistics := statsservice.New(records, identities, stats.Policy{
		StandardDailyHours:   cfg.Policy.StandardDailyHours,
		BurnoutOvertimeHours: cfg.Policy.BurnoutOvertimeHours,
	},
		statsservice.WithLogger(logger),
		statsservice.WithMetrics(statsmetrics.New(reg)),
		statsservice.WithLocation(loc),
	)

	idH := idhandler.New(identities, logger, idhandler.WithAuditTrail(a.audit))
	lostH := losthandler.New(lost, logger)
	statsH := statshandler.New(statistics, loc, logger)

	checks := map[string]httptransport.HealthCheck{}
	if a.db != nil {
		checks["postgres"] = a.db.PingContext
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Health
	}

	validator := jwttoken.NewJWTServiceAdapter(jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer))
	a.router = httptransport.NewRouter(httptransport.Config{
		Logger:    logger,
		Validator: validator,
		Handlers: []httptransport.Registrar{
			clockhandler.New(clock, logger),
			devhandler.New(devices, logger),
			biohandler.New(bio, logger),
			atthandler.New(records, loc, logger),
			lostH,
			statsH,
			idH,
		},
		Admin:   []httptransport.AdminRegistrar{lostH, statsH, idH},
		Metrics: a.registry.Handler(),
		ObserveStatus: httptransport.StatusCounter(func(route, status string) {
			a.registry.HTTPRequests.WithLabelValues(route, status).Inc()
		}),
		Checks:    checks,
		RateLimit: a.rateLimiter().Handler,
	})
	return a, nil
}

// rateLimiter shares budgets through Redis when it is configured and keeps an
// in-memory fallback for when Redis is unhealthy.
func (a *app) rateLimiter() *rlmiddleware.Middleware {
	rl := a.cfg.RateLimit
	opts := []rlmiddleware.Option{
		rlmiddleware.WithMetrics(rlmetrics.New(a.registry.Registry)),
		rlmiddleware.WithDisabled(!rl.Enabled),
		rlmiddleware.WithLimits(map[rlmodels.EndpointClass]rlmodels.Limit{
			rlmodels.ClassClock:     {Requests: rl.ClockPerMinute, Window: time.Minute},
			rlmodels.ClassChallenge: {Requests: rl.ChallengePerMinute, Window: time.Minute},
			rlmodels.ClassWrite:     {Requests: rl.WritePerMinute, Window: time.Minute},
			rlmodels.ClassRead:      {Requests: rl.ReadPerMinute, Window: time.Minute},
		}),
	}
	if a.redis == nil {
		return rlmiddleware.New(bucket.New(), a.logger, opts...)
	}
	opts = append(opts,
		rlmiddleware.WithFallback(bucket.New()),
		rlmiddleware.WithBreaker(circuit.New("ratelimit-redis",
			circuit.WithFailureThreshold(5),
			circuit.WithSuccessThreshold(3),
			circuit.WithCooldown(10*time.Second),
		)),
	)
	return rlmiddleware.New(bucket.NewRedis(a.redis.Client), a.logger, opts...)
}

func (a *app) openStores(ctx context.Context) (*stores, error) {
	st := &stores{
		challenges: biostore.NewChallengeMemory(),
		sessions:   clockstore.NewInMemory(),
		grantTx:    txcontext.NopRunner{},
	}

	switch a.cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.Open(ctx, a.cfg.Storage.Client, a.cfg.Storage.PostgresDSN, a.cfg.Storage.MaxOpenConn)
		if err != nil {
			return nil, err
		}
		a.db = db
		st.identities = idstore.NewPostgres(db)
		st.devices = devstore.NewPostgres(db)
		st.lost = loststore.NewPostgres(db)
		st.credentials = biostore.NewCredentialPostgres(db)
		st.records = attstore.NewPostgres(db)
		st.audit = auditpostgres.New(db)
		st.grantTx = newGrantPostgresTx(db)
	default:
		st.identities = idstore.NewInMemory()
		st.devices = devstore.NewInMemory()
		st.lost = loststore.NewInMemory()
		st.credentials = biostore.NewCredentialMemory()
		st.records = attstore.NewInMemory()
		st.audit = auditmemory.NewInMemoryStore()
	}

	rc, err := redisclient.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		a.redis = rc
		st.challenges = biostore.NewChallengeRedis(rc.Client)
		st.sessions = clockstore.NewRedis(rc.Client, 0)
	}
	a.logger.InfoContext(ctx, "storage configured",
		"driver", a.cfg.Storage.Driver,
		"client", a.cfg.Storage.Client,
		"redis", rc != nil,
	)
	return st, nil
}

// startRelay wires the outbox relay when both Postgres and Kafka are configured.
func (a *app) startRelay(ctx context.Context) error {
	brokers := a.cfg.Kafka.BrokerList()
	if a.db == nil || len(brokers) == 0 {
		return nil
	}
	producer, err := kafka.NewProducer(ctx, brokers, a.cfg.Kafka.AuditTopic)
	if err != nil {
		return err
	}
	a.producer = producer
	if err := producer.EnsureTopic(ctx, a.cfg.Kafka.Partitions, a.cfg.Kafka.Replication); err != nil {
		return fmt.Errorf("ensure audit topic: %w", err)
	}
	a.relay = outbox.NewRelay(auditpostgres.New(a.db), producer, a.logger,
		outbox.WithInterval(a.cfg.Kafka.RelayInterval),
		outbox.WithBatchSize(a.cfg.Kafka.RelayBatch),
		outbox.WithBreaker(circuit.New("audit-kafka",
			circuit.WithFailureThreshold(3),
			circuit.WithCooldown(30*a.cfg.Kafka.RelayInterval),
		)),
	)
	return nil
}

func (a *app) Close() {
	if a.audit != nil {
		a.audit.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
