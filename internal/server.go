package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bloghaven/bloghaven/internal/admin"
	"github.com/bloghaven/bloghaven/internal/auth"
	"github.com/bloghaven/bloghaven/internal/blog"
	"github.com/bloghaven/bloghaven/internal/comment"
	"github.com/bloghaven/bloghaven/internal/config"
	"github.com/bloghaven/bloghaven/internal/dashboard"
	"github.com/bloghaven/bloghaven/internal/db"
	"github.com/bloghaven/bloghaven/internal/imagestore"
	"github.com/bloghaven/bloghaven/internal/middleware"
	"github.com/bloghaven/bloghaven/internal/telemetry/metrics"
	"github.com/bloghaven/bloghaven/internal/telemetry/tracing"
	"github.com/bloghaven/bloghaven/internal/textgen"
	"github.com/bloghaven/bloghaven/internal/user"
	"github.com/bloghaven/bloghaven/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config           *config.Config
	dbPool           *pgxpool.Pool
	tokenService     *auth.Service
	adminCredentials admin.Credentials
	imageStore       *imagestore.Client
	textGenerator    *textgen.Client

	redisClient *redis.Client

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	JWTSecret               string
	AdminEmail              string
	AdminPasswordHash       string
	ImageStorePrivateKey    string
	TextGenAPIKey           string
	RedisPassword           string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": params.Config.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("bloghaven", "backend", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	tokenService, err := auth.NewService(params.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("new token service: %w", err)
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "bloghaven-backend", rdb)
	if err != nil {
		return nil, err
	}

	tracedHttpClient := &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Minute,
	}

	return &Server{
		config:       params.Config,
		dbPool:       dbPool,
		tokenService: tokenService,
		adminCredentials: admin.Credentials{
			Email:        params.AdminEmail,
			PasswordHash: params.AdminPasswordHash,
		},
		imageStore: imagestore.NewClient(
			params.Config.ImageStoreUploadURL,
			params.Config.ImageStoreURLEndpoint,
			params.ImageStorePrivateKey,
			tracedHttpClient,
		),
		textGenerator: textgen.NewClient(
			params.Config.TextGenBaseURL,
			params.Config.TextGenModel,
			params.TextGenAPIKey,
			tracedHttpClient,
		),
		versionInfo: params.VersionInfo,

		redisClient: rdb,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("bloghaven-router"))

	blogRepo := blog.NewRepo(s.dbPool)
	userRepo := user.NewRepo(s.dbPool)
	commentRepo := comment.NewRepo(s.dbPool)
	dashboardService := dashboard.NewService(blogRepo, commentRepo)

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	rateLimited := func(routerName string) func(next http.Handler) http.Handler {
		return middleware.RateLimit(
			reqRateLimiter,
			routerName,
			s.config.LoginRateLimitAllowedPerMin,
			s.metricsManager,
		)
	}

	blogRouter := r.PathPrefix("/api/blog").Subrouter()
	blogHandler := blog.NewHandler(
		blogRepo,
		userRepo,
		s.imageStore,
		s.textGenerator,
		s.metricsManager,
	)
	commentHandler := comment.NewHandler(commentRepo, s.metricsManager)
	// visitor comment endpoints live on the blog subrouter, registered first
	// so they win over the /{blogId} catch-all
	commentHandler.SetupPublicRoutes(blogRouter)
	blogHandler.SetupRoutes(blogRouter)

	userRouter := r.PathPrefix("/api/user").Subrouter()
	userLoginRouter := r.PathPrefix("/api/user").Subrouter()
	userLoginRouter.Use(rateLimited("user-login"))
	userHandler := user.NewHandler(
		userRepo,
		s.tokenService,
		dashboardService,
		s.metricsManager,
	)
	userHandler.SetupRoutes(userRouter, userLoginRouter)
	commentHandler.SetupModerationRoutes(userRouter)

	adminRouter := r.PathPrefix("/api/admin").Subrouter()
	adminLoginRouter := r.PathPrefix("/api/admin").Subrouter()
	adminLoginRouter.Use(rateLimited("admin-login"))
	adminHandler := admin.NewHandler(
		s.adminCredentials,
		blogRepo,
		commentRepo,
		userRepo,
		s.tokenService,
		dashboardService,
		s.metricsManager,
	)
	adminHandler.SetupRoutes(adminRouter, adminLoginRouter)

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, fmt.Sprintf("bloghaven backend, version: %s", s.versionInfo))
	}).Methods("GET").Name("root")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(
		s.tokenService,
		s.adminCredentials.Email,
	)

	allowedOrigins := make(map[string]bool, len(s.config.AllowedOrigins))
	for _, origin := range s.config.AllowedOrigins {
		allowedOrigins[origin] = true
	}

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(allowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{Registry: s.promRegistry},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
