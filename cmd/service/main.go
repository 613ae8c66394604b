package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/bloghaven/bloghaven/internal"
	"github.com/bloghaven/bloghaven/internal/config"
	"github.com/bloghaven/bloghaven/internal/logging"
)

func main() {
	fmt.Println("starting ...")

	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	flag.Parse()

	log.Warnf("---->> running in [%s] environment", *env)

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		panic(err)
	}

	sentryDSN := os.Getenv("SENTRY_DSN")
	logging.Setup(logging.LoggerSetupParams{
		LogFileName:      cfg.LogsPath,
		LogToStdout:      cfg.LogToStdout,
		LogLevel:         cfg.LogLevel,
		LogFormatJSON:    false,
		Environment:      cfg.Environment,
		SentryEnabled:    cfg.SentryEnabled,
		SentryDSN:        sentryDSN,
		SentryServerName: "bloghaven-service",
	})

	log.Debugf("using port: %d", cfg.Port)
	log.Debugf("using server logs path: [%s]", cfg.LogsPath)

	jwtSecret := os.Getenv("BLOGHAVEN_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatalf("jwt secret not set, use BLOGHAVEN_JWT_SECRET env var to set it")
	}

	adminEmail := os.Getenv("BLOGHAVEN_ADMIN_EMAIL")
	adminPasswordHash := os.Getenv("BLOGHAVEN_ADMIN_PASSWORD_HASH")
	if adminEmail == "" || adminPasswordHash == "" {
		log.Errorf("admin credentials not set. use BLOGHAVEN_ADMIN_EMAIL and BLOGHAVEN_ADMIN_PASSWORD_HASH")
	}

	imageStorePrivateKey := os.Getenv("BLOGHAVEN_IMAGE_STORE_PRIVATE_KEY")
	if imageStorePrivateKey == "" {
		log.Errorf("image store private key not set. use BLOGHAVEN_IMAGE_STORE_PRIVATE_KEY")
	}

	textGenAPIKey := os.Getenv("BLOGHAVEN_TEXT_GEN_API_KEY")
	if textGenAPIKey == "" {
		log.Errorf("text generation API key not set. use BLOGHAVEN_TEXT_GEN_API_KEY")
	}

	redisPassword := os.Getenv("BLOGHAVEN_REDIS_PASS")
	if redisPassword == "" {
		log.Errorf("redis password not set. use BLOGHAVEN_REDIS_PASS")
	}

	if otelServiceName := os.Getenv("OTEL_SERVICE_NAME"); otelServiceName == "" {
		log.Warnln("OTEL_SERVICE_NAME env var not set")
	}

	honeycombEnabled := os.Getenv("HONEYCOMB_ENABLED") == "true"
	if honeycombEnabled {
		if honeycombApiKey := os.Getenv("HONEYCOMB_API_KEY"); honeycombApiKey == "" {
			log.Warnln("HONEYCOMB_API_KEY env var not set")
		}
	} else {
		log.Debugln("honeycomb tracing disabled")
	}

	versionInfo, err := tryGetLastCommitHash()
	if err != nil {
		log.Tracef("failed to get last commit hash / version info: %s", err)
	} else {
		log.Tracef("running version: %s", versionInfo)
	}

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())

	server, err := internal.NewServer(
		ctx,
		internal.NewServerParams{
			Config:                  cfg,
			JWTSecret:               jwtSecret,
			AdminEmail:              adminEmail,
			AdminPasswordHash:       adminPasswordHash,
			ImageStorePrivateKey:    imageStorePrivateKey,
			TextGenAPIKey:           textGenAPIKey,
			RedisPassword:           redisPassword,
			VersionInfo:             versionInfo,
			HoneycombTracingEnabled: honeycombEnabled,
		},
	)
	if err != nil {
		log.Fatalf("new server: %s", err)
	}

	server.Serve(ctx, cfg.Host, cfg.Port)

	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, shutting down ...", receivedSig)
	cancel()

	server.GracefulShutdown()
}

// tryGetLastCommitHash will try to get the last commit hash
// assumes that the built main executable is in project root
func tryGetLastCommitHash() (string, error) {
	cmd := exec.Command("/usr/bin/git", "rev-parse", "HEAD")
	stdout, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(stdout)), nil
}
