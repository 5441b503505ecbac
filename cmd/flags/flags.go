// Package flags holds CLI flag definitions and setup helpers shared by
// the commands.
package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/clearsign/c2pa-provisioning-backend/common"
	"github.com/clearsign/c2pa-provisioning-backend/httpserver"
)

func SetupLogger(cCtx *cli.Context) *slog.Logger {
	logJSON := cCtx.Bool(LogJSONFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUIDFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogJSONFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}

var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}

var LogUIDFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "c2pa-provisioning",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}

var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}

var StorageURIFlag = &cli.StringFlag{
	Name:    "storage-uri",
	Value:   "file:///var/lib/clearsign",
	Usage:   "blob storage backend URI (file://, s3://, vault://, ipfs://, mem://)",
	EnvVars: []string{"CLEARSIGN_STORAGE_URI"},
}

var CommonFlags = []cli.Flag{
	LogJSONFlag,
	LogDebugFlag,
	LogUIDFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
