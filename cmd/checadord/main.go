// Command checadord runs the kiosk daemon: it opens the fingerprint store
// and camera, wires the domain services together, and serves the HTTP API
// and Prometheus metrics until it receives a shutdown signal.
package main

import (
	"flag"
	"fmt"
	"os"

	checador "github.com/ElectronicCats/uvc-fingerprint-server"
	"github.com/ElectronicCats/uvc-fingerprint-server/config/provider"
	"github.com/ElectronicCats/uvc-fingerprint-server/crypt/secure"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/adminauth"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/autopunch"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture/v4l2"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/deviceauth"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/httpapi"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/matcher"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/metrics"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/syncworker"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/timeclock"
	"github.com/ElectronicCats/uvc-fingerprint-server/log"
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/prometheus"
)

const VERSION = "1.0.0"

// CliArgs holds the daemon's command-line options.
type CliArgs struct {
	ConfigFile       *string
	EncryptionKeyEnv *string
	ShowVersion      *bool
}

var cliArgs = &CliArgs{
	ConfigFile:       flag.String("c", "/etc/checador/checador.toml", "Config file"),
	EncryptionKeyEnv: flag.String("key-env", "CHECADOR_ENCRYPTION_KEY", "Env var holding the base64 at-rest encryption key"),
	ShowVersion:      flag.Bool("version", false, "Show version"),
}

// Application assembles and runs the kiosk daemon.
type Application struct {
	container *checador.Container
	args      *CliArgs
	logger    *log.Logger

	cfg *config.Config

	store      *store.Store
	device     capture.Device
	matcher    *matcher.Matcher
	timeClock  *timeclock.TimeClock
	deviceAuth *deviceauth.DeviceAuth
	adminAuth  *adminauth.AdminAuth
	autoPunch  *autopunch.AutoPunch
	syncWorker *syncworker.SyncWorker

	httpServer      *httpserver.Server
	metricsServer   *prometheus.Server
	metricsEndpoint string
}

// NewApplication loads the ambient environment-backed config provider and
// returns an Application ready for Build.
func NewApplication(args *CliArgs, logger *log.Logger) *Application {
	if logger == nil {
		logger = log.New("checadord")
	}
	envCfg := provider.NewEnvProvider("CHECADOR_", true)
	return &Application{
		container: checador.NewContainer(envCfg),
		args:      args,
		logger:    logger,
	}
}

// Build wires every domain service and the two HTTP listeners (the kiosk
// API and the Prometheus metrics endpoint). Any fatal error aborts the
// container immediately, matching the pack's sample wiring.
func (a *Application) Build() {
	a.logger.Info("Building checador kiosk daemon...")

	cfg, err := config.Load(*a.args.ConfigFile)
	a.container.AbortFatal(err)
	a.cfg = cfg

	encryptionKey, err := a.loadEncryptionKey()
	a.container.AbortFatal(err)
	a.container.AbortFatal(a.cfg.Secure(encryptionKey))

	a.store, err = store.Open(a.cfg.Database.Path)
	a.container.AbortFatal(err)

	a.matcher, err = matcher.New(&a.cfg.Fingerprint, a.cfg.Fingerprint.Parallel)
	a.container.AbortFatal(err)

	a.device = v4l2.New(&a.cfg.Camera)
	if err := a.device.Open(); err != nil {
		a.logger.Error(err, "camera open failed, continuing in degraded mode")
	}

	a.timeClock = timeclock.New(a.store, a.cfg.App.KioskID, a.cfg.TimeClock.AntibounceSeconds)
	a.deviceAuth = deviceauth.New(
		a.store,
		a.timeClock,
		a.cfg.DeviceSecurity.ChallengeExpirySeconds,
		a.cfg.DeviceSecurity.PunchCooldownSeconds,
		a.cfg.DeviceSecurity.MaxPunchesPerDay,
	)
	a.adminAuth = adminauth.New(a.cfg.AdminPasswordHash)
	a.autoPunch = autopunch.New(a.device, a.matcher, a.timeClock, a.store, &a.cfg.AutoPunch, a.cfg.Storage.TempDir)

	syncAPIKey, err := a.cfg.SyncAPIKey()
	a.container.AbortFatal(err)
	a.syncWorker = syncworker.New(a.store, a.cfg.Server.Enabled, a.cfg.Server.URL, syncAPIKey, a.cfg.Server.SyncIntervalMinutes)

	httpCfg := httpserver.NewServerConfig()
	httpCfg.Host = a.cfg.App.Host
	httpCfg.Port = a.cfg.App.Port
	httpCfg.Debug = a.cfg.App.Debug

	deps := &httpapi.Dependencies{
		Store:      a.store,
		Matcher:    a.matcher,
		Device:     a.device,
		TimeClock:  a.timeClock,
		AutoPunch:  a.autoPunch,
		DeviceAuth: a.deviceAuth,
		AdminAuth:  a.adminAuth,
		SyncWorker: a.syncWorker,
		Config:     a.cfg,
		TempDir:    a.cfg.Storage.TempDir,
	}
	a.httpServer, err = httpapi.NewServer(httpCfg, deps)
	a.container.AbortFatal(err)

	metricsCfg := prometheus.NewConfig()
	a.container.AbortFatal(a.container.Config.GetKey("prometheus", metricsCfg))
	a.metricsEndpoint = metricsCfg.Endpoint
	a.metricsServer, err = prometheus.NewServer(metricsCfg, metrics.Collectors()...)
	a.container.AbortFatal(err)
}

// Run registers shutdown destructors, starts the background workers and
// both HTTP listeners, then blocks until the process receives a shutdown
// signal.
func (a *Application) Run() {
	checador.RegisterDestructor(func() error {
		return a.httpServer.Shutdown(a.container.GetContext())
	})
	checador.RegisterDestructor(func() error {
		return a.metricsServer.Shutdown(a.container.GetContext())
	})
	checador.RegisterDestructor(func() error {
		a.autoPunch.Stop()
		a.syncWorker.Stop()
		return nil
	})
	checador.RegisterDestructor(func() error {
		return a.device.Close()
	})
	checador.RegisterDestructor(func() error {
		return a.store.Close()
	})

	a.container.Run(func(app interface{}) error {
		go a.autoPunch.Start()
		go a.syncWorker.Start(a.container.GetContext())

		go func() {
			a.logger.Infof("checador API listening on %s:%d", a.httpServer.Config.Host, a.httpServer.Config.Port)
			a.container.AbortFatal(a.httpServer.Start())
		}()
		go func() {
			a.logger.Infof("metrics listening on %s:%d%s", a.metricsServer.Config.Host, a.metricsServer.Config.Port, a.metricsEndpoint)
			a.container.AbortFatal(a.metricsServer.Start())
		}()
		return nil
	})
}

// loadEncryptionKey reads the base64 at-rest encryption key from the
// configured environment variable. If unset, a random key is generated for
// this process only. The key encrypts only the secrets Config.Secure keeps
// in memory; nothing is written to disk under it.
func (a *Application) loadEncryptionKey() ([]byte, error) {
	encoded := secure.GetEnvVar(*a.args.EncryptionKeyEnv)
	if encoded == "" {
		a.logger.Warn("no encryption key configured, generating an ephemeral one for this process")
		return secure.RandomKey32(), nil
	}
	return secure.DecodeKey(encoded)
}

func main() {
	if err := log.Configure(log.NewDefaultConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "failed to configure logger:", err)
		os.Exit(1)
	}

	logger := log.New("checadord")
	flag.Parse()

	if *cliArgs.ShowVersion {
		fmt.Printf("Version: %s\n", VERSION)
		os.Exit(0)
	}

	app := NewApplication(cliArgs, logger)
	app.Build()
	app.Run()
}
