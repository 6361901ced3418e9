package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AvishakeAdhikary/NexRemote/internal/audit"
	"github.com/AvishakeAdhikary/NexRemote/internal/camera"
	"github.com/AvishakeAdhikary/NexRemote/internal/capture"
	"github.com/AvishakeAdhikary/NexRemote/internal/certs"
	"github.com/AvishakeAdhikary/NexRemote/internal/clipboard"
	"github.com/AvishakeAdhikary/NexRemote/internal/config"
	"github.com/AvishakeAdhikary/NexRemote/internal/discovery"
	"github.com/AvishakeAdhikary/NexRemote/internal/dispatch"
	"github.com/AvishakeAdhikary/NexRemote/internal/fileexplorer"
	"github.com/AvishakeAdhikary/NexRemote/internal/host"
	"github.com/AvishakeAdhikary/NexRemote/internal/input"
	"github.com/AvishakeAdhikary/NexRemote/internal/logging"
	"github.com/AvishakeAdhikary/NexRemote/internal/media"
	"github.com/AvishakeAdhikary/NexRemote/internal/session"
	"github.com/AvishakeAdhikary/NexRemote/internal/streaming"
	"github.com/AvishakeAdhikary/NexRemote/internal/taskmanager"
	"github.com/AvishakeAdhikary/NexRemote/internal/transport"
	"github.com/AvishakeAdhikary/NexRemote/internal/workerpool"
)

const version = "0.1.0"

var (
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "nexremoted",
	Short: "NexRemote daemon",
	Long:  "NexRemote - a PC remote-control server exposing keyboard, mouse, screen, camera, and file access over a local-network control channel",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the remote-control server",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nexremoted v%s\n", version)
	},
}

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Generate (or regenerate) the server's self-signed TLS certificate",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := certs.Generate(config.CertsDir()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate certificate: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Certificate generated at", config.CertsDir())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the per-user data directory's config.json)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(certCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout

	logPath := fmt.Sprintf("%s/nexremoted.log", config.LogsDir())
	if rw, err := logging.NewRotatingWriter(logPath, cfg.LogMaxSizeMB, cfg.LogMaxBackups); err == nil {
		output = logging.TeeWriter(os.Stdout, rw)
	} else {
		fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", logPath, err)
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

func runServer() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to persist config: %v\n", err)
	}

	initLogging(cfg)
	log.Info("starting nexremoted", "version", version, "pcName", cfg.PCName, "deviceId", cfg.DeviceID)

	auditLogger, err := audit.NewLogger(cfg)
	if err != nil {
		log.Error("failed to start audit logger", "error", err)
	}
	defer auditLogger.Close()

	cert, err := certs.LoadOrGenerate(config.CertsDir())
	if err != nil {
		log.Error("failed to load/generate TLS certificate", "error", err)
		os.Exit(1)
	}

	trusted, err := config.LoadTrustedDevices()
	if err != nil {
		log.Error("failed to load trusted devices", "error", err)
		trusted = &config.TrustedDevices{}
	}

	registry := session.NewRegistry()
	pool := workerpool.New(16, 256)
	router := dispatch.NewRouter(pool)

	captureManager := capture.NewManager(nil)
	cameraCapture := camera.New(nil)
	mediaController := media.NewNullController()
	inputAdapter := input.NewRecorder()

	input.Register(router, inputAdapter)
	fileexplorer.Register(router)
	taskmanager.Register(router)
	clipboard.New(nil).Register(router)

	streamingSvc := streaming.New(captureManager, cameraCapture, mediaController, inputAdapter)
	streamingSvc.Register(router)

	h := &host.Host{
		Config:    cfg,
		Approval:  host.NewApprovalSource(cfg, trusted),
		Trusted:   trusted,
		Registry:  registry,
		Router:    router,
		Streaming: streamingSvc,
		Audit:     auditLogger,
	}

	srv := transport.New(h.Accept)
	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(serverCtx, cfg.ServerPort, cfg.ServerPortInsecure, cert)
	}()

	identity := func() discovery.Identity {
		return discovery.Identity{
			Name:         cfg.PCName,
			Port:         cfg.ServerPort,
			PortInsecure: cfg.ServerPortInsecure,
			ID:           cfg.DeviceID,
		}
	}
	responder := discovery.NewResponder(identity)
	discoveryCtx, cancelDiscovery := context.WithCancel(context.Background())
	go func() {
		if err := responder.Run(discoveryCtx, cfg.DiscoveryPort); err != nil {
			log.Error("discovery responder stopped", "error", err)
		}
	}()

	log.Info("nexremoted is running", "securePort", cfg.ServerPort, "insecurePort", cfg.ServerPortInsecure, "discoveryPort", cfg.DiscoveryPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			log.Error("transport server exited", "error", err)
		}
	}

	cancelDiscovery()
	cancelServer()
	registry.TerminateAll()

	pool.StopAccepting()
	log.Info("draining dispatcher worker pool", "queueDepth", pool.QueueDepth())
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	pool.Drain(shutdownCtx)

	log.Info("nexremoted stopped")
}
