package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-busnet/pkg/config"
	"github.com/dd0wney/cluso-busnet/pkg/control"
	"github.com/dd0wney/cluso-busnet/pkg/events"
	"github.com/dd0wney/cluso-busnet/pkg/gateway"
	"github.com/dd0wney/cluso-busnet/pkg/health"
	"github.com/dd0wney/cluso-busnet/pkg/lifecycle"
	"github.com/dd0wney/cluso-busnet/pkg/logging"
	"github.com/dd0wney/cluso-busnet/pkg/metrics"
	"github.com/dd0wney/cluso-busnet/pkg/monitor"
	"github.com/dd0wney/cluso-busnet/pkg/orchestrator"
	"github.com/dd0wney/cluso-busnet/pkg/server"
	"github.com/dd0wney/cluso-busnet/pkg/status"
)

// staleTickAfter marks the tick loop unhealthy when no tick completed for this long.
const staleTickAfter = 5 * time.Second

var upCmd = &cobra.Command{
	Use:   "up [config]",
	Short: "Start the fabric described by a config file",
	Long: `Start every device in the config file, the TCP gateway, the event publisher
and the control responder, then run the tick loop until interrupted.

The config file defaults to ` + config.DefaultPath + `. SIGHUP reloads log_level.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUp,
}

func init() {
	upCmd.Flags().Bool("monitor", false, "Show the live dashboard instead of logging to stdout")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath
	if len(args) == 1 {
		path = args[0]
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	withMonitor, _ := cmd.Flags().GetBool("monitor")

	runID := uuid.NewString()
	logbook := logging.NewRing(cfg.Tick.LogLines)
	var base *logging.JSONLogger
	if withMonitor {
		base = logging.NewJSONLogger(logbook, logLevel(cmd, cfg.LogLevel))
	} else {
		base = logging.NewProcessLogger(logLevel(cmd, cfg.LogLevel), logbook)
	}
	logger := base.With(logging.RunID(runID))

	reg := metrics.NewRegistry()
	cleanup := lifecycle.NewCleanup(logger)
	defer cleanup.Cleanup()

	ctx, stop := server.WithSignals(cmd.Context(), logger, func() error {
		next, err := config.Load(path)
		if err != nil {
			return err
		}
		base.SetLevel(logLevel(cmd, next.LogLevel))
		return nil
	})
	defer stop()

	nodes, err := cfg.BuildNodes()
	if err != nil {
		return err
	}

	gw := gateway.NewServer(cfg.GatewayServer(), logger, reg)
	if err := gw.Start(ctx); err != nil {
		return err
	}
	cleanup.Add(gw, "gateway")

	pub, err := events.Open(cfg.Events.Transport, cfg.Events.Publish, logger)
	if err != nil {
		return err
	}
	cleanup.Add(pub, "event publisher")

	var local *events.LocalBus
	if withMonitor {
		local = events.NewLocalBus()
		cleanup.Add(local, "local event bus")
		pub = events.Multi{pub, local}
	}

	resp, err := control.Open(cfg.Events.Transport, cfg.Events.Control, logger)
	if err != nil {
		return err
	}
	cleanup.Add(resp, "control responder")

	orch, err := orchestrator.New(cfg.Orchestrator(), orchestrator.Deps{
		Nodes:   nodes,
		Gateway: gw,
		Events:  pub,
		Control: resp,
		Logbook: logbook,
		Metrics: reg,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if cfg.Status.Listen != "" {
		if err := startStatus(ctx, cfg.Status.Listen, runID, gw, orch, reg, logger, cleanup); err != nil {
			return err
		}
	}

	logger.Info("busnet up",
		logging.String("config", path),
		logging.String("gateway", cfg.Gateway.Listen),
		logging.String("events", cfg.Events.Publish),
		logging.String("control", cfg.Events.Control),
		logging.Int("devices", len(nodes)))

	if !withMonitor {
		return ignoreCancel(orch.Run(ctx))
	}
	return runWithMonitor(ctx, orch, local, cmd.ErrOrStderr())
}

// runWithMonitor runs the tick loop in the background and the dashboard in
// the foreground. Quitting the dashboard stops the fabric.
func runWithMonitor(ctx context.Context, orch *orchestrator.Orchestrator, local *events.LocalBus, stderr io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := local.Subscribe(ctx, "")
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	runErr := make(chan error, 1)
	go func() {
		runErr <- orch.Run(ctx)
	}()

	monErr := monitor.Run(ctx, monitor.ChannelSource(sub.Events()), fmt.Sprintf("busnet (%d devices)", len(orch.DeviceNames())))
	cancel()
	if err := ignoreCancel(<-runErr); err != nil {
		fmt.Fprintln(stderr, "tick loop:", err)
		return err
	}
	return monErr
}

func startStatus(ctx context.Context, addr, runID string, gw *gateway.Server, orch *orchestrator.Orchestrator,
	reg *metrics.Registry, logger logging.Logger, cleanup *lifecycle.Cleanup) error {
	checker := health.NewHealthChecker(runID)
	gatewayState := func() (string, int, bool) {
		listen := ""
		if a := gw.Addr(); a != nil {
			listen = a.String()
		}
		return listen, len(gw.ConnectedClientIDs()), gw.Listening()
	}
	checker.RegisterReadinessCheck("gateway", health.GatewayCheck(gatewayState))
	checker.RegisterLivenessCheck("tick", health.TickCheck(func() (uint64, time.Time) {
		return orch.Ticks(), orch.LastTick()
	}, staleTickAfter))
	checker.RegisterCheck("devices", health.DevicesCheck(func() (int, []string) {
		return len(orch.DeviceNames()), orch.HaltedDevices()
	}))

	srv := status.NewServer(addr, status.Deps{
		Health:   checker,
		Metrics:  reg,
		Topology: orch.Topology,
		Clients:  gw.Clients,
		Logger:   logger,
	})
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("status listen on %s: %w", addr, err)
	}
	cleanup.AddFunc(func() error { return srv.Shutdown(server.DefaultShutdownTimeout) }, "status server")

	go status.RunSystemMetrics(ctx, reg, startedAt, status.SystemMetricsInterval)
	return nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
