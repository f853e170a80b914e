package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-busnet/pkg/logging"
)

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// WithSignals returns a context cancelled on SIGINT or SIGTERM. SIGHUP calls
// reload when it is non-nil. The returned stop func releases the signal handler.
func WithSignals(parent context.Context, logger logging.Logger, reload ConfigReloadFunc) (context.Context, context.CancelFunc) {
	logger = logging.OrNop(logger)
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // Termination signal (systemd, docker, k8s)
		syscall.SIGHUP,  // Reload configuration
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					reloadConfig(logger, reload)
				default:
					logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
					cancel()
					return
				}
			}
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func reloadConfig(logger logging.Logger, reload ConfigReloadFunc) {
	if reload == nil {
		logger.Info("configuration reload requested, but no reload function configured")
		return
	}

	logger.Info("reloading configuration")
	if err := reload(); err != nil {
		logger.Warn("configuration reload failed", logging.Error(err))
		return
	}
	logger.Info("configuration reload complete")
}
