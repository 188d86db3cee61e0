package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	console "github.com/phsym/console-slog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mastercactapus/gscan/lidar"
	"github.com/mastercactapus/gscan/machine/grbl"
	"github.com/mastercactapus/gscan/spjs"
)

var (
	grblPort     string
	lidarPort    string
	baudRate     int
	bufferSize   int
	pollInterval time.Duration
	spjsURL      string
	logLevel     string

	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gscan",
	Short: "Surface scanner for Grbl machines",
	Long: `gscan streams commands to a Grbl controller, tracks the machine position,
and pairs it with readings from a lidar ranging sensor to record a surface.

Connection modes:
  Serial: --grbl /dev/ttyUSB0 [--baud 115200]
  SPJS:   --grbl /dev/ttyUSB0 --spjs ws://cnc-bridge:8989/ws`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
		log, err = newLogger(os.Stderr, logLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&grblPort, "grbl", "/dev/ttyUSB0", "Grbl serial port (or port name on the SPJS host)")
	rootCmd.PersistentFlags().StringVar(&lidarPort, "lidar", "", "Lidar serial port; empty disables the sensor")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", grbl.DefaultBaud, "Baud rate")
	rootCmd.PersistentFlags().IntVar(&bufferSize, "buffer", grbl.DefaultBufferSize, "Controller receive buffer size in bytes")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "poll", grbl.DefaultPollInterval, "Status poll interval")
	rootCmd.PersistentFlags().StringVar(&spjsURL, "spjs", "", "Websocket URL of a serial-port-json-server to reach the Grbl port through")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

// newLogger writes human-readable logs to a terminal and JSON otherwise.
func newLogger(f *os.File, level string) (*slog.Logger, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var h slog.Handler
	if term.IsTerminal(int(f.Fd())) {
		h = console.NewHandler(f, &console.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: lvl,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Key = "ts"
				}
				return a
			},
		})
	}
	return slog.New(h), nil
}

func openGrblTransport(ctx context.Context) (io.ReadWriteCloser, error) {
	if spjsURL != "" {
		sp := spjs.NewSPJS(ctx, spjsURL, log.With("component", "spjs"))
		return sp.Open(grblPort, baudRate), nil
	}
	rw, err := grbl.OpenSerial(grblPort, baudRate)
	if err != nil {
		return nil, fmt.Errorf("open grbl port %s: %w", grblPort, err)
	}
	return rw, nil
}

func openSession(ctx context.Context, sink grbl.EventSink, diag func(string)) (*grbl.Session, error) {
	rw, err := openGrblTransport(ctx)
	if err != nil {
		return nil, err
	}
	return grbl.Open(rw, grbl.Config{
		BufferSize:   bufferSize,
		PollInterval: pollInterval,
		Sink:         sink,
		Logger:       log.With("component", "grbl"),
		Diagnostics:  diag,
	}), nil
}

// lineLimit is the longest encoded command the controller can accept.
func lineLimit() int {
	if bufferSize > 0 {
		return bufferSize
	}
	return grbl.DefaultBufferSize
}

// openLidar returns nil if no sensor port is configured.
func openLidar(h lidar.Handler) (*lidar.Client, error) {
	if lidarPort == "" {
		return nil, nil
	}
	rw, err := lidar.OpenSerial(lidarPort, baudRate)
	if err != nil {
		return nil, fmt.Errorf("open lidar port %s: %w", lidarPort, err)
	}
	return lidar.Open(rw, h, lidar.Config{Logger: log.With("component", "lidar")}), nil
}
