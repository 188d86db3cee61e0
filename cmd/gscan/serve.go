package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/mastercactapus/gscan/machine/grbl"
	"github.com/mastercactapus/gscan/scan"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Connect to the machine (and lidar, if configured) and serve the HTTP API.

Endpoints:
  POST   /api/move          JSON {"X":1,"Y":2,"Z":3,"F":500}, waits for the controller
  POST   /api/run           G-code text, one command per line
  GET    /api/state         machine state and queue statistics
  GET    /api/scan          recorded samples (?format=cbor for CBOR)
  DELETE /api/scan          clear recorded samples
  GET    /api/scan/height   ?x=&y= surface height from the scan mesh
  POST   /api/lidar/start   start sensor readings
  POST   /api/lidar/stop    stop sensor readings
  GET    /events/...        server-sent events: state, position, response, startup, disconnected`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":9091", "Address to bind the API server to")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rec := scan.NewRecorder(log.With("component", "scan"))
	a := newAPI(ctx, rec, log.With("component", "api"))
	a.bufferSize = lineLimit()

	sess, err := openSession(ctx, grbl.MultiSink{a.Sink(), rec.Machine()}, nil)
	if err != nil {
		return err
	}
	defer sess.Close()
	a.m = sess

	lc, err := openLidar(rec.Sensor())
	if err != nil {
		return err
	}
	if lc != nil {
		defer lc.Close()
		a.sensor = lc
	}

	srv := &http.Server{
		Addr: serveAddr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "*")
			log.Debug("request", "method", req.Method, "path", req.URL.Path, "remote", req.RemoteAddr)
			a.ServeHTTP(w, req)
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", serveAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-sess.Done():
		err = sess.Err()
	case <-ctx.Done():
	}

	// end event streams first, Shutdown waits for open connections
	a.sse.Shutdown()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	srv.Shutdown(shutdownCtx)

	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}
