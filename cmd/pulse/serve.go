package main

import (
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/fetch"
	"github.com/abelbrown/pulse/internal/logging"
	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query endpoint over HTTP",
	Long: `Serves POST /ask, POST /posts, GET /healthz, GET /metrics and
GET /debug/events. The dataset is reloaded when its file changes unless
server.watch is false.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events := otel.NewLogger(io.Discard)
	events.SetRingBuffer(ring)
	defer events.Close()

	m := metrics.New()
	data, err := server.LoadDataset(ctx, cfg.Data, m, events)
	if err != nil {
		return err
	}

	st, err := openStore(cfg.Fetch.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	acq := fetch.NewAcquirer(newFetcher(cfg), st, cfg.Fetch.JSONL, m, events)

	if cfg.Server.Watch {
		go func() {
			if err := data.Watch(ctx); err != nil {
				logging.Warn("Dataset watch stopped", "err", err)
			}
		}()
	}

	srv := server.New(server.Config{
		Router:     newRouter(cfg, data, m),
		Data:       data,
		Acquirer:   acq,
		FetchLimit: cfg.Fetch.Limit,
		Metrics:    m,
		Events:     events,
		Ring:       ring,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}
