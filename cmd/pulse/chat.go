package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/abelbrown/pulse/internal/metrics"
	"github.com/abelbrown/pulse/internal/otel"
	"github.com/abelbrown/pulse/internal/server"
	"github.com/abelbrown/pulse/internal/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions about the dataset interactively",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, _ []string) error {
	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	events := otel.NewLogger(io.Discard)
	events.SetRingBuffer(ring)
	defer events.Close()

	m := metrics.New()
	data, err := server.LoadDataset(cmd.Context(), cfg.Data, m, events)
	if err != nil {
		return err
	}

	r := newRouter(cfg, data, m)
	return ui.Run(cmd.Context(), tracedAnswerer{r: r, events: events}, ring)
}
