package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/helperlink/dispatch/core/dispatch"
	"github.com/helperlink/dispatch/core/model"
	"github.com/helperlink/dispatch/core/notify"
	"github.com/helperlink/dispatch/infra/logger"
	"github.com/helperlink/dispatch/infra/store"
	"github.com/helperlink/dispatch/internal/eventbus"
)

var broadcastCmd = &cobra.Command{
	Use:   "broadcast",
	Short: "Run a broadcast round against seeded test data",
	RunE:  broadcastOnce,
}

func init() {
	rootCmd.AddCommand(broadcastCmd)
}

// broadcastOnce exercises the full filter, score and fan-out path against an
// in-memory store so the pipeline can be smoke tested without a broker.
func broadcastOnce(cmd *cobra.Command, args []string) error {
	logg := logger.New("broadcast-command")

	mem := store.NewMemory()
	mem.PutCategory(model.Category{ID: "cat-1", Slug: "plumbing", Name: "Plumbing"})
	mem.PutRequester(model.Requester{ID: "user-1", Name: "Test Requester"})
	mem.PutRequest(model.ServiceRequest{
		ID:          "req-1",
		RequesterID: "user-1",
		Category:    model.Category{ID: "cat-1", Slug: "plumbing", Name: "Plumbing"},
		Location:    &model.Coordinate{Lat: 17.3850, Lng: 78.4867},
		Urgency:     model.UrgencyImmediate,
		Status:      model.StatusOpen,
	})
	mem.PutHelper(model.HelperProfile{
		ID:           "helper-1",
		Name:         "Test Helper",
		Approved:     true,
		IsOnline:     true,
		Categories:   []string{"plumbing"},
		Location:     &model.Coordinate{Lat: 17.4000, Lng: 78.4800},
		Rating:       4.8,
		LastActiveAt: time.Now(),
	})

	fanout, err := notify.NewFanout(notify.LogChannel{Log: logger.New("push")}, logg)
	if err != nil {
		return err
	}
	bus := eventbus.New()
	defer bus.Close()

	orch, err := dispatch.NewOrchestrator(mem, fanout, bus, nil, logg, dispatch.Config{})
	if err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}

	out, err := orch.Broadcast(context.Background(), "req-1")
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	logg.Infof("round %s notified %d of %d candidates", out.RoundID, out.HelpersNotified, out.Candidates)
	return nil
}
