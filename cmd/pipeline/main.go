package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/zenorc/zenorc/internal/config"
	"github.com/zenorc/zenorc/internal/dispatch"
	"github.com/zenorc/zenorc/internal/ledger"
	"github.com/zenorc/zenorc/internal/mailbox"
	"github.com/zenorc/zenorc/internal/pipeline"
	paysignal "github.com/zenorc/zenorc/internal/signal"
)

// Pipeline process entrypoint.
// Data flow:
// 1) Load config.
// 2) Bootstrap the recorded-transaction set from the ledger.
// 3) Run the scan/record producer loop and the publish consumer loop
//    until the process is told to stop.
func main() {
	config.LoadDotenv()

	cfg, err := config.ParsePipeline()
	if err != nil {
		log.Fatalf("pipeline config failed: %v", err)
	}

	recorder := ledger.NewRecorder(func(ctx context.Context) (ledger.Sheet, error) {
		return ledger.OpenSheet(ctx, cfg.SheetURL, cfg.SheetCredsPath)
	})

	scanner := mailbox.NewScanner(
		mailbox.NewDialer(cfg.IMAPAddr, cfg.EmailID, cfg.EmailPassword),
		cfg.TargetAmount,
		recorder.Seen,
	)

	publisher := paysignal.NewPublisher(
		paysignal.NewDialer(cfg.MQTTBroker, cfg.MQTTPort, cfg.MQTTUsername, cfg.MQTTPassword),
		cfg.MQTTTopic,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder.Bootstrap(ctx)

	runner := pipeline.NewRunner(scanner, recorder, dispatch.NewDispatcher(), publisher,
		cfg.TargetAmount, cfg.PollInterval(), cfg.Cooldown())

	log.Printf("zenorc pipeline starting")
	runner.Run(ctx)
	log.Printf("zenorc pipeline stopped")
}
