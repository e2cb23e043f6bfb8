package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"articlecast/api"
	"articlecast/app"
	"articlecast/config"
	"articlecast/queue"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, and the Kafka job consumer when configured",
	RunE:  serveMain,
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "HTTP listen port")
}

func serveMain(cmd *cobra.Command, args []string) error {
	settings := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory, err := app.NewFactory(ctx, settings)
	if err != nil {
		return err
	}
	manager := api.NewManager(factory)

	// Queue-driven jobs run unattended, so gates auto-approve.
	if settings.KafkaBrokers != "" {
		consumer, err := queue.NewConsumer(queue.Config{
			Brokers: settings.KafkaBrokers,
			Topic:   settings.KafkaTopic,
			GroupID: settings.KafkaGroupID,
		}, func(ctx context.Context, req queue.JobRequest) error {
			job, err := manager.Submit(ctx, req.URL, req.Focus, true)
			if err != nil {
				return err
			}
			// Block until the run finishes so a failed job leaves
			// its message unmarked for retry.
			return job.Wait(ctx)
		})
		if err != nil {
			return err
		}
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer consumer.Close()
	}

	r := api.NewRouter(manager)
	addr := ":" + servePort
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /api/health")
	log.Println("  POST /api/jobs")
	log.Println("  GET  /api/jobs")
	log.Println("  GET  /api/jobs/:id")
	log.Println("  POST /api/jobs/:id/confirm")
	log.Println("  POST /api/jobs/:id/stop")
	log.Println("  GET  /api/history")

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
