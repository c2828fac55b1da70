package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/jobmatchassistant/internal/config"
	"github.com/muhammadolammi/jobmatchassistant/internal/httpapi"
)

const usage = `usage: jobmatchassistant [chat|serve|worker]

  chat     interactive terminal chat (default)
  serve    HTTP API on HTTP_PORT
  worker   consume chat requests from RABBITMQ_URL`

func main() {
	cmd := "chat"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "chat", "serve", "worker":
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		log.Fatalf("unknown command %q\n%s", cmd, usage)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup, err := buildAssistant(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create assistant: %v", err)
	}
	defer cleanup()

	switch cmd {
	case "chat":
		err = runChat(ctx, a)
	case "serve":
		err = serve(ctx, a, cfg.HTTPPort)
	case "worker":
		err = runWorkers(ctx, a, cfg)
	}
	if err != nil {
		cleanup()
		log.Fatal(err)
	}
}

func serve(ctx context.Context, a httpapi.Assistant, port string) error {
	e := httpapi.NewServer(a)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on :%s", port)
		errCh <- e.Start(":" + port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func runWorkers(ctx context.Context, a chatter, cfg config.Config) error {
	if cfg.RabbitMQURL == "" {
		return errors.New("empty RABBITMQ_URL in env")
	}
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ. err:  %v", err)
	}
	defer conn.Close()

	if err := declareUpdatesExchange(conn); err != nil {
		return err
	}

	workerConfig := WorkerConfig{
		Assistant:   a,
		Publisher:   amqpPublisher{conn: conn},
		RABBITMQUrl: cfg.RabbitMQURL,
	}

	log.Printf("Starting %d workers consumer pool", cfg.Workers)
	workerConfig.StartConsumerWorkerPool(ctx, cfg.Workers)
	return nil
}
