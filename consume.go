package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/muhammadolammi/jobmatchassistant/internal/assistant"
	"github.com/muhammadolammi/jobmatchassistant/internal/checkpoint"
)

type chatter interface {
	StartSession(ctx context.Context, userID string) (string, error)
	Send(ctx context.Context, userID, sessionID, text string) (assistant.Reply, error)
	AttachResume(ctx context.Context, userID, sessionID string, r checkpoint.Resume) error
}

// handleRequest runs one queued chat request and publishes its progress.
func handleRequest(ctx context.Context, body []byte, a chatter, pub publisher) error {
	var req ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("error unmarshalling message body: %w", err)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("request without user_id")
	}

	if req.SessionID == "" {
		id, err := a.StartSession(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		req.SessionID = id
	}

	notify(pub, SessionUpdate{SessionID: req.SessionID, Status: checkpoint.StatusProcessing, Message: "analysis started"})

	reply, err := runRequest(ctx, a, req)
	if err != nil {
		notify(pub, SessionUpdate{SessionID: req.SessionID, Status: checkpoint.StatusFailed, Message: "analysis failed"})
		return err
	}

	notify(pub, SessionUpdate{
		SessionID: req.SessionID,
		Status:    "completed",
		Message:   "analysis completed",
		Reply:     reply.Text,
		ToolsUsed: reply.ToolsUsed,
	})
	return nil
}

func runRequest(ctx context.Context, a chatter, req ChatRequest) (assistant.Reply, error) {
	if req.Resume != nil {
		err := a.AttachResume(ctx, req.UserID, req.SessionID, checkpoint.Resume{
			Filename:  req.Resume.Filename,
			Mime:      req.Resume.Mime,
			ObjectKey: req.Resume.ObjectKey,
		})
		if err != nil {
			return assistant.Reply{}, fmt.Errorf("error attaching resume to session_id: %v. err: %w", req.SessionID, err)
		}
		if strings.TrimSpace(req.Message) == "" {
			return assistant.Reply{SessionID: req.SessionID}, nil
		}
	}
	reply, err := a.Send(ctx, req.UserID, req.SessionID, req.Message)
	if err != nil {
		return reply, fmt.Errorf("error running agent for session_id: %v. err: %w", req.SessionID, err)
	}
	return reply, nil
}

func notify(pub publisher, update SessionUpdate) {
	update.Timestamp = time.Now()
	if err := pub.Publish(update); err != nil {
		log.Println("failed to publish update:", err)
	}
}

func worker(ctx context.Context, id int, workerConfig *WorkerConfig, wg *sync.WaitGroup) {
	defer wg.Done()
	//    to consume message on the queue
	conn, err := amqp.Dial(workerConfig.RABBITMQUrl)
	if err != nil {
		log.Fatal("error dialling rabbitmq: " + err.Error())
	}
	defer conn.Close()
	// closing the connection ends the delivery channel below
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("error connecting to rabbitmq channel: " + err.Error())
	}
	defer ch.Close()
	_, err = ch.QueueDeclare(
		requestQueue,
		true,  // durable (survives broker restarts)
		false, // auto-delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatalf("Failed to declare queue: %v", err)
	}

	msgs, err := ch.Consume(
		requestQueue,
		"",    // consumer tag
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		log.Fatal("error consuming rabbitmq message: " + err.Error())
	}

	workerConfig.consume(ctx, id, msgs)
}

// consume handles deliveries until msgs is closed or ctx is done.
func (workerConfig *WorkerConfig) consume(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", id+1)
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			log.Printf("Worker %d processing chat request", id+1)
			if err := handleRequest(ctx, msg.Body, workerConfig.Assistant, workerConfig.Publisher); err != nil {
				log.Printf("Worker %d: %v", id+1, err)
			}
		}
	}
}

// StartConsumerWorkerPool blocks until every worker has stopped, which
// happens once ctx is cancelled.
func (workerConfig *WorkerConfig) StartConsumerWorkerPool(ctx context.Context, numWorkers int) {
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := range numWorkers {
		log.Println("worker id ", i+1, "started")
		go worker(ctx, i, workerConfig, &wg)
	}
	wg.Wait() // block until all workers finish
}
