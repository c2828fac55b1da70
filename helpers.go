package main

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

type publisher interface {
	Publish(update SessionUpdate) error
}

type amqpPublisher struct {
	conn *amqp.Connection
}

func (p amqpPublisher) Publish(update SessionUpdate) error {
	return publishSessionUpdate(p.conn, update.SessionID, update)
}

func publishSessionUpdate(rabbitConn *amqp.Connection, sessionID string, update SessionUpdate) error {
	ch, err := rabbitConn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}
	routingKey := fmt.Sprintf("session.%s", sessionID)

	return ch.Publish(
		updatesExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func declareUpdatesExchange(rabbitConn *amqp.Connection) error {
	ch, err := rabbitConn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	return ch.ExchangeDeclare(
		updatesExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}
