// Package agent listens for import requests on a durable RabbitMQ queue,
// runs the extraction pipeline and publishes correlated responses.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Agent is the RPC listener/responder.
type Agent struct {
	url           string
	requestQueue  string
	responseQueue string
	handler       *Handler
}

func New(url, requestQueue, responseQueue string, handler *Handler) *Agent {
	return &Agent{
		url:           url,
		requestQueue:  requestQueue,
		responseQueue: responseQueue,
		handler:       handler,
	}
}

// Start dials the broker and consumes until ctx is canceled or the channel
// closes. Broker connectivity failure is returned to the caller; it is fatal
// and the supervisor restarts the process.
func (a *Agent) Start(ctx context.Context) error {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	for _, queue := range []string{a.requestQueue, a.responseQueue} {
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	// One unacked message at a time: extraction is slow and redelivery-safe,
	// so scale horizontally instead of prefetching.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(a.requestQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	log.Printf("agent: consuming from %s, responding on %s", a.requestQueue, a.responseQueue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			a.process(ctx, ch, d)
		}
	}
}

// process handles one delivery. The ack happens only after the response is
// published: a publish failure leaves the request unacked so the broker
// redelivers it, which the key-idempotent upsert makes safe.
func (a *Agent) process(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	var req Request
	if err := json.Unmarshal(d.Body, &req); err != nil {
		log.Printf("agent: discarding malformed request body: %v", err)
		if err := d.Nack(false, false); err != nil {
			log.Printf("agent: nack failed: %v", err)
		}
		return
	}

	resp := a.handler.Handle(ctx, req)

	body, err := json.Marshal(resp)
	if err != nil {
		log.Printf("agent: failed to encode response for %s: %v", req.ID, err)
		return
	}
	err = ch.PublishWithContext(ctx, "", a.responseQueue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: req.ID,
		Body:          body,
	})
	if err != nil {
		log.Printf("agent: failed to publish response for %s, leaving request unacked: %v", req.ID, err)
		return
	}
	if err := d.Ack(false); err != nil {
		log.Printf("agent: ack failed for %s: %v", req.ID, err)
	}
	log.Printf("agent: request %s completed with status %s", req.ID, resp.Result.Status)
}
