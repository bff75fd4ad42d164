package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// AMQPPublisher publishes booking events to RabbitMQ.  It dials per
// publish so a broker outage never blocks the request path for longer than
// one failed dial.
type AMQPPublisher struct {
    URL string
    Log *logrus.Logger
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string, log *logrus.Logger) *AMQPPublisher {
    if log == nil {
        log = logrus.StandardLogger()
    }
    return &AMQPPublisher{URL: url, Log: log}
}

// Publish sends ev as a persistent JSON message to the queue named after
// its type.  Errors are logged and returned so the caller may ignore them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev BookingEvent) error {
    log := p.Log.WithFields(logrus.Fields{"component": "rabbitmq", "queue": ev.Type})

    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.WithError(err).Warn("dial failed")
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.WithError(err).Warn("channel open failed")
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(ev.Type, true, false, false, false, nil); err != nil {
        log.WithError(err).Warn("queue declare failed")
        return fmt.Errorf("declare queue %s: %w", ev.Type, err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Type:         ev.Type,
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, pub); err != nil {
        log.WithError(err).Warn("publish failed")
        return fmt.Errorf("publish %s: %w", ev.Type, err)
    }
    return nil
}

// LogPublisher only logs events.  It is used when the broker is disabled.
type LogPublisher struct{ Log *logrus.Logger }

func (p LogPublisher) Publish(ctx context.Context, ev BookingEvent) error {
    l := p.Log
    if l == nil {
        l = logrus.StandardLogger()
    }
    l.WithFields(logrus.Fields{
        "component":  "events",
        "event":      ev.Type,
        "booking_id": ev.BookingID,
    }).Debug("event not published: broker disabled")
    return nil
}
