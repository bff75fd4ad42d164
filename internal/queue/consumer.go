package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// Consumer appends every booking event from RabbitMQ to booking.log in
// LogDir, one line per event.
type Consumer struct {
    URL    string
    LogDir string
    Log    *logrus.Logger
}

// Run connects to the broker, declares every booking queue and consumes
// them until ctx is done.  Lost connections are retried with exponential
// backoff capped at 30s.  A message that cannot be handled is rejected
// without requeue.
func (c *Consumer) Run(ctx context.Context) error {
    log := c.logger().WithField("component", "booking-consumer")
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            log.WithError(err).Warnf("dial failed, retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
            return err
        }
        log.WithError(err).Warn("consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger().WithError(err).Warn("set QoS failed")
    }

    // Fan all queues into one channel.
    merged := make(chan amqp.Delivery)
    for _, q := range Queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        go func(in <-chan amqp.Delivery) {
            for d := range in {
                select {
                case merged <- d:
                case <-ctx.Done():
                    return
                }
            }
        }(msgs)
    }

    closed := conn.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("connection closed")
        case d := <-merged:
            if err := c.Handle(d.Body); err != nil {
                c.logger().WithError(err).Warn("handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// Handle decodes one message and appends it to the booking log.
func (c *Consumer) Handle(body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    dir := c.LogDir
    if dir == "" {
        dir = "logs"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as one booking.log line.
func FormatLine(ev BookingEvent) string {
    seats := "[" + strings.Join(ev.SeatLabels, ",") + "]"
    line := fmt.Sprintf("[%s] %s | booking_id=%d | ticket=%s | user_id=%d | showtime_id=%d | screen=%q | status=%s | total=%d cents | seats=%s",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.BookingID, ev.TicketNumber, ev.UserID,
        ev.ShowtimeID, ev.ScreenName, ev.Status, ev.TotalAmountCents, seats)
    if ev.RefundAmountCents != nil {
        line += fmt.Sprintf(" | refund=%d cents", *ev.RefundAmountCents)
    }
    if ev.Reason != "" {
        line += fmt.Sprintf(" | reason=%q", ev.Reason)
    }
    return line + "\n"
}

func (c *Consumer) logger() *logrus.Logger {
    if c.Log == nil {
        return logrus.StandardLogger()
    }
    return c.Log
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
