// Package events publishes order lifecycle events to RabbitMQ.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xenking/cloud-kitchen/internal/domain/order"
	"github.com/xenking/cloud-kitchen/pkg/money"
)

// OrderPlacedQueue receives one message per placed order.
const OrderPlacedQueue = "kitchen.order.placed"

const publishTimeout = 3 * time.Second

var _ order.Notifier = (*Publisher)(nil)

// channel is the part of *amqp.Channel used by Publisher.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends order events over an AMQP channel.
type Publisher struct {
	ch  channel
	now func() time.Time
}

// Dial connects to url and returns a Publisher together with the
// underlying connection, which the caller closes.
func Dial(url string) (*Publisher, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dial amqp")
	}
	p, err := NewPublisher(conn)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return p, conn, nil
}

// NewPublisher opens a channel on conn and declares the event queue.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}

	if _, err := ch.QueueDeclare(OrderPlacedQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, errors.Wrapf(err, "declare %s", OrderPlacedQueue)
	}

	return &Publisher{ch: ch, now: time.Now}, nil
}

// Close closes the channel.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

// OrderPlaced publishes an OrderPlaced event for o.
func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order) error {
	body := encodeOrderPlaced(o, p.now().UTC())

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.ch.PublishWithContext(pubCtx, "", OrderPlacedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    o.ID,
		Timestamp:    o.CreatedAt,
		Body:         body,
	}); err != nil {
		return errors.Wrapf(err, "publish order %s", o.ID)
	}
	return nil
}

func encodeOrderPlaced(o *order.Order, at time.Time) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("eventType", func(e *jx.Encoder) { e.Str("OrderPlaced") })
		e.Field("orderId", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("sessionId", func(e *jx.Encoder) { e.Str(o.SessionID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("itemId", func(e *jx.Encoder) { e.Int(l.ItemID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("unitPrice", func(e *jx.Encoder) { e.Str(money.Fixed(l.UnitPrice, o.Currency)) })
					})
				}
			})
		})
		e.Field("total", func(e *jx.Encoder) { e.Str(money.Fixed(o.Total, o.Currency)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(o.Currency.String()) })
		e.Field("timestamp", func(e *jx.Encoder) { e.Str(at.Format(time.RFC3339)) })
	})

	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out
}
