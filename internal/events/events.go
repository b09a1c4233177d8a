// Package events announces storefront facts on a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/models"
)

const (
	OrderPlacedRoutingKey = "order.placed.v1"
	orderPlacedEvent      = "OrderPlaced"
	producerName          = "storefront"
	publishTimeout        = 3 * time.Second
)

// Envelope wraps every event payload.
type Envelope[T any] struct {
	EventName     string    `json:"eventName"`
	EventVersion  int       `json:"eventVersion"`
	EventID       string    `json:"eventId"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Producer      string    `json:"producer"`
	PartitionKey  string    `json:"partitionKey"`
	OccurredAt    time.Time `json:"occurredAt"`
	Payload       T         `json:"payload"`
}

type OrderPlacedItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderPlaced struct {
	OrderID     string            `json:"orderId"`
	UserID      string            `json:"userId"`
	TotalAmount string            `json:"totalAmount"`
	Items       []OrderPlacedItem `json:"items"`
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order, correlationID string) error
	Close() error
}

// New returns a RabbitMQ publisher, or a no-op one when no broker URL is
// configured.
func New(cfg config.EventsConfig, logger logrus.FieldLogger) (Publisher, error) {
	if cfg.RabbitURL == "" {
		logger.Info("RABBITMQ_URL not set, order events disabled")
		return Nop{}, nil
	}
	return DialRabbit(cfg.RabbitURL, cfg.Exchange)
}

func newOrderPlaced(order *models.Order, correlationID string, now time.Time) Envelope[OrderPlaced] {
	payload := OrderPlaced{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount.StringFixed(2),
		Items:       make([]OrderPlacedItem, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.StringFixed(2),
		})
	}

	return Envelope[OrderPlaced]{
		EventName:     orderPlacedEvent,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		Producer:      producerName,
		PartitionKey:  order.ID,
		OccurredAt:    now.UTC(),
		Payload:       payload,
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	conn     io.Closer
	ch       channel
	exchange string
}

func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order, correlationID string) error {
	ev := newOrderPlaced(order, correlationID, time.Now())

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.EventName, err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx, p.exchange, OrderPlacedRoutingKey, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     ev.EventID,
		CorrelationId: correlationID,
		Timestamp:     ev.OccurredAt,
		Body:          body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", OrderPlacedRoutingKey, err)
	}
	return nil
}

// Close closes the channel and then the connection, even when closing the
// channel fails. The first error is returned.
func (p *RabbitPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Nop drops every event.
type Nop struct{}

func (Nop) PublishOrderPlaced(context.Context, *models.Order, string) error { return nil }

func (Nop) Close() error { return nil }
