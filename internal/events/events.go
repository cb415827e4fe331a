package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pharmacy/internal/domain"
)

const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent тело сообщения о заказе
type OrderEvent struct {
	Type           string                `json:"type"`
	OrderID        string                `json:"order_id"`
	Status         domain.OrderStatus    `json:"status"`
	StatusVi       string                `json:"status_vi"`
	PreviousStatus domain.OrderStatus    `json:"previous_status,omitempty"`
	Total          int64                 `json:"total"`
	CustomerPhone  string                `json:"customer_phone"`
	DeliveryMethod domain.DeliveryMethod `json:"delivery_method"`
	OccurredAt     time.Time             `json:"occurred_at"`
}

// RoutingKey order.created или order.status.<status>
func (e OrderEvent) RoutingKey() string {
	if e.Type == TypeOrderCreated {
		return TypeOrderCreated
	}
	return "order.status." + string(e.Status)
}

func NewOrderCreated(o domain.Order) OrderEvent {
	return OrderEvent{
		Type:           TypeOrderCreated,
		OrderID:        o.ID,
		Status:         o.Status,
		StatusVi:       o.StatusVi,
		Total:          o.Total,
		CustomerPhone:  o.Customer.Phone,
		DeliveryMethod: o.Delivery.Method,
		OccurredAt:     o.CreatedAt,
	}
}

func NewStatusChanged(o domain.Order, prev domain.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:           TypeOrderStatusChanged,
		OrderID:        o.ID,
		Status:         o.Status,
		StatusVi:       o.StatusVi,
		PreviousStatus: prev,
		Total:          o.Total,
		CustomerPhone:  o.Customer.Phone,
		DeliveryMethod: o.Delivery.Method,
		OccurredAt:     o.UpdatedAt,
	}
}

// Message json-сообщение для публикации, persistent
func (e OrderEvent) Message() (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    e.OrderID + ":" + string(e.Status),
		Type:         e.Type,
		Timestamp:    e.OccurredAt,
		Body:         body,
	}, nil
}

type publisher interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

// Publisher отправляет события заказов в topic exchange
type Publisher struct {
	client   publisher
	exchange string
	timeout  time.Duration
}

func NewPublisher(client *Client, exchange string) *Publisher {
	return &Publisher{client: client, exchange: exchange, timeout: 5 * time.Second}
}

func (p *Publisher) OrderCreated(ctx context.Context, o domain.Order) error {
	return p.publish(ctx, NewOrderCreated(o))
}

func (p *Publisher) OrderStatusChanged(ctx context.Context, o domain.Order, prev domain.OrderStatus) error {
	return p.publish(ctx, NewStatusChanged(o, prev))
}

func (p *Publisher) publish(ctx context.Context, e OrderEvent) error {
	msg, err := e.Message()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.exchange, e.RoutingKey(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.RoutingKey(), err)
	}
	return nil
}
