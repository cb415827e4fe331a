package events

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string // default "/"
	UseTLS   bool
}

// URL адрес брокера для amqp.Dial
func (cfg Config) URL() string {
	vhost := cfg.VHost
	if vhost == "/" {
		vhost = ""
	}
	scheme := "amqp"
	if cfg.UseTLS {
		scheme = "amqps"
	}
	return fmt.Sprintf("%s://%s:%s@%s:%d/%s", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)
}

// Client соединение с RabbitMQ с включёнными publisher confirms
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(cfg Config) (*Client, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if cfg.UseTLS {
		conn, err = amqp.DialTLS(cfg.URL(), &tls.Config{MinVersion: tls.VersionTLS12})
	} else {
		conn, err = amqp.Dial(cfg.URL())
	}
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Client{conn: conn, ch: ch}, nil
}

// DeclareTopic объявляет durable topic exchange
func (c *Client) DeclareTopic(exchange string) error {
	return c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
}

func (c *Client) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// ErrNack брокер отказался принять сообщение
var ErrNack = errors.New("publish NACK from broker")

// Publish публикует сообщение и ждёт ack/nack именно для него
// (подтверждение привязано к delivery tag публикации)
func (c *Client) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return err
	}
	if dc == nil {
		// канал не в режиме подтверждений
		return nil
	}
	return waitConfirm(ctx, dc)
}

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

func waitConfirm(ctx context.Context, dc confirmation) error {
	ack, err := dc.WaitContext(ctx)
	if err != nil {
		return err
	}
	if !ack {
		return ErrNack
	}
	return nil
}
