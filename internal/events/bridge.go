// Package events publishes simulation state changes onto a RabbitMQ topic
// exchange so external consumers (analytics, auditing) can follow along
// without holding a WebSocket open. The bridge is optional: a nil *Bridge is
// a valid no-op publisher.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"supplyline/internal/logging"
)

// Config carries broker connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Exchange string
}

// Bridge is a resilient publisher with a background reconnect watcher.
type Bridge struct {
	url      string
	exchange string
	log      *logging.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	pubChan *amqp.Channel

	closed    chan struct{}
	reconnect chan struct{}
}

// StockEvent is the payload for stock.* routing keys.
type StockEvent struct {
	ItemID       int64  `json:"item_id"`
	SKU          string `json:"sku"`
	MovementType string `json:"movement_type"`
	Quantity     int    `json:"quantity"`
	CurrentStock int    `json:"current_stock"`
	OccurredAt   string `json:"occurred_at"`
}

// DeliveryEvent is the payload for delivery.* routing keys.
type DeliveryEvent struct {
	DeliveryID     int64  `json:"delivery_id"`
	DeliveryNumber string `json:"delivery_number"`
	FromStatus     string `json:"from_status"`
	ToStatus       string `json:"to_status"`
	OccurredAt     string `json:"occurred_at"`
}

// Connect dials the broker and starts the reconnect watcher. A failed first
// connect is returned to the caller; later drops are retried in background.
func Connect(ctx context.Context, cfg Config, log *logging.Logger) (*Bridge, error) {
	b := &Bridge{
		url:       fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port),
		exchange:  cfg.Exchange,
		log:       log,
		closed:    make(chan struct{}),
		reconnect: make(chan struct{}, 1),
	}
	if err := b.connectOnce(); err != nil {
		return nil, err
	}
	go b.watch()
	return b, nil
}

func (b *Bridge) connectOnce() error {
	conn, err := amqp.DialConfig(b.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}
	if err := ch.ExchangeDeclare(b.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	b.mu.Lock()
	b.conn = conn
	if b.pubChan != nil {
		_ = b.pubChan.Close()
	}
	b.pubChan = ch
	b.mu.Unlock()

	go func() {
		connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
		chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-b.closed:
			return
		case <-connClosed:
		case <-chClosed:
		}
		select {
		case b.reconnect <- struct{}{}:
		default:
		}
	}()

	b.log.Info("events_connected", "connected to RabbitMQ", map[string]any{
		"exchange": b.exchange,
	})
	return nil
}

func (b *Bridge) watch() {
	backoff := time.Second
	for {
		select {
		case <-b.closed:
			return
		case <-b.reconnect:
			for {
				select {
				case <-b.closed:
					return
				default:
				}
				if err := b.connectOnce(); err == nil {
					backoff = time.Second
					b.log.Info("events_reconnected", "reconnected to RabbitMQ", nil)
					break
				} else {
					b.log.Error("events_reconnect_failed", "RabbitMQ reconnect failed", err)
				}
				time.Sleep(backoff)
				if backoff < 30*time.Second {
					backoff *= 2
					if backoff > 30*time.Second {
						backoff = 30 * time.Second
					}
				}
			}
		}
	}
}

// Close stops the watcher and closes broker resources. Safe on nil.
func (b *Bridge) Close() {
	if b == nil {
		return
	}
	select {
	case <-b.closed:
	default:
		close(b.closed)
	}

	b.mu.Lock()
	if b.pubChan != nil {
		_ = b.pubChan.Close()
		b.pubChan = nil
	}
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	b.mu.Unlock()
}

// PublishStockMovement emits a stock.in or stock.out event. Best effort:
// failures are logged, never returned to the simulation.
func (b *Bridge) PublishStockMovement(ctx context.Context, itemID int64, sku, movementType string, quantity, currentStock int) {
	if b == nil {
		return
	}
	b.publish(ctx, "stock."+strings.ToLower(movementType), StockEvent{
		ItemID:       itemID,
		SKU:          sku,
		MovementType: movementType,
		Quantity:     quantity,
		CurrentStock: currentStock,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishDeliveryTransition emits a delivery.<to_status> event.
func (b *Bridge) PublishDeliveryTransition(ctx context.Context, deliveryID int64, deliveryNumber, from, to string) {
	if b == nil {
		return
	}
	b.publish(ctx, "delivery."+strings.ToLower(to), DeliveryEvent{
		DeliveryID:     deliveryID,
		DeliveryNumber: deliveryNumber,
		FromStatus:     from,
		ToStatus:       to,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (b *Bridge) publish(ctx context.Context, routingKey string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		b.log.Error("events_marshal_failed", "event payload marshal failed", err)
		return
	}

	b.mu.RLock()
	ch := b.pubChan
	conn := b.conn
	b.mu.RUnlock()

	if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
		b.log.Warn("events_publish_skipped", "broker connection not ready", map[string]any{
			"routing_key": routingKey,
		})
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = ch.PublishWithContext(pubCtx, b.exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		b.log.Error("events_publish_failed", "event publish failed", err)
	}
}
