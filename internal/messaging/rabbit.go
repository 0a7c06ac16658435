package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// EventsExchange is the shared topic exchange all saga events flow through.
	EventsExchange = "ordersaga.events"

	OrderCreatedRoutingKey   = "order.created.v1"
	StockReducedRoutingKey   = "stock.reduced.v1"
	StockFailedRoutingKey    = "stock.failed.v1"
	OrderCompletedRoutingKey = "order.completed.v1"
	OrderFailedRoutingKey    = "order.failed.v1"
	InvoiceCreatedRoutingKey = "invoice.created.v1"
	InvoiceFailedRoutingKey  = "invoice.failed.v1"
)

// Dial connects to RabbitMQ at the given URL.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}

// ServiceQueue names the durable queue a service consumes a routing key from.
func ServiceQueue(serviceName, routingKey string) string {
	return serviceName + "." + routingKey
}

// ParkedQueue names the queue exhausted deliveries are parked in.
func ParkedQueue(queue string) string {
	return queue + ".parked"
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}
