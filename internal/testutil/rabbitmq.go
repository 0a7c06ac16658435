package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	amqpUser = "saga_user"
	amqpPass = "saga_pass"
)

// StartRabbitMQ launches a RabbitMQ container for the event-flow tests and
// returns a ready AMQP connection plus the broker URL, for callers that need
// to open their own connections. Cleanup is registered with t.Cleanup.
func StartRabbitMQ(t *testing.T) (*amqp.Connection, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-alpine",
		ExposedPorts: []string{"5672/tcp"},
		Env: map[string]string{
			"RABBITMQ_DEFAULT_USER": amqpUser,
			"RABBITMQ_DEFAULT_PASS": amqpPass,
		},
		WaitingFor: wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		_ = container.Terminate(cleanupCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	url := fmt.Sprintf("amqp://%s:%s@%s:%s/", amqpUser, amqpPass, host, mappedPort.Port())
	conn := dialBroker(ctx, t, url)

	t.Cleanup(func() { _ = conn.Close() })

	return conn, url
}

// dialBroker retries until the broker accepts AMQP connections; the port
// opening before the broker is ready is normal during container startup.
func dialBroker(ctx context.Context, t *testing.T, url string) *amqp.Connection {
	t.Helper()

	deadline := time.Now().Add(60 * time.Second)
	for {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Dial: amqp.DefaultDial(10 * time.Second),
		})
		if err == nil {
			return conn
		}

		if time.Now().After(deadline) {
			t.Fatalf("timeout connecting to rabbitmq: %v", err)
		}

		select {
		case <-ctx.Done():
			t.Fatalf("context cancelled connecting to rabbitmq: %v", ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}
