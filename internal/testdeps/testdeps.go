// Package testdeps starts throwaway backends in containers for integration tests.
// Each helper first honours an environment override so a suite can run against an
// existing server, and skips the test when no container runtime is reachable.
package testdeps

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	tcvalkey "github.com/testcontainers/testcontainers-go/modules/valkey"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	ValkeyImage = "docker.io/valkey/valkey:8"
	NatsImage   = "nats:2.10"

	NatsUser = "localesync"
	NatsPass = "l0c4l3sync"

	// ValkeyURLEnv and NatsURLEnv point tests at servers that are already running.
	ValkeyURLEnv = "TEST_VALKEY_URL"
	NatsURLEnv   = "TEST_NATS_URL"
)

// Valkey returns a redis:// connection string for a running Valkey server.
func Valkey(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv(ValkeyURLEnv); uri != "" {
		return uri
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcvalkey.Run(ctx, ValkeyImage)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start valkey container: %v", err)
	}

	conn, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("valkey connection string: %v", err)
	}
	return conn
}

// Nats returns a nats:// URL with credentials for a JetStream enabled NATS server.
func Nats(t *testing.T) *url.URL {
	t.Helper()
	if uri := os.Getenv(NatsURLEnv); uri != "" {
		u, err := url.Parse(uri)
		if err != nil {
			t.Fatalf("parse %s: %v", NatsURLEnv, err)
		}
		return u
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcnats.Run(ctx, NatsImage,
		testcontainers.WithCmdArgs("--js"),
		tcnats.WithUsername(NatsUser),
		tcnats.WithPassword(NatsPass),
		testcontainers.WithWaitStrategy(wait.ForLog("Server is ready")),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start nats container: %v", err)
	}

	conn, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("nats connection string: %v", err)
	}

	u, err := url.Parse(conn)
	if err != nil {
		t.Fatalf("parse nats connection string %q: %v", conn, err)
	}
	u.User = url.UserPassword(NatsUser, NatsPass)
	return u
}

// JetStreamTopic returns publisher and subscriber URLs for a memory-backed work queue stream
// on server.
func JetStreamTopic(server *url.URL, name string) (string, string) {
	stream := fmt.Sprintf("%s?jetstream=true&subject=%s&stream_name=%s&stream_retention=workqueue"+
		"&stream_storage=memory&stream_subjects=%s", server.String(), name, name, name)
	consumer := stream + fmt.Sprintf("&consumer_ack_policy=explicit&consumer_deliver_policy=all"+
		"&consumer_durable_name=%s&consumer_filter_subject=%s", name+"-consumer", name)
	return stream, consumer
}
