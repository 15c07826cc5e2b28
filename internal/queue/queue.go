// Package queue publishes batch status-change events for downstream
// collaborators (notification senders, dashboards). The engine is a pure
// producer; consumers live in other services.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/batch-lifecycle/internal/domain"
)

// ExchangeName is the topic exchange carrying status-change events.
const ExchangeName = "batch.lifecycle"

// Publisher publishes status-change events.
type Publisher interface {
	Publish(ctx context.Context, msg StatusChangeMessage) error
	Close() error
}

// RoutingKey returns the routing key for a transition into the given status,
// e.g. batch.status.enrolling.
func RoutingKey(to domain.Status) string {
	return fmt.Sprintf("batch.status.%s", strings.ToLower(to.String()))
}
