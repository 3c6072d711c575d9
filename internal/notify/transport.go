// Package notify delivers turn notifications and drives the retry loop
// over the scheduler when delivery fails.
package notify

import (
	"context"
	"log"
	"math/rand"
	"sync"

	"turnq/internal/models"
)

const (
	TypeYourTurn    = "YOUR_TURN"
	TypeJoinSuccess = "JOIN_SUCCESS"
	TypeJoinFailure = "JOIN_FAILURE"
)

// Transport is the delivery channel (email, SMS, push...). The core only
// consumes the boolean outcome; how the message travels is opaque.
// A false return without an error is a transient delivery failure.
type Transport interface {
	Send(ctx context.Context, client *models.Client, notifType, message string) (bool, error)
}

// SimulatedTransport mimics a flaky channel with a fixed success rate.
// The default mirrors the roughly-90% delivery rate of a healthy SMS
// gateway.
type SimulatedTransport struct {
	mu          sync.Mutex
	rng         *rand.Rand
	successRate float64
}

func NewSimulatedTransport(successRate float64, seed int64) *SimulatedTransport {
	if successRate <= 0 || successRate > 1 {
		successRate = 0.9
	}
	return &SimulatedTransport{
		rng:         rand.New(rand.NewSource(seed)),
		successRate: successRate,
	}
}

func (t *SimulatedTransport) Send(_ context.Context, client *models.Client, notifType, message string) (bool, error) {
	t.mu.Lock()
	delivered := t.rng.Float64() < t.successRate
	t.mu.Unlock()

	if delivered {
		log.Printf("notify: sent type=%s to=%s (%s): %s", notifType, client.Name, client.Email, message)
	} else {
		log.Printf("notify: delivery failed type=%s to=%s (%s)", notifType, client.Name, client.Email)
	}
	return delivered, nil
}
