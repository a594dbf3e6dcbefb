package websocket

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	gymID := uuid.New()

	client := newMockClient("client-1", gymID)
	hub.Register(client)

	var publisher EventPublisher = hub
	publisher.Publish(gymID, BillingPaid(map[string]interface{}{"billingId": "BILL-202609-ABCD1234"}))

	assert.Len(t, client.GetMessages(), 1)
}

func TestNoOpPublisher_Publish(t *testing.T) {
	publisher := &NoOpPublisher{}

	assert.NotPanics(t, func() {
		publisher.Publish(uuid.New(), BillingCreated(nil))
	})
}
