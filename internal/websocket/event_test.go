package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"billingId": "BILL-202609-ABCD1234",
		"total":     "1250.00",
	}

	before := time.Now()
	evt := NewEvent(EventTypeCreated, EntityTypeBilling, payload)
	after := time.Now()

	assert.Equal(t, "billing.created", evt.Type)
	assert.Equal(t, EntityTypeBilling, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
	assert.Equal(t, time.UTC, evt.Timestamp.Location())
}

func TestEventConstructors(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{"created", BillingCreated(nil), "billing.created"},
		{"paid", BillingPaid(nil), "billing.paid"},
		{"finalized", BillingFinalized(nil), "billing.finalized"},
		{"dashboard", DashboardInvalidated(nil), "dashboard.invalidated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.event.Type)
		})
	}
}

func TestEvent_ToJSON(t *testing.T) {
	evt := BillingPaid(map[string]interface{}{"status": "fully_paid"})

	data, err := evt.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "billing.paid", decoded["type"])
	assert.Equal(t, "billing", decoded["entity"])
	assert.Equal(t, "fully_paid", decoded["payload"].(map[string]interface{})["status"])
	assert.Contains(t, decoded, "timestamp")
}
