package websocket

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id        string
	gymID     uuid.UUID
	messages  [][]byte
	mu        sync.Mutex
	closed    bool
	full      bool
	closeCode int
}

func newMockClient(id string, gymID uuid.UUID) *mockClient {
	return &mockClient{
		id:       id,
		gymID:    gymID,
		messages: make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) GymID() uuid.UUID {
	return m.gymID
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	if m.full {
		return ErrClientSlow
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	return m.CloseWith(websocket.CloseNormalClosure, "")
}

func (m *mockClient) CloseWith(code int, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		m.closeCode = code
	}
	return nil
}

func (m *mockClient) CloseCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCode
}

type recordingHubMetrics struct {
	mu      sync.Mutex
	clients int
	drops   map[string]int
}

func (r *recordingHubMetrics) SetWebSocketClients(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = n
}

func (r *recordingHubMetrics) RecordWebSocketDrop(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drops == nil {
		r.drops = make(map[string]int)
	}
	r.drops[reason]++
}

func (m *mockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	gymA, gymB := uuid.New(), uuid.New()

	client1 := newMockClient("client-1", gymA)
	client2 := newMockClient("client-2", gymA)
	client3 := newMockClient("client-3", gymB)

	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)

	assert.Equal(t, 2, hub.ClientCount(gymA))
	assert.Equal(t, 1, hub.ClientCount(gymB))
	assert.Equal(t, 0, hub.ClientCount(uuid.New()))
	assert.Equal(t, 3, hub.TotalClientCount())

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount(gymA))

	hub.Unregister(client2)
	hub.Unregister(client3)
	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestHub_Broadcast_GymIsolation(t *testing.T) {
	hub := NewHub()
	gymA, gymB := uuid.New(), uuid.New()

	clientA1 := newMockClient("client-a1", gymA)
	clientA2 := newMockClient("client-a2", gymA)
	clientB := newMockClient("client-b", gymB)

	hub.Register(clientA1)
	hub.Register(clientA2)
	hub.Register(clientB)

	hub.Broadcast(gymA, BillingCreated(map[string]interface{}{"billingId": "BILL-202609-00000001"}))

	assert.Len(t, clientA1.GetMessages(), 1)
	assert.Len(t, clientA2.GetMessages(), 1)
	assert.Len(t, clientB.GetMessages(), 0, "other gym must not receive the event")
}

func TestHub_Broadcast_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	gymID := uuid.New()

	healthy := newMockClient("healthy", gymID)
	slow := newMockClient("slow", gymID)
	slow.full = true

	hub.Register(healthy)
	hub.Register(slow)

	hub.Broadcast(gymID, BillingPaid(nil))

	assert.Len(t, healthy.GetMessages(), 1)
	assert.True(t, slow.IsClosed())
	assert.Equal(t, websocket.ClosePolicyViolation, slow.CloseCode())
	assert.Equal(t, 1, hub.ClientCount(gymID))
}

func TestHub_Broadcast_RemovesClosedClient(t *testing.T) {
	hub := NewHub()
	metrics := &recordingHubMetrics{}
	hub.SetMetrics(metrics)
	gymID := uuid.New()

	gone := newMockClient("gone", gymID)
	hub.Register(gone)
	gone.Close()

	hub.Broadcast(gymID, BillingPaid(nil))

	assert.Equal(t, 0, hub.ClientCount(gymID))
	assert.Equal(t, 1, metrics.drops[DropReasonClosed])
	assert.Zero(t, metrics.drops[DropReasonSlow])
	assert.Equal(t, 0, metrics.clients)
}

func TestHub_TryRegister_EnforcesGymLimit(t *testing.T) {
	hub := NewHub()
	metrics := &recordingHubMetrics{}
	hub.SetMetrics(metrics)
	gymA, gymB := uuid.New(), uuid.New()

	assert.True(t, hub.TryRegister(newMockClient("a1", gymA), 2))
	assert.True(t, hub.TryRegister(newMockClient("a2", gymA), 2))
	assert.False(t, hub.TryRegister(newMockClient("a3", gymA), 2))
	assert.True(t, hub.TryRegister(newMockClient("b1", gymB), 2), "limit is per gym")
	assert.True(t, hub.TryRegister(newMockClient("a4", gymA), 0), "zero limit is unlimited")

	assert.Equal(t, 3, hub.ClientCount(gymA))
	assert.Equal(t, 4, metrics.clients)
	assert.Equal(t, 1, metrics.drops[DropReasonLimit])
}

func TestHub_Register_SameClientTwiceCountsOnce(t *testing.T) {
	hub := NewHub()
	c := newMockClient("c1", uuid.New())

	hub.Register(c)
	hub.Register(c)

	assert.Equal(t, 1, hub.TotalClientCount())
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()
	gyms := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	var wg sync.WaitGroup
	clientCount := 50

	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i), gyms[i%len(gyms)])
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, clientCount, hub.TotalClientCount())

	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			hub.Broadcast(gyms[idx%len(gyms)], BillingFinalized(map[string]interface{}{"n": idx}))
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		hub.Unregister(newMockClient("client-1", uuid.New()))
	})
}

func TestHub_BroadcastToEmptyGym(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		hub.Broadcast(uuid.New(), BillingCreated(nil))
	})
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub()
	c1 := newMockClient("c1", uuid.New())
	c2 := newMockClient("c2", uuid.New())
	hub.Register(c1)
	hub.Register(c2)

	metrics := &recordingHubMetrics{}
	hub.SetMetrics(metrics)

	hub.CloseAll()

	assert.True(t, c1.IsClosed())
	assert.True(t, c2.IsClosed())
	assert.Equal(t, websocket.CloseGoingAway, c1.CloseCode())
	assert.Equal(t, 0, hub.TotalClientCount())
	assert.Equal(t, 2, metrics.drops[DropReasonShutdown])
}
