package realtime_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/farmsight-go/pkg/realtime"
)

// wsServer is a test WebSocket endpoint that pushes queued frames to every
// connection it accepts.
type wsServer struct {
	*httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
	dials int
	open  int
}

func newWSServer(t *testing.T) *wsServer {
	t.Helper()
	s := &wsServer{}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.dials++
		s.open++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.open--
			s.mu.Unlock()
		}()

		// Keep reading so pings and client frames are consumed.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http")
}

func (s *wsServer) push(t *testing.T, frame string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.conns, "no connection to push to")
	conn := s.conns[len(s.conns)-1]
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func (s *wsServer) dialCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}

func (s *wsServer) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

func (s *wsServer) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		conn.Close()
	}
	s.conns = nil
}

func waitForState(t *testing.T, c *realtime.Client, want realtime.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return c.State() == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClientConnectAndReceive(t *testing.T) {
	server := newWSServer(t)
	client := realtime.NewClient(&realtime.Config{URL: server.url()})
	defer client.Close()

	received := make(chan *realtime.Message, 8)
	unsubscribe := client.Subscribe(func(msg *realtime.Message) {
		received <- msg
	})
	defer unsubscribe()

	client.Connect()
	waitForState(t, client, realtime.StateOpen)
	assert.NoError(t, client.LastError())

	server.push(t, `{"type":"kpi_update","payload":{"yield":42}}`)

	select {
	case msg := <-received:
		assert.Equal(t, realtime.TypeKPIUpdate, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("message never reached subscriber")
	}
}

func TestClientDropsInvalidMessages(t *testing.T) {
	server := newWSServer(t)
	client := realtime.NewClient(&realtime.Config{URL: server.url()})
	defer client.Close()

	received := make(chan *realtime.Message, 8)
	client.Subscribe(func(msg *realtime.Message) {
		received <- msg
	})

	client.Connect()
	waitForState(t, client, realtime.StateOpen)

	// Invalid frames are dropped before fan-out; the valid one after them
	// still arrives, proving the connection survived.
	server.push(t, `not-json`)
	server.push(t, `{"payload":{}}`)
	server.push(t, `{"type":"surprise_update"}`)
	server.push(t, `{"type":"alert_new","payload":{}}`)

	select {
	case msg := <-received:
		assert.Equal(t, realtime.TypeAlertNew, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("valid message never arrived")
	}
	assert.Empty(t, received)
}

func TestClientReconnects(t *testing.T) {
	server := newWSServer(t)
	client := realtime.NewClient(&realtime.Config{
		URL:            server.url(),
		ReconnectDelay: 20 * time.Millisecond,
	})
	defer client.Close()

	client.Connect()
	waitForState(t, client, realtime.StateOpen)
	require.Equal(t, 1, server.dialCount())

	// Kill the connection server-side; the client schedules one reconnect.
	server.closeConns()
	require.Eventually(t, func() bool {
		return server.dialCount() == 2 && client.State() == realtime.StateOpen
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClientConcurrentConnectsKeepOneSocket(t *testing.T) {
	server := newWSServer(t)

	// A slow dial widens the window in which a second Connect can overlap
	// the first; the losing dial must discard its socket.
	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		time.Sleep(100 * time.Millisecond)
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}

	client := realtime.NewClient(&realtime.Config{
		URL:    server.url(),
		Dialer: &dialer,
	})
	defer client.Close()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Connect()
		}()
	}
	wg.Wait()
	waitForState(t, client, realtime.StateOpen)

	require.Equal(t, 2, server.dialCount())
	require.Eventually(t, func() bool {
		return server.openCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The survivor stays up; no second socket lingers.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, server.openCount())
	assert.Equal(t, realtime.StateOpen, client.State())
}

func TestClientUnsubscribe(t *testing.T) {
	server := newWSServer(t)
	client := realtime.NewClient(&realtime.Config{URL: server.url()})
	defer client.Close()

	received := make(chan *realtime.Message, 8)
	unsubscribe := client.Subscribe(func(msg *realtime.Message) {
		received <- msg
	})

	client.Connect()
	waitForState(t, client, realtime.StateOpen)

	unsubscribe()
	server.push(t, `{"type":"kpi_update"}`)

	select {
	case <-received:
		t.Fatal("unsubscribed subscriber was invoked")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientDisconnectStopsReconnect(t *testing.T) {
	server := newWSServer(t)
	client := realtime.NewClient(&realtime.Config{
		URL:            server.url(),
		ReconnectDelay: 20 * time.Millisecond,
	})
	defer client.Close()

	client.Connect()
	waitForState(t, client, realtime.StateOpen)

	client.Disconnect()
	assert.Equal(t, realtime.StateDisconnected, client.State())

	// No reconnect fires after an explicit disconnect.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, server.dialCount())
	assert.Equal(t, realtime.StateDisconnected, client.State())
}

func TestClientCloseIsFinal(t *testing.T) {
	server := newWSServer(t)
	client := realtime.NewClient(&realtime.Config{URL: server.url()})

	client.Connect()
	waitForState(t, client, realtime.StateOpen)

	client.Close()
	assert.Equal(t, realtime.StateDisconnected, client.State())

	// Connect after Close is a no-op.
	client.Connect()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, realtime.StateDisconnected, client.State())
	assert.Equal(t, 1, server.dialCount())
}

func TestClientDialFailure(t *testing.T) {
	client := realtime.NewClient(&realtime.Config{
		URL:            "ws://127.0.0.1:1/nope",
		ReconnectDelay: time.Hour,
	})
	defer client.Close()

	client.Connect()
	assert.Equal(t, realtime.StateDisconnected, client.State())
	assert.Error(t, client.LastError())
}

func TestClientSendWhileClosedIsDropped(t *testing.T) {
	client := realtime.NewClient(&realtime.Config{URL: "ws://127.0.0.1:1/nope"})
	defer client.Close()

	// Must not panic or block without a connection.
	client.Send(map[string]string{"type": "ping"})
}
