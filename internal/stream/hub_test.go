package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tickDomain "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/domain/tick"
	snapshot_mock "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/infrastructure/redis/snapshot/mock"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/live"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/internal/metrics"
	logger_mock "github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/logger/mock"
	"github.com/Matheus-Bicalho-Sanches/UP-BlackBox-4.1-sub003/pkg/timeframe"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type hubFixture struct {
	hub       *Hub
	publisher *live.Publisher
	metrics   *metrics.Metrics
	server    *httptest.Server
}

func newHubFixture(t *testing.T, ctrl *gomock.Controller) *hubFixture {
	t.Helper()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	cache := snapshot_mock.NewMockCache(ctrl)
	cache.EXPECT().Latest(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	cache.EXPECT().StoreClosed(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	log := logger_mock.NewMockInterface(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	m := metrics.NewWith(prometheus.NewRegistry())
	publisher := live.NewPublisher(timeframe.NewClock(loc), cache, m, log)
	hub := NewHub(publisher, m, log)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)

	return &hubFixture{hub: hub, publisher: publisher, metrics: m, server: server}
}

func (f *hubFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForSubscriptions(t *testing.T, m *metrics.Metrics, want float64) {
	t.Helper()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ActiveSubscriptions) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SubscribeAndReceive(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newHubFixture(t, ctrl)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type:      TypeSubscribe,
		Symbol:    "AAA",
		Exchange:  "X",
		Timeframe: "1m",
	}))
	waitForSubscriptions(t, f.metrics, 1)

	loc, _ := time.LoadLocation("America/Sao_Paulo")
	f.publisher.OnTick(context.Background(), &tickDomain.Tick{
		Symbol:          "AAA",
		Exchange:        "X",
		Timestamp:       time.Date(2024, 3, 4, 10, 0, 5, 0, loc),
		Price:           100,
		Volume:          10,
		FinancialVolume: 1000,
	})

	msg := readMessage(t, conn)
	assert.Equal(t, TypeCandle, msg.Type)
	assert.Equal(t, "AAA", msg.Symbol)
	assert.Equal(t, "X", msg.Exchange)
	assert.Equal(t, "1m", msg.Timeframe)
	require.NotNil(t, msg.Data)
	assert.Equal(t, 100.0, msg.Data.Open)
	assert.Equal(t, 100.0, msg.Data.Close)
	assert.Equal(t, 10.0, msg.Data.Volume)
	assert.False(t, msg.Data.IsClosed)

	ts, err := time.Parse(time.RFC3339, msg.Data.Timestamp)
	require.NoError(t, err)
	assert.True(t, ts.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, loc)))
}

func TestHub_MalformedMessageKeepsConnectionOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newHubFixture(t, ctrl)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.NotEmpty(t, msg.Message)

	// The connection still answers application pings.
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypePing}))
	msg = readMessage(t, conn)
	assert.Equal(t, TypePong, msg.Type)
}

func TestHub_SubscribeInvalidTimeframe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newHubFixture(t, ctrl)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type:      TypeSubscribe,
		Symbol:    "AAA",
		Exchange:  "X",
		Timeframe: "7m",
	}))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.ActiveSubscriptions))
}

func TestHub_UnsubscribeStopsDelivery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newHubFixture(t, ctrl)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type:      TypeSubscribe,
		Symbol:    "AAA",
		Exchange:  "X",
		Timeframe: "1m",
	}))
	waitForSubscriptions(t, f.metrics, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type:      TypeUnsubscribe,
		Symbol:    "AAA",
		Exchange:  "X",
		Timeframe: "1m",
	}))
	waitForSubscriptions(t, f.metrics, 0)

	loc, _ := time.LoadLocation("America/Sao_Paulo")
	f.publisher.OnTick(context.Background(), &tickDomain.Tick{
		Symbol:    "AAA",
		Exchange:  "X",
		Timestamp: time.Date(2024, 3, 4, 10, 0, 5, 0, loc),
		Price:     100,
	})

	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var msg ServerMessage
	assert.Error(t, conn.ReadJSON(&msg))
}

func (f *hubFixture) anySession(t *testing.T) *Session {
	t.Helper()

	f.hub.mu.Lock()
	defer f.hub.mu.Unlock()
	for _, s := range f.hub.sessions {
		return s
	}
	t.Fatal("no live session")
	return nil
}

func TestHub_SubscribeAfterTeardownIsRefused(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newHubFixture(t, ctrl)
	f.dial(t)
	assert.Eventually(t, func() bool { return f.hub.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s := f.anySession(t)
	s.teardown()

	// A subscribe racing with disconnect must not land in any fan-out set.
	s.handleSubscribe(context.Background(), ClientMessage{
		Type:      TypeSubscribe,
		Symbol:    "AAA",
		Exchange:  "X",
		Timeframe: "1m",
	})

	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.ActiveSubscriptions))
}

func TestHub_DisconnectCleansUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newHubFixture(t, ctrl)
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type:      TypeSubscribe,
		Symbol:    "AAA",
		Exchange:  "X",
		Timeframe: "1m",
	}))
	waitForSubscriptions(t, f.metrics, 1)
	assert.Eventually(t, func() bool { return f.hub.SessionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	waitForSubscriptions(t, f.metrics, 0)
	assert.Eventually(t, func() bool { return f.hub.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.ActiveConnections) == 0
	}, 2*time.Second, 10*time.Millisecond)
}
