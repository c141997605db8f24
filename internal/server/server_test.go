package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/canvasync/internal/engine"
	"github.com/roach88/canvasync/internal/model"
	"github.com/roach88/canvasync/internal/testutil"
)

func shape(id string, z float64) model.Element {
	return model.Element{
		ID:     id,
		Kind:   model.KindShape,
		E:      10,
		ZOrder: model.Float(z),
		Props: model.Props{
			Width:  100,
			Height: 100,
			Shape:  &model.ShapeProps{Shape: "rect", Fill: "#fff"},
		},
	}
}

func startServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	eng, err := engine.New(engine.Config{
		Surface: model.Size{Width: 960, Height: 540},
		Project: model.Size{Width: 1920, Height: 1080},
	}, testutil.NewFakeSampler(),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(engine.NewFixedGenerator("session-1")),
	)
	require.NoError(t, err)

	_, err = eng.RebuildScene(context.Background(), []model.Element{shape("a", 1), shape("b", 2)}, 0, engine.RebuildOptions{Clean: true})
	require.NoError(t, err)

	s := New(Config{Addr: "127.0.0.1:0"}, eng)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s, eng
}

func dial(t *testing.T, s *Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendCommand(t *testing.T, ctx context.Context, conn *websocket.Conn, cmd Command) {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestServer_Hello(t *testing.T) {
	s, _ := startServer(t)
	conn, ctx := dial(t, s)

	msg := readMessage(t, ctx, conn)
	require.Equal(t, MessageTypeHello, msg.Type)

	var hello HelloData
	require.NoError(t, json.Unmarshal(msg.Data, &hello))
	assert.Equal(t, "session-1", hello.Session)
	assert.Equal(t, []string{"a", "b"}, hello.Order)
	assert.Equal(t, 0.5, hello.Metadata.ScaleX)

	assert.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestServer_CommandBroadcastsUpdate(t *testing.T) {
	s, eng := startServer(t)
	conn, ctx := dial(t, s)
	readMessage(t, ctx, conn)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	sendCommand(t, ctx, conn, Command{Command: "front", ID: "a"})

	msg := readMessage(t, ctx, conn)
	require.Equal(t, MessageTypeUpdate, msg.Type)

	var u struct {
		Seq       int64             `json:"seq"`
		Kind      engine.UpdateKind `json:"kind"`
		ElementID string            `json:"element_id"`
		Payload   engine.Move       `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &u))
	assert.Equal(t, engine.UpdateZOrderChanged, u.Kind)
	assert.Equal(t, "a", u.ElementID)
	assert.Equal(t, 3.0, u.Payload.ZOrder)
	assert.Equal(t, []string{"b", "a"}, eng.Order())
}

func TestServer_CommandErrors(t *testing.T) {
	s, _ := startServer(t)
	conn, ctx := dial(t, s)
	readMessage(t, ctx, conn)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"unknown command", `{"command":"sideways","id":"a"}`, "unknown command"},
		{"missing element", `{"command":"front","id":"ghost"}`, "NOT_MATERIALIZED"},
		{"malformed", `{"command":`, "malformed command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(tt.raw)))
			msg := readMessage(t, ctx, conn)
			require.Equal(t, MessageTypeError, msg.Type)
			var e ErrorData
			require.NoError(t, json.Unmarshal(msg.Data, &e))
			assert.Contains(t, e.Message, tt.want)
		})
	}
}

func TestServer_Health(t *testing.T) {
	s, _ := startServer(t)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "session-1", body["session"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestServer_DisconnectRemovesClient(t *testing.T) {
	s, _ := startServer(t)
	conn, ctx := dial(t, s)
	readMessage(t, ctx, conn)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return s.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_StopWithoutStart(t *testing.T) {
	eng, err := engine.New(engine.Config{
		Surface: model.Size{Width: 10, Height: 10},
		Project: model.Size{Width: 10, Height: 10},
	}, testutil.NewFakeSampler())
	require.NoError(t, err)

	s := New(Config{}, eng)
	assert.Equal(t, ":8080", s.Addr())
	assert.NoError(t, s.Stop())
}
