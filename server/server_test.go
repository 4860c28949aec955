package server

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soukly/agentcore/agent"
	"github.com/soukly/agentcore/flows"
	"github.com/soukly/agentcore/llm"
	"github.com/soukly/agentcore/memory"
	sqlitestore "github.com/soukly/agentcore/memory/factstore/sqlite"
	chromemindex "github.com/soukly/agentcore/memory/index/chromem"
	"github.com/soukly/agentcore/tools"
)

const testSecret = "test-secret"

// downClient fails every completion; the paths under test must not need the
// model.
type downClient struct{}

func (downClient) Complete(context.Context, llm.Request) (*llm.Response, error) {
	return nil, errors.New("model offline")
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (stubEmbedder) Dimensions() int { return 3 }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlitestore.Open(t.TempDir() + "/facts.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	index, err := chromemindex.New()
	require.NoError(t, err)

	mgr := memory.NewManager(store, index, stubEmbedder{})
	catalog := tools.NewMemCatalog()
	registry := tools.NewRegistry(tools.SellerTools(catalog)...)
	dispatcher := tools.NewDispatcher(registry, nil)
	runner := agent.NewRunner(downClient{}, mgr, dispatcher, registry)

	srv := New(Config{JWTSecret: testSecret}, runner, mgr,
		memory.NewBufferSet(12), flows.NewRegistry(time.Minute),
		dispatcher, nil, store, nil, nil)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) serverFrame {
	t.Helper()
	var f serverFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func token(t *testing.T, sellerID string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"seller_id": sellerID}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestHandshakeInitAndReady(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(handshakeFrame{Token: token(t, "s1")}))

	init := readFrame(t, conn)
	assert.Equal(t, frameChatInit, init.Type)
	assert.NotEmpty(t, init.ChatID, "server must allocate a chat id")

	ready := readFrame(t, conn)
	assert.Equal(t, frameReady, ready.Type)
}

func TestHandshakeResumesChat(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(handshakeFrame{Token: token(t, "s1"), ChatID: "chat-7"}))

	init := readFrame(t, conn)
	assert.Equal(t, frameChatResume, init.Type)
	assert.Equal(t, "chat-7", init.ChatID)
	assert.Equal(t, frameReady, readFrame(t, conn).Type)
}

func TestHandshakeRepromptsOnBadInput(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	// Malformed JSON, then a bad token, then a good one. The connection
	// survives all three.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	assert.Equal(t, frameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(handshakeFrame{Token: "bogus"}))
	assert.Equal(t, frameError, readFrame(t, conn).Type)

	require.NoError(t, conn.WriteJSON(handshakeFrame{Token: token(t, "s1")}))
	assert.Equal(t, frameChatInit, readFrame(t, conn).Type)
	assert.Equal(t, frameReady, readFrame(t, conn).Type)
}

func TestGuidedFlowOverWire(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(handshakeFrame{Token: token(t, "s1")}))
	readFrame(t, conn) // chat_init
	readFrame(t, conn) // ready

	send := func(msg string) serverFrame {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		return readFrame(t, conn)
	}

	assert.Equal(t, "Product title?", send("create product").Content)
	assert.Equal(t, "Product description?", send("Running Shoes").Content)
	assert.Equal(t, "Product price?", send("Lightweight running shoes").Content)
	assert.Equal(t, "Stock quantity?", send("1999").Content)

	final := send("10")
	assert.Equal(t, frameMessage, final.Type)
	assert.Contains(t, final.Content, "Running Shoes")
	assert.Contains(t, final.Content, "$1999.00")
	assert.Contains(t, final.Content, "10 in stock")
}

func TestDashboardShortcutOverWire(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts)

	require.NoError(t, conn.WriteJSON(handshakeFrame{Token: token(t, "s1")}))
	readFrame(t, conn)
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("show dashboard")))
	frame := readFrame(t, conn)
	assert.Equal(t, frameMessage, frame.Type)
	assert.Contains(t, frame.Content, "0 products")
}
