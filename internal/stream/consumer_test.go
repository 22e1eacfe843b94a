package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"solana-mirror/internal/solana"
)

const testTarget = "So11111111111111111111111111111111111111112"

var upgrader = websocket.Upgrader{}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func mustPubkey(t *testing.T, s string) solana.Pubkey {
	t.Helper()
	pk, err := solana.ParsePubkey(s)
	if err != nil {
		t.Fatalf("ParsePubkey: %v", err)
	}
	return pk
}

func TestConsumer_SubscribeAndDeliver(t *testing.T) {
	notification := `{"method":"transactionNotification","params":{"result":{"signature":"abc"}}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var req struct {
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		if req.Method != "transactionSubscribe" {
			t.Errorf("method: got %q", req.Method)
		}
		if len(req.Params) != 2 {
			t.Fatalf("params: got %d entries", len(req.Params))
		}
		filter, _ := req.Params[0].(map[string]interface{})
		mentions, _ := filter["mentions"].([]interface{})
		if len(mentions) != 1 || mentions[0] != testTarget {
			t.Errorf("mentions: got %v", mentions)
		}
		opts, _ := req.Params[1].(map[string]interface{})
		if opts["commitment"] != "processed" || opts["encoding"] != "base64" {
			t.Errorf("subscribe options: got %v", opts)
		}
		if opts["transactionDetails"] != "full" {
			t.Errorf("transactionDetails: got %v", opts["transactionDetails"])
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":42}`))
		conn.WriteMessage(websocket.TextMessage, []byte(notification))
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(Options{
		Endpoint: wsURL(server),
		Target:   mustPubkey(t, testTarget),
		Logger:   log.New(&strings.Builder{}, "", 0),
	})
	go c.Run(ctx)

	// Both the subscription confirmation and the notification come through;
	// classification is the receiver's job.
	for i := 0; i < 2; i++ {
		select {
		case raw := <-c.Events():
			if !json.Valid(raw) {
				t.Fatalf("message %d: invalid json: %s", i, raw)
			}
			if i == 1 && string(raw) != notification {
				t.Errorf("notification altered: %s", raw)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestConsumer_ReconnectsAfterDrop(t *testing.T) {
	var sessions atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}

		n := sessions.Add(1)
		if n == 1 {
			return // first session drops right after subscribing
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"params":{"result":{"signature":"after-reconnect"}}}`))
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(Options{
		Endpoint:       wsURL(server),
		Target:         mustPubkey(t, testTarget),
		Logger:         log.New(&strings.Builder{}, "", 0),
		ReconnectDelay: 10 * time.Millisecond,
	})
	go c.Run(ctx)

	select {
	case raw := <-c.Events():
		var n struct {
			Params struct {
				Result struct {
					Signature string `json:"signature"`
				} `json:"result"`
			} `json:"params"`
		}
		if err := json.Unmarshal(raw, &n); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if n.Params.Result.Signature != "after-reconnect" {
			t.Errorf("signature: got %q", n.Params.Result.Signature)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message after reconnect")
	}

	if sessions.Load() < 2 {
		t.Errorf("expected at least 2 sessions, got %d", sessions.Load())
	}
}

func TestConsumer_DiscardsInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`not json at all`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"ok":true}`))
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewConsumer(Options{
		Endpoint: wsURL(server),
		Target:   mustPubkey(t, testTarget),
		Logger:   log.New(&strings.Builder{}, "", 0),
	})
	go c.Run(ctx)

	select {
	case raw := <-c.Events():
		if string(raw) != `{"ok":true}` {
			t.Errorf("expected the invalid frame to be skipped, got %s", raw)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())

	c := NewConsumer(Options{
		Endpoint: wsURL(server),
		Target:   mustPubkey(t, testTarget),
		Logger:   log.New(&strings.Builder{}, "", 0),
	})

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, open := <-c.Events(); open {
		t.Error("events channel should be closed after Run returns")
	}
}
