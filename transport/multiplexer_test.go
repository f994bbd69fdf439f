package transport

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"
)

// startEchoServer accepts one connection and replies to each decoded
// request using the supplied handler, preserving FIFO order.
func startEchoServer(t *testing.T, handler func(req map[string]interface{}) response) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		dec := json.NewDecoder(conn)
		enc := json.NewEncoder(conn)
		for {
			var req map[string]interface{}
			if err := dec.Decode(&req); err != nil {
				return
			}
			resp := handler(req)
			if err := enc.Encode(resp); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func TestMultiplexer_SendReceivesResult(t *testing.T) {
	addr, stop := startEchoServer(t, func(req map[string]interface{}) response {
		id := int64(req["id"].(float64))
		return response{ID: id, Status: "ok", Result: map[string]interface{}{"echo": req["type"]}}
	})
	defer stop()

	m := NewMultiplexer(addr, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Close()

	result, err := m.Send(ctx, "get_scene_info", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	m2, ok := result.(map[string]interface{})
	if !ok || m2["echo"] != "get_scene_info" {
		t.Errorf("result = %+v", result)
	}
}

func TestMultiplexer_SendReturnsRemoteError(t *testing.T) {
	addr, stop := startEchoServer(t, func(req map[string]interface{}) response {
		id := int64(req["id"].(float64))
		return response{ID: id, Status: "error", Error: "boom"}
	})
	defer stop()

	m := NewMultiplexer(addr, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Close()

	_, err := m.Send(ctx, "get_scene_info", nil)
	if err == nil {
		t.Fatal("expected remote error")
	}
}

func TestMultiplexer_FIFOCorrelation(t *testing.T) {
	addr, stop := startEchoServer(t, func(req map[string]interface{}) response {
		id := int64(req["id"].(float64))
		return response{ID: id, Status: "ok", Result: req["params"]}
	})
	defer stop()

	m := NewMultiplexer(addr, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer m.Close()

	type outcome struct {
		result interface{}
		err    error
	}
	results := make(chan outcome, 3)
	for i := 0; i < 3; i++ {
		go func(n int) {
			res, err := m.Send(ctx, "get_scene_info", map[string]interface{}{"n": n})
			results <- outcome{result: res, err: err}
		}(i)
	}

	for i := 0; i < 3; i++ {
		out := <-results
		if out.err != nil {
			t.Errorf("unexpected error: %v", out.err)
		}
	}
}

// TestMultiplexer_TimeoutReconciliation covers spec.md §8 scenario 4: the
// first of three FIFO-sent requests times out client-side, and the remote
// host's responses for all three (including the now-stale first one)
// arrive afterward, in order. The stale response must be discarded and the
// other two must reach their own callers.
func TestMultiplexer_TimeoutReconciliation(t *testing.T) {
	m := NewMultiplexer("", nil)

	reqs := make([]*PendingRequest, 3)
	for i := range reqs {
		reqs[i] = &PendingRequest{ID: int64(i + 1), resultCh: make(chan sendOutcome, 1)}
		m.pending.push(reqs[i])
	}
	m.expectedResponseID = 1

	m.markTimedOut(1)
	if !m.timedOut[1] {
		t.Fatal("expected id 1 to be marked timed out")
	}
	if m.expectedResponseID != 2 {
		t.Fatalf("expectedResponseID = %d, want 2 after timing out the head", m.expectedResponseID)
	}

	m.dispatchResponse(&response{ID: 1, Status: "ok", Result: "stale"})
	select {
	case out := <-reqs[0].resultCh:
		t.Fatalf("request 1 should not receive a result after timing out, got %+v", out)
	default:
	}
	if _, stillTimedOut := m.timedOut[1]; stillTimedOut {
		t.Error("stale response for timed-out id should clear the timedOut entry")
	}

	m.dispatchResponse(&response{ID: 2, Status: "ok", Result: "second"})
	select {
	case out := <-reqs[1].resultCh:
		if out.value != "second" {
			t.Errorf("request 2 got %+v, want \"second\"", out.value)
		}
	default:
		t.Fatal("request 2 never received its response")
	}

	m.dispatchResponse(&response{ID: 3, Status: "ok", Result: "third"})
	select {
	case out := <-reqs[2].resultCh:
		if out.value != "third" {
			t.Errorf("request 3 got %+v, want \"third\"", out.value)
		}
	default:
		t.Fatal("request 3 never received its response")
	}
}

// TestMultiplexer_OutOfOrderResponsesMatchByID covers genuine (non-timeout)
// out-of-order responses: the remote host answers request 2 before request
// 1. Each response must be delivered to the request it actually answers,
// never to whichever request happens to be at the head of the queue.
func TestMultiplexer_OutOfOrderResponsesMatchByID(t *testing.T) {
	m := NewMultiplexer("", nil)

	req1 := &PendingRequest{ID: 1, resultCh: make(chan sendOutcome, 1)}
	req2 := &PendingRequest{ID: 2, resultCh: make(chan sendOutcome, 1)}
	m.pending.push(req1)
	m.pending.push(req2)
	m.expectedResponseID = 1

	m.dispatchResponse(&response{ID: 2, Status: "ok", Result: "second"})

	select {
	case out := <-req1.resultCh:
		t.Fatalf("request 1 must not receive request 2's response, got %+v", out)
	default:
	}
	select {
	case out := <-req2.resultCh:
		if out.value != "second" {
			t.Errorf("request 2 got %+v, want \"second\"", out.value)
		}
	default:
		t.Fatal("request 2 never received its response")
	}

	m.dispatchResponse(&response{ID: 1, Status: "ok", Result: "first"})
	select {
	case out := <-req1.resultCh:
		if out.value != "first" {
			t.Errorf("request 1 got %+v, want \"first\"", out.value)
		}
	default:
		t.Fatal("request 1 never received its response")
	}
}

func TestMultiplexer_QueueFullReturnsError(t *testing.T) {
	m := NewMultiplexer("127.0.0.1:1", nil) // nothing listening, writer never drains
	m.queueCapacity = 1
	m.writeQueue = make(chan *queuedSend, 1)
	m.writeQueue <- &queuedSend{req: &PendingRequest{resultCh: make(chan sendOutcome, 1)}}

	_, err := m.Send(context.Background(), "get_scene_info", nil)
	if err == nil {
		t.Fatal("expected queue-full error")
	}
}
