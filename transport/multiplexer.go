// Package transport implements the TCP Multiplexer (§4.A): a
// request/response RPC surface — send(commandType, params) -> result|error
// — over one persistent duplex connection to a remote host that has no
// built-in request framing beyond back-to-back JSON objects.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilnforge/meshpilot/core"
)

// Per-command timeout tiers (§4.A design defaults).
const (
	TimeoutLongRunning = 90 * time.Second // downloads/searches/asset jobs: 60-120s
	TimeoutMedium      = 30 * time.Second // job creation/polling/catalog searches
	TimeoutDefault     = 15 * time.Second // everything else
)

// longRunningCommands and mediumCommands classify a commandType into its
// timeout tier; anything not listed gets TimeoutDefault.
var longRunningCommands = map[string]bool{
	"download_sketchfab_model": true,
	"download_polyhaven_asset": true,
	"search_sketchfab_models":  true,
	"import_generated_asset":   true,
}

var mediumCommands = map[string]bool{
	"create_rodin_job":        true,
	"poll_rodin_job_status":   true,
	"search_polyhaven_assets": true,
}

func timeoutForCommand(commandType string) time.Duration {
	if longRunningCommands[commandType] {
		return TimeoutLongRunning
	}
	if mediumCommands[commandType] {
		return TimeoutMedium
	}
	return TimeoutDefault
}

const (
	defaultQueueCapacity    = 1024
	defaultReconnectBackoff = 4 * time.Second
)

type queuedSend struct {
	req         *PendingRequest
	commandType string
	params      map[string]interface{}
}

// response is the wire shape of a reply frame. Id is optional — some
// remote hosts echo it, some don't; a non-zero id is matched by id, and
// only a reply without one falls back to FIFO order (the queue head).
type response struct {
	ID     int64       `json:"id,omitempty"`
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Multiplexer is the single persistent connection to the remote host. All
// sends are serialized through one writer goroutine; one reader goroutine
// processes the receive buffer. Callers invoke Send from any goroutine.
type Multiplexer struct {
	addr   string
	logger core.Logger

	mu                  sync.Mutex
	conn                net.Conn
	pending             *pendingQueue
	expectedResponseID  int64
	timedOut            map[int64]bool
	nextID              int64

	writeQueue chan *queuedSend
	connected  atomic.Bool
	closed     atomic.Bool

	reconnectBackoff time.Duration
	queueCapacity    int
}

// NewMultiplexer creates a multiplexer targeting addr. Connect must be
// called before Send will succeed.
func NewMultiplexer(addr string, logger core.Logger) *Multiplexer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("core/transport")
	}
	m := &Multiplexer{
		addr:             addr,
		logger:           logger,
		pending:          newPendingQueue(),
		timedOut:         make(map[int64]bool),
		reconnectBackoff: defaultReconnectBackoff,
		queueCapacity:    defaultQueueCapacity,
	}
	m.writeQueue = make(chan *queuedSend, m.queueCapacity)
	return m
}

// Connect dials the remote host and starts the writer/reader goroutines.
// It also starts the background reconnect loop, which redials on
// disconnect after a fixed backoff.
func (m *Multiplexer) Connect(ctx context.Context) error {
	if err := m.dial(ctx); err != nil {
		return err
	}
	go m.reconnectLoop(ctx)
	return nil
}

func (m *Multiplexer) dial(ctx context.Context) error {
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", m.addr)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", m.addr, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	m.connected.Store(true)

	m.logger.Info("transport connected", map[string]interface{}{"addr": m.addr})

	go m.writerLoop(ctx, conn)
	go m.readerLoop(ctx, conn)

	// Offer every still-queued request to the fresh connection by simply
	// letting the writer loop drain writeQueue as usual; nothing further
	// is required here since queued (not-yet-sent) requests were never
	// removed from writeQueue.
	return nil
}

// reconnectLoop watches for disconnection and redials after a fixed
// backoff, failing every in-flight request with ErrConnectionReset first.
func (m *Multiplexer) reconnectLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if m.closed.Load() {
			return
		}
		if m.connected.Load() {
			time.Sleep(200 * time.Millisecond)
			continue
		}

		m.failAllPending(core.ErrConnectionReset)

		m.logger.Warn("transport disconnected, reconnecting", map[string]interface{}{
			"backoff": m.reconnectBackoff.String(),
		})
		select {
		case <-time.After(m.reconnectBackoff):
		case <-ctx.Done():
			return
		}
		if err := m.dial(ctx); err != nil {
			m.logger.Warn("transport reconnect failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// failAllPending cascades a connection failure through every pending
// request in a single pass (§4.A "ConnectionReset cascades... in a single
// pass").
func (m *Multiplexer) failAllPending(err error) {
	m.mu.Lock()
	reqs := m.pending.all()
	m.pending = newPendingQueue()
	m.expectedResponseID = 0
	m.mu.Unlock()

	for _, req := range reqs {
		req.resultCh <- sendOutcome{err: err}
	}
}

func (m *Multiplexer) writerLoop(ctx context.Context, conn net.Conn) {
	enc := json.NewEncoder(conn)
	for {
		select {
		case <-ctx.Done():
			return
		case qs, ok := <-m.writeQueue:
			if !ok {
				return
			}
			if !m.connected.Load() {
				// Connection dropped between enqueue and send; this
				// request will be failed by failAllPending once it is
				// observed pending, but it never made it onto the wire,
				// so fail it directly here instead.
				qs.req.resultCh <- sendOutcome{err: core.ErrConnectionReset}
				continue
			}

			m.mu.Lock()
			qs.req.SentAt = time.Now()
			m.pending.push(qs.req)
			if m.expectedResponseID == 0 {
				if head, ok := m.pending.head(); ok {
					m.expectedResponseID = head
				}
			}
			m.mu.Unlock()

			frame := map[string]interface{}{
				"id":   qs.req.ID,
				"type": qs.commandType,
				"params": qs.params,
			}
			if err := enc.Encode(frame); err != nil {
				m.logger.Error("transport write failed", map[string]interface{}{"error": err.Error()})
				m.connected.Store(false)
				conn.Close()
				return
			}
		}
	}
}

func (m *Multiplexer) readerLoop(ctx context.Context, conn net.Conn) {
	parser := NewFrameParser()
	buf := make([]byte, 64*1024)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := conn.Read(buf)
		if err != nil {
			m.logger.Warn("transport read failed", map[string]interface{}{"error": err.Error()})
			m.connected.Store(false)
			conn.Close()
			return
		}
		parser.Feed(buf[:n])

		for {
			frame, ok := parser.Next()
			if !ok {
				// An incomplete object stays buffered until more bytes
				// arrive; a buffer with no '{' was already cleared by Next.
				break
			}

			var resp response
			if jsonErr := json.Unmarshal(bytes.TrimSpace(frame), &resp); jsonErr != nil {
				parser.Recover()
				continue
			}
			m.dispatchResponse(&resp)
		}
	}
}

// dispatchResponse correlates one decoded frame against the pending queue
// following the FIFO correlation discipline (§4.A): frames that echo an id
// are matched to that exact pending request, never to whatever happens to
// be at the head of the queue. Only a frame with no id at all (some remote
// hosts don't echo one) falls back to FIFO order.
func (m *Multiplexer) dispatchResponse(resp *response) {
	m.mu.Lock()

	targetID := resp.ID
	if targetID == 0 {
		if head, ok := m.pending.head(); ok {
			targetID = head
		}
	} else if targetID != m.expectedResponseID && m.timedOut[targetID] {
		delete(m.timedOut, targetID)
		m.mu.Unlock()
		return
	}

	req, ok := m.pending.get(targetID)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.pending.remove(targetID)
	if head, ok := m.pending.head(); ok {
		m.expectedResponseID = head
	} else {
		m.expectedResponseID = 0
	}
	m.mu.Unlock()

	if resp.Status == "error" {
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		req.resultCh <- sendOutcome{err: fmt.Errorf("%w: %s", core.ErrRemoteError, msg)}
		return
	}

	if resp.Result != nil {
		req.resultCh <- sendOutcome{value: resp.Result}
		return
	}
	req.resultCh <- sendOutcome{value: resp}
}

// Send dispatches one command and blocks until a correlated response
// arrives, the per-command deadline fires, or the connection resets.
func (m *Multiplexer) Send(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	if m.closed.Load() {
		return nil, core.ErrNotConnected
	}

	id := atomic.AddInt64(&m.nextID, 1)
	timeout := timeoutForCommand(commandType)
	req := &PendingRequest{
		ID:              id,
		CommandType:     commandType,
		TimeoutDeadline: time.Now().Add(timeout),
		resultCh:        make(chan sendOutcome, 1),
	}

	select {
	case m.writeQueue <- &queuedSend{req: req, commandType: commandType, params: params}:
	default:
		return nil, core.ErrQueueFull
	}

	select {
	case out := <-req.resultCh:
		return out.value, out.err
	case <-time.After(timeout):
		m.markTimedOut(id)
		return nil, core.ErrTimeout
	case <-ctx.Done():
		m.markTimedOut(id)
		return nil, ctx.Err()
	}
}

// markTimedOut moves a pending request's id into the timedOut set rather
// than removing it outright, so a late-arriving response for that id is
// discarded instead of misattributed.
func (m *Multiplexer) markTimedOut(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending.get(id); ok {
		m.pending.remove(id)
		m.timedOut[id] = true
		if head, ok := m.pending.head(); ok {
			m.expectedResponseID = head
		} else {
			m.expectedResponseID = 0
		}
	}
}

// Close stops the multiplexer and fails every pending request.
func (m *Multiplexer) Close() error {
	m.closed.Store(true)
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	m.failAllPending(core.ErrNotConnected)
	return nil
}
