package chainrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Opts configures a WSClient, mirroring the indexer HTTP client's rate-limit
// and circuit-breaker knobs (see pkg/rpc/httpclient.go in the indexer) but
// applied to one persistent connection instead of a pool of per-request
// round trips.
type Opts struct {
	MaxTokens        int
	RefillEvery      time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
	CallTimeout      time.Duration
	Logger           *zap.Logger
}

func (o *Opts) setDefaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 50
	}
	if o.RefillEvery <= 0 {
		o.RefillEvery = time.Second
	}
	if o.BreakerThreshold <= 0 {
		o.BreakerThreshold = 5
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 30 * time.Second
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("chain rpc error %d: %s", e.Code, e.Message)
}

// WSClient is a JSON-RPC client multiplexed over one persistent WebSocket
// connection to the chain node. Every outstanding call is correlated by
// request ID against the single read pump, the idiomatic pattern for
// Substrate-family WS RPC where many logical calls share one socket.
type WSClient struct {
	endpoint string
	conn     *websocket.Conn
	opts     Opts

	writeMu sync.Mutex
	nextID  uint64

	pending   sync.Map // uint64 -> chan rpcResponse
	closeOnce sync.Once
	closed    chan struct{}

	tokens     atomic.Int64
	lastRefill atomic.Int64

	breakerMu   sync.Mutex
	failures    int
	openedUntil time.Time
}

// NewWSClient dials the chain RPC endpoint and starts the read pump.
func NewWSClient(ctx context.Context, endpoint string, opts Opts) (*WSClient, error) {
	opts.setDefaults()

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc %s: %w", endpoint, err)
	}

	c := &WSClient{
		endpoint: endpoint,
		conn:     conn,
		opts:     opts,
		closed:   make(chan struct{}),
	}
	c.tokens.Store(int64(opts.MaxTokens))
	c.lastRefill.Store(time.Now().UnixNano())

	go c.readPump()

	return c, nil
}

func (c *WSClient) readPump() {
	defer close(c.closed)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.opts.Logger.Warn("chain rpc read pump exiting", zap.String("endpoint", c.endpoint), zap.Error(err))
			c.failAllPending(err)
			return
		}

		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			c.opts.Logger.Warn("chain rpc response decode failure", zap.Error(err))
			continue
		}

		if ch, ok := c.pending.LoadAndDelete(resp.ID); ok {
			ch.(chan rpcResponse) <- resp
		}
	}
}

func (c *WSClient) failAllPending(err error) {
	c.pending.Range(func(key, value any) bool {
		value.(chan rpcResponse) <- rpcResponse{ID: key.(uint64), Error: &rpcError{Message: err.Error()}}
		c.pending.Delete(key)
		return true
	})
}

func (c *WSClient) refill() {
	now := time.Now().UnixNano()
	last := c.lastRefill.Load()
	if time.Duration(now-last) < c.opts.RefillEvery {
		return
	}
	if c.lastRefill.CompareAndSwap(last, now) {
		c.tokens.Store(int64(c.opts.MaxTokens))
	}
}

func (c *WSClient) acquire(ctx context.Context) error {
	for {
		c.refill()
		if c.tokens.Load() > 0 {
			c.tokens.Add(-1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (c *WSClient) isOpen() bool {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	return time.Now().Before(c.openedUntil)
}

func (c *WSClient) noteFailure() {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	c.failures++
	if c.failures >= c.opts.BreakerThreshold {
		c.openedUntil = time.Now().Add(c.opts.BreakerCooldown)
		c.failures = 0
	}
}

func (c *WSClient) noteSuccess() {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()
	c.failures = 0
}

// call issues one JSON-RPC request and waits for its correlated response.
// There is no retry here: a failed call propagates to the pipeline's Run,
// which aborts the current run. Retry is implicit via the next scheduled run.
func (c *WSClient) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if c.isOpen() {
		return fmt.Errorf("chain rpc circuit open for %s", c.endpoint)
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal params for %s: %w", method, err)
	}

	id := atomic.AddUint64(&c.nextID, 1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams}

	ch := make(chan rpcResponse, 1)
	c.pending.Store(id, ch)

	c.writeMu.Lock()
	err = c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.pending.Delete(id)
		c.noteFailure()
		return fmt.Errorf("write %s: %w", method, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			c.noteFailure()
			return resp.Error
		}
		c.noteSuccess()
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	case <-callCtx.Done():
		c.pending.Delete(id)
		c.noteFailure()
		return fmt.Errorf("%s timed out: %w", method, callCtx.Err())
	}
}

// Close closes the underlying WebSocket connection.
func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
	return nil
}
