// Package hub implements the in-process mint-pool messaging hub: it owns
// the single TCP connection to the Mint, serializes quote requests onto
// it, and correlates responses back to their requester by share_hash.
// The connection is persistent and reconnects with exponential backoff;
// request submission never blocks the share-accept path.
package hub

import (
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/ehash"
	"github.com/hashpool/hashpool/internal/xerrors"
	"github.com/hashpool/hashpool/sv2"
)

// ErrHubBackpressure is returned synchronously from Submit when the
// bounded request buffer is full.
var ErrHubBackpressure = xerrors.ErrHubBackpressure

// ConnState describes the hub's mint link at a point in time.
type ConnState int32

const (
	StateReconnecting ConnState = iota
	StateConnected
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateClosed:
		return "Closed"
	default:
		return "Reconnecting"
	}
}

// Response is a quote outcome delivered asynchronously for a share_hash
// previously submitted via Submit. Exactly one of Quote or Failure is set.
type Response struct {
	ShareHash ehash.ShareHash
	Quote     *sv2.MintQuoteResponse
	Failure   *sv2.MintQuoteError
}

type pendingRequest struct {
	req ehash.ParsedQuoteRequest
}

// Hub owns the Pool-to-Mint TCP link. Request submission is non-blocking
// from the caller's perspective: Submit either enqueues onto the bounded
// MPSC buffer or fails immediately with ErrHubBackpressure. Responses are
// delivered out of the caller's control flow on the Responses channel.
type Hub struct {
	addr        string
	dialTimeout time.Duration
	log         *logrus.Entry

	requests  chan pendingRequest
	responses chan Response

	mu         sync.Mutex
	correlator map[ehash.ShareHash]struct{}

	state atomic.Int32

	closeOnce sync.Once
	done      chan struct{}
}

// Config bounds the hub's buffers. Defaults: request buffer 100,
// response buffer 1000.
type Config struct {
	MintAddr       string
	RequestBuffer  int
	ResponseBuffer int
	DialTimeout    time.Duration
}

func New(cfg Config, log *logrus.Entry) *Hub {
	if cfg.RequestBuffer <= 0 {
		cfg.RequestBuffer = 100
	}
	if cfg.ResponseBuffer <= 0 {
		cfg.ResponseBuffer = 1000
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Hub{
		addr:        cfg.MintAddr,
		dialTimeout: cfg.DialTimeout,
		log:         log,
		requests:    make(chan pendingRequest, cfg.RequestBuffer),
		responses:   make(chan Response, cfg.ResponseBuffer),
		correlator:  make(map[ehash.ShareHash]struct{}),
		done:        make(chan struct{}),
	}
}

// Responses is the channel the Pool bridge drains to learn of quote
// outcomes and route them to the originating downstream.
func (h *Hub) Responses() <-chan Response {
	return h.responses
}

// ConnectionState reports the current state of the mint link.
func (h *Hub) ConnectionState() ConnState {
	return ConnState(h.state.Load())
}

// Submit enqueues a quote request. It never blocks: on a full buffer it
// returns ErrHubBackpressure and the caller must drop the attempt; the
// share itself is already acknowledged to the miner.
func (h *Hub) Submit(req ehash.ParsedQuoteRequest) error {
	h.mu.Lock()
	h.correlator[req.ShareHash] = struct{}{}
	h.mu.Unlock()

	select {
	case h.requests <- pendingRequest{req: req}:
		return nil
	default:
		h.mu.Lock()
		delete(h.correlator, req.ShareHash)
		h.mu.Unlock()
		return ErrHubBackpressure
	}
}

// Run drives the persistent connection: dialing with backoff, writing
// queued requests, and reading responses. It blocks until Close is
// called; run it in its own goroutine.
func (h *Hub) Run() {
	backoff := newBackoff(100*time.Millisecond, 5*time.Second)
	for {
		select {
		case <-h.done:
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", h.addr, h.dialTimeout)
		if err != nil {
			h.log.WithError(err).Debug("hub: dial mint failed, retrying")
			if !sleepOrDone(backoff.next(), h.done) {
				return
			}
			continue
		}
		backoff.reset()
		h.state.Store(int32(StateConnected))
		h.log.Info("hub: connected to mint")

		readerDone := make(chan struct{})
		go h.readLoop(conn, readerDone)
		h.writeLoop(conn, readerDone)
		conn.Close()
		<-readerDone

		select {
		case <-h.done:
			return
		default:
			h.state.Store(int32(StateReconnecting))
		}
	}
}

func (h *Hub) writeLoop(conn net.Conn, readerDone <-chan struct{}) {
	for {
		select {
		case <-h.done:
			return
		case <-readerDone:
			return
		case pr := <-h.requests:
			payload := sv2.MintQuoteRequest{
				Amount:        uint64(pr.req.Amount),
				Unit:          sv2.STR0_255(pr.req.Unit),
				ShareHash:     [32]byte(pr.req.ShareHash),
				LockingPubKey: [33]byte(pr.req.LockingPubKey),
			}
			if pr.req.KeysetID != nil {
				id := [8]byte(*pr.req.KeysetID)
				payload.KeysetID = &id
			}
			body := payload.Encode()
			header := sv2.FrameHeader{MsgType: sv2.MsgTypeMintQuoteRequest, MsgLength: uint32(len(body))}
			if _, err := conn.Write(header.Serialize()); err != nil {
				h.requeue(pr)
				return
			}
			if _, err := conn.Write(body); err != nil {
				h.requeue(pr)
				return
			}
		}
	}
}

// requeue reinserts a request whose write failed so it is retried once
// the connection is reestablished, best-effort (dropped silently if the
// buffer is already full again).
func (h *Hub) requeue(pr pendingRequest) {
	select {
	case h.requests <- pr:
	default:
		h.mu.Lock()
		delete(h.correlator, pr.req.ShareHash)
		h.mu.Unlock()
		h.log.Warn("hub: dropped request on reconnect, buffer full")
	}
}

func (h *Hub) readLoop(conn net.Conn, readerDone chan<- struct{}) {
	defer close(readerDone)
	header := make([]byte, sv2.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		fh, err := sv2.ParseHeader(header)
		if err != nil {
			return
		}
		body := make([]byte, fh.MsgLength)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		h.dispatch(fh.MsgType, body)
	}
}

func (h *Hub) dispatch(msgType uint8, body []byte) {
	switch msgType {
	case sv2.MsgTypeMintQuoteResponse:
		resp, err := sv2.DecodeMintQuoteResponse(body)
		if err != nil {
			h.log.WithError(err).Warn("hub: malformed quote response")
			return
		}
		h.deliver(Response{ShareHash: ehash.ShareHash(resp.ShareHash), Quote: &resp})
	case sv2.MsgTypeMintQuoteError:
		errResp, err := sv2.DecodeMintQuoteError(body)
		if err != nil {
			h.log.WithError(err).Warn("hub: malformed quote error")
			return
		}
		h.deliver(Response{ShareHash: ehash.ShareHash(errResp.ShareHash), Failure: &errResp})
	default:
		h.log.WithField("msg_type", msgType).Warn("hub: unexpected message from mint")
	}
}

func (h *Hub) deliver(resp Response) {
	h.mu.Lock()
	_, inFlight := h.correlator[resp.ShareHash]
	if inFlight {
		delete(h.correlator, resp.ShareHash)
	}
	h.mu.Unlock()

	if !inFlight {
		h.log.WithField("share_hash", resp.ShareHash.String()).Debug("hub: response with no matching in-flight request, dropped")
		return
	}

	select {
	case h.responses <- resp:
	default:
		h.log.Warn("hub: response buffer full, dropping oldest delivery")
		select {
		case <-h.responses:
		default:
		}
		select {
		case h.responses <- resp:
		default:
		}
	}
}

// Close stops Run and releases resources. Idempotent.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.state.Store(int32(StateClosed))
		close(h.done)
	})
}

func sleepOrDone(d time.Duration, done <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-done:
		return false
	}
}

