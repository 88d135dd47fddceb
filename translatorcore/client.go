package translatorcore

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/internal/xerrors"
	"github.com/hashpool/hashpool/sv2"
)

// Client owns the persistent upstream connection to the Pool, reconnecting
// with exponential backoff (1 s doubling to 30 s, also applied after each
// dropped connection) in the same loop shape as hub.Hub's Pool-to-Mint
// link. It reads every frame off the wire and routes extension-range messages to a
// Bridge; standard mining messages are out of this core's scope and are
// only logged.
type Client struct {
	addr        string
	dialTimeout time.Duration
	bridge      *Bridge
	log         *logrus.Entry

	mu   sync.Mutex
	conn net.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// ClientConfig tunes Client's dial behavior.
type ClientConfig struct {
	UpstreamAddr string
	DialTimeout  time.Duration
}

func defaultClientConfig(cfg ClientConfig) ClientConfig {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return cfg
}

func NewClient(cfg ClientConfig, bridge *Bridge, log *logrus.Entry) *Client {
	cfg = defaultClientConfig(cfg)
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		addr:        cfg.UpstreamAddr,
		dialTimeout: cfg.DialTimeout,
		bridge:      bridge,
		log:         log,
		done:        make(chan struct{}),
	}
}

// Run dials the Pool, reconnecting with exponential backoff on any I/O
// error, until Close is called.
func (c *Client) Run() {
	bo := newBackoff(time.Second, 30*time.Second)
	for {
		select {
		case <-c.done:
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
		if err != nil {
			c.log.WithError(err).Warn("translatorcore: dial upstream failed, retrying")
			if c.sleepOrDone(bo.next()) {
				return
			}
			continue
		}
		bo.reset()
		c.setConn(conn)
		c.log.Info("translatorcore: connected to upstream pool")

		c.readLoop(conn)

		c.setConn(nil)
		conn.Close()
		if c.sleepOrDone(bo.next()) {
			return
		}
	}
}

func (c *Client) setConn(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// Send writes a pre-framed message to the current upstream connection. It
// returns ErrNotConnected if no connection is currently established, so
// callers (e.g. the legacy SV1 translation layer submitting
// SubmitSharesExtended on a miner's behalf) can decide whether to retry or
// drop.
func (c *Client) Send(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return xerrors.ErrNotConnected
	}
	_, err := conn.Write(frame)
	return err
}

func (c *Client) readLoop(conn net.Conn) {
	header := make([]byte, sv2.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		h, err := sv2.ParseHeader(header)
		if err != nil {
			c.log.WithError(err).Warn("translatorcore: invalid frame header from upstream, reconnecting")
			return
		}
		body := make([]byte, h.MsgLength)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}

		if sv2.IsExtensionMessage(h.MsgType) {
			c.bridge.Dispatch(h.MsgType, body)
			continue
		}
		c.log.WithField("msg_type", h.MsgType).Debug("translatorcore: standard mining message, outside this core's scope")
	}
}

func (c *Client) sleepOrDone(d time.Duration) bool {
	select {
	case <-c.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
