package stats

import (
	"encoding/json"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller periodically pulls a snapshot from a Provider and pushes it,
// newline-delimited JSON, over a persistent TCP connection to a
// receiver. It never blocks the caller that
// started it: on write failure the connection is dropped and re-dialed on
// the next tick, and a slow or absent receiver only delays the next push,
// never the provider's own state tables.
type Poller struct {
	provider    Provider
	addr        string
	interval    time.Duration
	dialTimeout time.Duration

	log  *logrus.Entry
	conn net.Conn
}

func NewPoller(provider Provider, receiverAddr string, interval time.Duration, log *logrus.Entry) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Poller{
		provider:    provider,
		addr:        receiverAddr,
		interval:    interval,
		dialTimeout: 5 * time.Second,
		log:         log,
	}
}

// Run blocks, pushing a snapshot every interval until done is closed. Run is
// meant to be started in its own goroutine.
func (p *Poller) Run(done <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	defer p.closeConn()
	for {
		select {
		case <-ticker.C:
			p.pushOnce()
		case <-done:
			return
		}
	}
}

func (p *Poller) pushOnce() {
	snap, err := p.provider.GetSnapshot()
	if err != nil {
		p.log.WithError(err).Warn("stats: snapshot provider failed")
		return
	}
	line, err := json.Marshal(snap)
	if err != nil {
		p.log.WithError(err).Warn("stats: snapshot marshal failed")
		return
	}
	line = append(line, '\n')

	if p.conn == nil {
		conn, err := net.DialTimeout("tcp", p.addr, p.dialTimeout)
		if err != nil {
			p.log.WithError(err).Debug("stats: receiver unreachable")
			return
		}
		p.conn = conn
	}
	if _, err := p.conn.Write(line); err != nil {
		p.log.WithError(err).Debug("stats: push failed, dropping connection")
		p.closeConn()
	}
}

func (p *Poller) closeConn() {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
