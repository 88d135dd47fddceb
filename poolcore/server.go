package poolcore

import (
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/sv2"
)

// Server accepts downstream (proxy) connections and feeds accepted shares
// into a Bridge: one reader and one writer goroutine per connection,
// frames exchanged over the per-downstream send channel. Server only ever
// looks at SubmitSharesExtended; channel negotiation and job distribution
// belong to the upstream mining handlers.
type Server struct {
	bridge *Bridge
	log    *logrus.Entry

	nextChannelID atomic.Uint32
}

func NewServer(bridge *Bridge, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{bridge: bridge, log: log}
}

// Serve runs the accept loop until lis is closed.
func (s *Server) Serve(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	channelID := s.nextChannelID.Add(1)
	id := uuid.New().String()
	log := s.log.WithFields(logrus.Fields{"channel_id": channelID, "conn_id": id})

	downstream := &Downstream{
		ChannelID: channelID,
		ID:        id,
		SendChan:  make(chan []byte, 100),
		Stats:     s.bridge.statsReg.Register(id),
	}
	s.bridge.Downstreams().Register(downstream)
	defer func() {
		s.bridge.Downstreams().Unregister(channelID)
		s.bridge.statsReg.Unregister(id)
	}()

	done := make(chan struct{})
	go s.sender(conn, downstream, done, log)
	s.receiver(conn, downstream, log)
	close(done)
}

func (s *Server) sender(conn net.Conn, d *Downstream, done <-chan struct{}, log *logrus.Entry) {
	for {
		select {
		case <-done:
			return
		case frame, ok := <-d.SendChan:
			if !ok {
				return
			}
			if _, err := conn.Write(frame); err != nil {
				log.WithError(err).Debug("poolcore: write to downstream failed, closing")
				return
			}
		}
	}
}

func (s *Server) receiver(conn net.Conn, d *Downstream, log *logrus.Entry) {
	header := make([]byte, sv2.HeaderSize)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		h, err := sv2.ParseHeader(header)
		if err != nil {
			log.WithError(err).Warn("poolcore: invalid frame header, closing connection")
			return
		}
		body := make([]byte, h.MsgLength)
		if _, err := io.ReadFull(conn, body); err != nil {
			return
		}
		s.handleFrame(d, h.MsgType, body, log)
	}
}

func (s *Server) handleFrame(d *Downstream, msgType uint8, body []byte, log *logrus.Entry) {
	if msgType != sv2.MsgTypeSubmitSharesExtended {
		log.WithField("msg_type", msgType).Debug("poolcore: ignoring non-SubmitSharesExtended frame")
		return
	}

	fields, err := sv2.DecodeSubmitSharesExtendedFields(body)
	if err != nil {
		log.WithError(err).Warn("poolcore: malformed SubmitSharesExtended, dropped")
		return
	}
	fields.ChannelID = d.ChannelID

	success, pending, err := s.bridge.AcceptShare(fields)
	if err != nil {
		log.WithError(err).Warn("poolcore: share rejected")
		e := sv2.SubmitSharesError{ChannelID: d.ChannelID, SequenceNumber: fields.SequenceNumber, ErrorCode: "invalid-share"}
		s.enqueue(d, sv2.MsgTypeSubmitSharesError, e.Encode(), log)
		return
	}

	// The acknowledgement goes onto the sender before any mint I/O starts,
	// so SubmitSharesSuccess for a share always precedes its notification.
	s.enqueue(d, sv2.MsgTypeSubmitSharesSuccess, success.Encode(), log)

	s.bridge.RequestQuote(pending)
}

func (s *Server) enqueue(d *Downstream, msgType uint8, payload []byte, log *logrus.Entry) {
	header := sv2.FrameHeader{MsgType: msgType, MsgLength: uint32(len(payload))}
	frame := append(header.Serialize(), payload...)
	select {
	case d.SendChan <- frame:
	case <-time.After(time.Second):
		log.WithField("msg_type", msgType).Warn("poolcore: downstream send buffer full, dropping frame")
	}
}
