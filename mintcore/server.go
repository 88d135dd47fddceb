package mintcore

import (
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/ehash"
	"github.com/hashpool/hashpool/sv2"
)

// quoteErrorCode values sent back in MintQuoteError.Code.
const (
	codeBadUnit       uint16 = 1
	codeBadAmount     uint16 = 2
	codeBadLockingKey uint16 = 3
	codeInternal      uint16 = 4
	codeBadKeyset     uint16 = 5
)

// Server accepts the Pool's TCP connection and answers mint-quote
// requests. Each accepted connection is served by its own
// goroutine; the Store and Signer are the only shared state, and both are
// safe for concurrent use.
type Server struct {
	store  *Store
	signer Signer
	log    *logrus.Entry
}

func NewServer(store *Store, signer Signer, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{store: store, signer: signer, log: log}
}

// Serve accepts connections from lis until it is closed.
func (s *Server) Serve(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
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
		if fh.MsgType != sv2.MsgTypeMintQuoteRequest {
			s.log.WithField("msg_type", fh.MsgType).Warn("mintcore: unexpected message type, closing connection")
			return
		}
		resp, respType := s.handleRequest(body)
		header := sv2.FrameHeader{MsgType: respType, MsgLength: uint32(len(resp))}
		if _, err := conn.Write(header.Serialize()); err != nil {
			return
		}
		if _, err := conn.Write(resp); err != nil {
			return
		}
	}
}

func (s *Server) handleRequest(body []byte) ([]byte, uint8) {
	req, err := sv2.DecodeMintQuoteRequest(body)
	if err != nil {
		return s.errorResponse([32]byte{}, codeBadAmount, "malformed request")
	}
	shareHash := ehash.ShareHash(req.ShareHash)

	if existing, ok, err := s.store.Get(shareHash); err == nil && ok {
		return s.okResponse(existing)
	}

	if string(req.Unit) != "HASH" {
		return s.errorResponse(req.ShareHash, codeBadUnit, "unsupported unit")
	}
	if req.Amount == 0 {
		return s.errorResponse(req.ShareHash, codeBadAmount, "amount must be positive")
	}

	activeKeyset, err := s.store.ActiveKeysetID()
	if err != nil {
		s.log.WithError(err).Error("mintcore: failed to load active keyset")
		return s.errorResponse(req.ShareHash, codeInternal, "internal error")
	}
	// A requester may pin a keyset; reject anything but the active one.
	if req.KeysetID != nil && ehash.KeysetID(*req.KeysetID) != activeKeyset {
		return s.errorResponse(req.ShareHash, codeBadKeyset, "unknown keyset")
	}
	lockingPubKey := ehash.LockingPubKey(req.LockingPubKey)

	quoteID, expiresAt, err := s.signer.IssueQuote(ehash.EhashAmount(req.Amount), lockingPubKey, activeKeyset)
	if err != nil {
		s.log.WithError(err).Debug("mintcore: quote issuance rejected")
		return s.errorResponse(req.ShareHash, codeBadLockingKey, err.Error())
	}

	rec := QuoteRecord{
		ShareHash:     shareHash,
		QuoteID:       quoteID,
		Amount:        ehash.EhashAmount(req.Amount),
		Unit:          string(req.Unit),
		LockingPubKey: lockingPubKey,
		KeysetID:      activeKeyset,
		State:         StateIssued,
		CreatedAt:     time.Now(),
		ExpiresAt:     expiresAt,
	}
	if err := s.store.Put(rec); err != nil {
		s.log.WithError(err).Error("mintcore: failed to persist quote record")
		return s.errorResponse(req.ShareHash, codeInternal, "internal error")
	}
	return s.okResponse(&rec)
}

func (s *Server) okResponse(rec *QuoteRecord) ([]byte, uint8) {
	expiresAt := uint64(rec.ExpiresAt.Unix())
	resp := sv2.MintQuoteResponse{
		ShareHash: [32]byte(rec.ShareHash),
		QuoteID:   sv2.STR0_255(rec.QuoteID),
		Amount:    uint64(rec.Amount),
		KeysetID:  [8]byte(rec.KeysetID),
		ExpiresAt: &expiresAt,
	}
	return resp.Encode(), sv2.MsgTypeMintQuoteResponse
}

func (s *Server) errorResponse(shareHash [32]byte, code uint16, message string) ([]byte, uint8) {
	resp := sv2.MintQuoteError{ShareHash: shareHash, Code: code, Message: sv2.STR0_255(message)}
	return resp.Encode(), sv2.MsgTypeMintQuoteError
}
