package poolcore

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/sirupsen/logrus"

	"github.com/hashpool/hashpool/hub"
	"github.com/hashpool/hashpool/stats"
	"github.com/hashpool/hashpool/sv2"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.Out = io.Discard
	return logrus.NewEntry(l)
}

func validLockingKey(t *testing.T) [33]byte {
	t.Helper()
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	var out [33]byte
	copy(out[:], priv.PubKey().SerializeCompressed())
	return out
}

// TestServerAcceptsShareAndRepliesSuccess exercises the wire path: a real
// TCP dial into Server.Serve, a SubmitSharesExtended frame written, and a
// SubmitSharesSuccess frame read back before any mint round trip occurs.
func TestServerAcceptsShareAndRepliesSuccess(t *testing.T) {
	h := hub.New(hub.Config{MintAddr: "127.0.0.1:1"}, discardLog())
	go h.Run()
	defer h.Close()

	bridge := NewBridge(Config{}, h, stats.NewDownstreamRegistry(), discardLog())
	defer bridge.Close()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer lis.Close()

	server := NewServer(bridge, discardLog())
	go server.Serve(lis)

	conn, err := net.Dial("tcp", lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	fields := sv2.SubmitSharesExtendedFields{
		SequenceNumber: 7,
		LockingPubKey:  validLockingKey(t),
	}
	fields.Hash[31] = 1
	payload := fields.Encode()
	header := sv2.FrameHeader{MsgType: sv2.MsgTypeSubmitSharesExtended, MsgLength: uint32(len(payload))}
	if _, err := conn.Write(append(header.Serialize(), payload...)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	respHeader := make([]byte, sv2.HeaderSize)
	if _, err := io.ReadFull(conn, respHeader); err != nil {
		t.Fatalf("read response header: %v", err)
	}
	h2, err := sv2.ParseHeader(respHeader)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h2.MsgType != sv2.MsgTypeSubmitSharesSuccess {
		t.Fatalf("got msg type %d, want SubmitSharesSuccess", h2.MsgType)
	}
	body := make([]byte, h2.MsgLength)
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Fatalf("read response body: %v", err)
	}
	success, err := sv2.DecodeSubmitSharesSuccess(body)
	if err != nil {
		t.Fatalf("DecodeSubmitSharesSuccess: %v", err)
	}
	if success.LastSequenceNumber != 7 {
		t.Fatalf("got last_sequence_number %d, want 7", success.LastSequenceNumber)
	}

	if bridge.Registry().Len() != 1 {
		t.Fatalf("expected 1 pending share registered, got %d", bridge.Registry().Len())
	}
}
