package translatorcore

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hashpool/hashpool/ehash"
)

func TestKeysetClientFetchesAndSetsKeyset(t *testing.T) {
	id := ehash.KeysetIDFromUint64(0xABCD)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"keyset_id":%q}`, hex.EncodeToString(id[:]))
	}))
	defer srv.Close()

	b, _ := newTestBridge(t, &stubWallet{})
	c := NewKeysetClient(srv.URL, time.Second, discardLog())
	c.Run(b, nil)

	got, ok := b.KeysetID()
	if !ok {
		t.Fatal("expected bridge to have a keyset after Run returned")
	}
	if got != id {
		t.Fatalf("got keyset %v, want %v", got, id)
	}
}

func TestKeysetClientRetriesUntilDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b, _ := newTestBridge(t, &stubWallet{})
	c := NewKeysetClient(srv.URL, time.Second, discardLog())

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		c.Run(b, done)
		close(finished)
	}()
	close(done)

	select {
	case <-finished:
	case <-time.After(3 * time.Second):
		t.Fatal("expected Run to exit once done was closed")
	}
	if _, ok := b.KeysetID(); ok {
		t.Fatal("expected no keyset from a persistently failing endpoint")
	}
}
