// Package xerrors provides shared error-wrapping helpers and the typed error
// kinds that make up the ehash bridge's error taxonomy. Errors here are
// strictly local: they never propagate into upstream SV2 mining handlers.
package xerrors

import (
	"errors"
	"fmt"
)

// Wrap adds context to an error message. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Kind identifies one of the taxonomy members from the error-handling design.
type Kind string

const (
	KindShareInvalid           Kind = "ShareInvalid"
	KindQuoteRequestMalformed  Kind = "QuoteRequestMalformed"
	KindHubUnavailable         Kind = "HubUnavailable"
	KindMintError              Kind = "MintError"
	KindQuoteExpired           Kind = "QuoteExpired"
	KindExtensionDecodeFailed  Kind = "ExtensionDecodeFailed"
	KindWalletMintFailed       Kind = "WalletMintFailed"
)

// Taxonomy is a typed error carrying one of the Kind values above, so
// callers can branch on classification without string matching.
type Taxonomy struct {
	kind Kind
	err  error
}

func New(kind Kind, err error) *Taxonomy {
	return &Taxonomy{kind: kind, err: err}
}

func (t *Taxonomy) Error() string {
	if t.err == nil {
		return string(t.kind)
	}
	return fmt.Sprintf("%s: %v", t.kind, t.err)
}

func (t *Taxonomy) Unwrap() error { return t.err }

func (t *Taxonomy) Kind() Kind { return t.kind }

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Taxonomy, returning ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var t *Taxonomy
	if errors.As(err, &t) {
		return t.kind, true
	}
	return "", false
}

// Sentinel errors referenced directly by callers that don't need a Kind.
var (
	ErrHubBackpressure = errors.New("hub: request buffer full")
	ErrNotConnected    = errors.New("hub: not connected")
)
