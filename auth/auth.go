package auth

import (
	"fmt"

	"xdao.co/idreg/model"
)

// NonceAuth is the capability a signed operation hands to Check: access to
// the signer's nonce ledger and to the signature being presented.
type NonceAuth interface {
	// CurrentNonce returns the signer's stored nonce, zero if never seen.
	CurrentNonce(signer model.Identifier) (uint64, error)
	// ConsumeNonce stores nonce+1 for signer and returns the previous value.
	ConsumeNonce(signer model.Identifier) (uint64, error)
	// Signature returns the signature authorizing the call.
	Signature() model.Signature
}

// Check authorizes one call of function with args under d.
//
// The signature must verify over Message(d, function, args...), and nonce
// must equal the signer's current ledger nonce. On success the nonce is
// consumed exactly once; on any failure it is left untouched.
func Check(d Domain, na NonceAuth, nonce uint64, function string, args ...any) error {
	if na == nil {
		return model.NewError(model.KindInternal, "IDREG-AUTH-000", "missing nonce authority")
	}
	msg, err := Message(d, function, args...)
	if err != nil {
		return err
	}
	sig := na.Signature()
	if err := Verify(sig, msg); err != nil {
		return err
	}

	signer := sig.Identifier()
	current, err := na.CurrentNonce(signer)
	if err != nil {
		return err
	}
	if current != nonce {
		return model.NewError(model.KindAuthenticationFailed, "IDREG-AUTH-201",
			fmt.Sprintf("nonce mismatch: presented %d, expected %d", nonce, current))
	}
	if _, err := na.ConsumeNonce(signer); err != nil {
		return err
	}
	return nil
}
