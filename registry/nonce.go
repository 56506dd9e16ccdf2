package registry

import (
	"xdao.co/idreg/auth"
	"xdao.co/idreg/model"
	"xdao.co/idreg/storage"
)

// ledger is the per-signer nonce counter kept in the registry key space.
type ledger struct {
	store storage.Store
}

func (l ledger) read(signer model.Identifier) (uint64, error) {
	key, err := model.EncodeKey(model.NonceKey{Signer: signer})
	if err != nil {
		return 0, err
	}
	b, err := l.store.Get(key)
	if storage.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, model.WrapError(model.KindInternal, "IDREG-STORE-001", "read nonce", err)
	}
	n, err := model.DecodeNonce(b)
	if err != nil {
		return 0, model.WrapError(model.KindInternal, "IDREG-NONCE-002", "corrupt nonce for "+signer.String(), err)
	}
	return n, nil
}

// readAndIncrement returns the current nonce and stores its successor.
func (l ledger) readAndIncrement(signer model.Identifier) (uint64, error) {
	n, err := l.read(signer)
	if err != nil {
		return 0, err
	}
	next, err := model.NextNonce(n)
	if err != nil {
		return 0, err
	}
	key, err := model.EncodeKey(model.NonceKey{Signer: signer})
	if err != nil {
		return 0, err
	}
	b, err := model.EncodeNonce(next)
	if err != nil {
		return 0, err
	}
	if err := l.store.Set(key, b); err != nil {
		return 0, model.WrapError(model.KindInternal, "IDREG-STORE-002", "write nonce", err)
	}
	return n, nil
}

// nonceForSignature hands one presented signature and the ledger to auth.Check.
type nonceForSignature struct {
	ledger ledger
	sig    model.Signature
}

var _ auth.NonceAuth = (*nonceForSignature)(nil)

func (n *nonceForSignature) CurrentNonce(signer model.Identifier) (uint64, error) {
	return n.ledger.read(signer)
}

func (n *nonceForSignature) ConsumeNonce(signer model.Identifier) (uint64, error) {
	return n.ledger.readAndIncrement(signer)
}

func (n *nonceForSignature) Signature() model.Signature { return n.sig }
