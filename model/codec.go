package model

import (
	"math"

	"github.com/fxamacker/cbor/v2"
)

// All persisted values and all signed messages use CBOR Core Deterministic
// Encoding, so equal values always produce equal bytes.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	eo := cbor.CoreDetEncOptions()
	eo.NilContainers = cbor.NilContainerAsEmpty
	em, err := eo.EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	encMode, decMode = em, dm
}

// Marshal encodes v with the canonical encoding used throughout the registry.
func Marshal(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, WrapError(KindInternal, "IDREG-CODEC-001", "encode", err)
	}
	return b, nil
}

// Unmarshal decodes canonical bytes into v, rejecting duplicate map keys and unknown fields.
func Unmarshal(b []byte, v any) error {
	if err := decMode.Unmarshal(b, v); err != nil {
		return WrapError(KindInvalid, "IDREG-CODEC-002", "decode", err)
	}
	return nil
}

type identifierWire struct {
	_         struct{} `cbor:",toarray"`
	Scheme    string
	PublicKey []byte
}

func toIdentifierWire(id Identifier) identifierWire {
	return identifierWire{Scheme: string(id.Scheme), PublicKey: id.PublicKey}
}

func (w identifierWire) identifier() (Identifier, error) {
	id := Identifier{Scheme: Scheme(w.Scheme), PublicKey: w.PublicKey}
	return id, id.Validate()
}

type linkWire struct {
	_     struct{} `cbor:",toarray"`
	Descr []byte
	URL   []byte
}

type identityWire struct {
	Name  []byte         `cbor:"1,keyasint"`
	Descr []byte         `cbor:"2,keyasint"`
	Links []linkWire     `cbor:"3,keyasint"`
	Owner identifierWire `cbor:"4,keyasint"`
}

type signatureWire struct {
	_         struct{} `cbor:",toarray"`
	Scheme    string
	PublicKey []byte
	Sig       []byte
}

// EncodeIdentifier returns the canonical bytes of id.
func EncodeIdentifier(id Identifier) ([]byte, error) {
	return Marshal(toIdentifierWire(id))
}

// DecodeIdentifier parses and validates canonical identifier bytes.
func DecodeIdentifier(b []byte) (Identifier, error) {
	var w identifierWire
	if err := Unmarshal(b, &w); err != nil {
		return Identifier{}, err
	}
	return w.identifier()
}

// EncodeIdentity returns the canonical bytes of an identity record.
func EncodeIdentity(iden Identity) ([]byte, error) {
	w := identityWire{
		Name:  iden.Name,
		Descr: iden.Descr,
		Links: make([]linkWire, 0, len(iden.Links)),
		Owner: toIdentifierWire(iden.Owner),
	}
	for _, l := range iden.Links {
		w.Links = append(w.Links, linkWire{Descr: l.Descr, URL: l.URL})
	}
	return Marshal(w)
}

// DecodeIdentity parses canonical identity record bytes.
//
// Nil and empty encode identically, so decoded Name, Descr, Links and each
// link's fields are never nil: an absent value reads back empty.
func DecodeIdentity(b []byte) (Identity, error) {
	var w identityWire
	if err := Unmarshal(b, &w); err != nil {
		return Identity{}, err
	}
	owner, err := w.Owner.identifier()
	if err != nil {
		return Identity{}, err
	}
	iden := Identity{
		Name:  nonNil(w.Name),
		Descr: nonNil(w.Descr),
		Links: make([]Link, 0, len(w.Links)),
		Owner: owner,
	}
	for _, l := range w.Links {
		iden.Links = append(iden.Links, Link{Descr: nonNil(l.Descr), URL: nonNil(l.URL)})
	}
	return iden, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// EncodeSignature returns the canonical bytes of a signature.
func EncodeSignature(sig Signature) ([]byte, error) {
	return Marshal(signatureWire{Scheme: string(sig.Scheme), PublicKey: sig.PublicKey, Sig: sig.Sig})
}

// DecodeSignature parses canonical signature bytes and checks the scheme and
// sizes. It does not verify anything.
func DecodeSignature(b []byte) (Signature, error) {
	sig, err := DecodeSignatureUnchecked(b)
	if err != nil {
		return Signature{}, err
	}
	return sig, sig.Validate()
}

// DecodeSignatureUnchecked parses the signature structure only. Transports use
// it so a malformed signature is rejected by verification, as an
// authentication failure, rather than as a decode error.
func DecodeSignatureUnchecked(b []byte) (Signature, error) {
	var w signatureWire
	if err := Unmarshal(b, &w); err != nil {
		return Signature{}, err
	}
	return Signature{Scheme: Scheme(w.Scheme), PublicKey: w.PublicKey, Sig: w.Sig}, nil
}

// EncodeNonce returns the canonical bytes of a nonce value.
func EncodeNonce(n uint64) ([]byte, error) {
	return Marshal(n)
}

// DecodeNonce parses canonical nonce bytes.
func DecodeNonce(b []byte) (uint64, error) {
	var n uint64
	if err := Unmarshal(b, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// NextNonce returns n+1, refusing to wrap around.
func NextNonce(n uint64) (uint64, error) {
	if n == math.MaxUint64 {
		return 0, NewError(KindInvalid, "IDREG-NONCE-001", "nonce exhausted")
	}
	return n + 1, nil
}
