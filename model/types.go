package model

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// IdenKeySize is the length of a registry identifier.
const IdenKeySize = 32

// IdenKey is the opaque identifier an identity record is registered under.
type IdenKey [IdenKeySize]byte

func (k IdenKey) String() string { return hex.EncodeToString(k[:]) }

// ParseIdenKey decodes a 64 hex char identifier (an optional 0x prefix is accepted).
func ParseIdenKey(s string) (IdenKey, error) {
	var k IdenKey
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, WrapError(KindInvalid, "IDREG-KEY-001", "invalid identifier hex", err)
	}
	if len(b) != IdenKeySize {
		return k, NewError(KindInvalid, "IDREG-KEY-002", fmt.Sprintf("identifier must be %d bytes, got %d", IdenKeySize, len(b)))
	}
	copy(k[:], b)
	return k, nil
}

// Scheme names a signature scheme a signer identity belongs to.
type Scheme string

const (
	SchemeEd25519    Scheme = "ed25519"
	SchemeDilithium3 Scheme = "dilithium3"
	// SchemeSchnorr is BIP-340 Schnorr over secp256k1 with x-only public keys.
	SchemeSchnorr Scheme = "schnorr"
)

// Schemes lists the supported schemes in a fixed order.
var Schemes = []Scheme{SchemeEd25519, SchemeDilithium3, SchemeSchnorr}

// PublicKeySize returns the encoded public key length for s, or 0 if s is unknown.
func (s Scheme) PublicKeySize() int {
	switch s {
	case SchemeEd25519:
		return ed25519.PublicKeySize
	case SchemeDilithium3:
		return mode3.PublicKeySize
	case SchemeSchnorr:
		return schnorr.PubKeyBytesLen
	default:
		return 0
	}
}

// SignatureSize returns the encoded signature length for s, or 0 if s is unknown.
func (s Scheme) SignatureSize() int {
	switch s {
	case SchemeEd25519:
		return ed25519.SignatureSize
	case SchemeDilithium3:
		return mode3.SignatureSize
	case SchemeSchnorr:
		return schnorr.SignatureSize
	default:
		return 0
	}
}

// ParseScheme validates a scheme name.
func ParseScheme(s string) (Scheme, error) {
	for _, known := range Schemes {
		if string(known) == s {
			return known, nil
		}
	}
	return "", NewError(KindInvalid, "IDREG-SIG-001", fmt.Sprintf("unsupported signature scheme %q", s))
}

// Identifier is the identity of a signer: its scheme and raw public key.
type Identifier struct {
	Scheme    Scheme
	PublicKey []byte
}

// Validate checks the scheme is known and the public key has the scheme's length.
func (id Identifier) Validate() error {
	size := id.Scheme.PublicKeySize()
	if size == 0 {
		return NewError(KindInvalid, "IDREG-SIG-001", fmt.Sprintf("unsupported signature scheme %q", id.Scheme))
	}
	if len(id.PublicKey) != size {
		return NewError(KindInvalid, "IDREG-SIG-002", fmt.Sprintf("%s public key must be %d bytes, got %d", id.Scheme, size, len(id.PublicKey)))
	}
	return nil
}

// Equal reports whether both identifiers name the same signer.
func (id Identifier) Equal(other Identifier) bool {
	return id.Scheme == other.Scheme && bytes.Equal(id.PublicKey, other.PublicKey)
}

// String renders "<scheme>:<hex pubkey>", the form accepted by ParseIdentifier.
func (id Identifier) String() string {
	return string(id.Scheme) + ":" + hex.EncodeToString(id.PublicKey)
}

// ParseIdentifier parses the "<scheme>:<hex pubkey>" form.
func ParseIdentifier(s string) (Identifier, error) {
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		scheme, err := ParseScheme(s[:i])
		if err != nil {
			return Identifier{}, err
		}
		pub, err := hex.DecodeString(s[i+1:])
		if err != nil {
			return Identifier{}, WrapError(KindInvalid, "IDREG-SIG-003", "invalid public key hex", err)
		}
		id := Identifier{Scheme: scheme, PublicKey: pub}
		return id, id.Validate()
	}
	return Identifier{}, NewError(KindInvalid, "IDREG-SIG-004", "identifier must be <scheme>:<hex>")
}

// Signature is a signature together with the public key that produced it.
// The signer's Identifier is always recovered from here, never supplied separately.
type Signature struct {
	Scheme    Scheme
	PublicKey []byte
	Sig       []byte
}

// Identifier recovers the signer identity carried by the signature.
func (s Signature) Identifier() Identifier {
	return Identifier{Scheme: s.Scheme, PublicKey: append([]byte(nil), s.PublicKey...)}
}

// Validate checks the embedded identifier and the signature length.
func (s Signature) Validate() error {
	if err := s.Identifier().Validate(); err != nil {
		return err
	}
	if size := s.Scheme.SignatureSize(); len(s.Sig) != size {
		return NewError(KindInvalid, "IDREG-SIG-005", fmt.Sprintf("%s signature must be %d bytes, got %d", s.Scheme, size, len(s.Sig)))
	}
	return nil
}

// Link is one (description, url) pair of an identity record.
type Link struct {
	Descr []byte
	URL   []byte
}

// Identity is the record stored under a registered IdenKey.
type Identity struct {
	Name  []byte
	Descr []byte
	Links []Link
	// Owner is the signer that authorized the last write.
	Owner Identifier
}

// NewIdentity builds a record owned by owner.
func NewIdentity(name, descr []byte, links []Link, owner Identifier) Identity {
	return Identity{Name: name, Descr: descr, Links: links, Owner: owner}
}
