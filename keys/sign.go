package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/idreg/auth"
	"xdao.co/idreg/model"
)

// SeedSize is the seed length accepted for every scheme.
const SeedSize = 32

// Signer produces registry signatures for one identity.
type Signer interface {
	Identifier() model.Identifier
	// Sign signs msg with the scheme's digest (see auth.Digest).
	Sign(msg []byte) (model.Signature, error)
}

// NewSigner derives the key pair of scheme from a 32 byte seed.
func NewSigner(scheme model.Scheme, seed []byte) (Signer, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	switch scheme {
	case model.SchemeEd25519:
		priv := ed25519.NewKeyFromSeed(seed)
		return &ed25519Signer{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
	case model.SchemeDilithium3:
		var s [mode3.SeedSize]byte
		copy(s[:], seed)
		pk, sk := mode3.NewKeyFromSeed(&s)
		return &dilithium3Signer{sk: sk, pub: pk.Bytes()}, nil
	case model.SchemeSchnorr:
		priv, pub := btcec.PrivKeyFromBytes(seed)
		if priv.Key.IsZero() {
			return nil, fmt.Errorf("schnorr seed is not a valid secp256k1 scalar")
		}
		return &schnorrSigner{priv: priv, pub: schnorr.SerializePubKey(pub)}, nil
	default:
		return nil, fmt.Errorf("unsupported signature scheme %q", scheme)
	}
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

func (s *ed25519Signer) Identifier() model.Identifier {
	return model.Identifier{Scheme: model.SchemeEd25519, PublicKey: append([]byte(nil), s.pub...)}
}

func (s *ed25519Signer) Sign(msg []byte) (model.Signature, error) {
	digest, err := auth.Digest(model.SchemeEd25519, msg)
	if err != nil {
		return model.Signature{}, err
	}
	return model.Signature{
		Scheme:    model.SchemeEd25519,
		PublicKey: append([]byte(nil), s.pub...),
		Sig:       ed25519.Sign(s.priv, digest),
	}, nil
}

type dilithium3Signer struct {
	sk  *mode3.PrivateKey
	pub []byte
}

func (s *dilithium3Signer) Identifier() model.Identifier {
	return model.Identifier{Scheme: model.SchemeDilithium3, PublicKey: append([]byte(nil), s.pub...)}
}

func (s *dilithium3Signer) Sign(msg []byte) (model.Signature, error) {
	digest, err := auth.Digest(model.SchemeDilithium3, msg)
	if err != nil {
		return model.Signature{}, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.sk, digest, sig)
	return model.Signature{
		Scheme:    model.SchemeDilithium3,
		PublicKey: append([]byte(nil), s.pub...),
		Sig:       sig,
	}, nil
}

type schnorrSigner struct {
	priv *btcec.PrivateKey
	pub  []byte
}

func (s *schnorrSigner) Identifier() model.Identifier {
	return model.Identifier{Scheme: model.SchemeSchnorr, PublicKey: append([]byte(nil), s.pub...)}
}

func (s *schnorrSigner) Sign(msg []byte) (model.Signature, error) {
	digest, err := auth.Digest(model.SchemeSchnorr, msg)
	if err != nil {
		return model.Signature{}, err
	}
	sig, err := schnorr.Sign(s.priv, digest)
	if err != nil {
		return model.Signature{}, fmt.Errorf("schnorr sign: %w", err)
	}
	return model.Signature{
		Scheme:    model.SchemeSchnorr,
		PublicKey: append([]byte(nil), s.pub...),
		Sig:       sig.Serialize(),
	}, nil
}

// SignCall signs the canonical message authorizing function(args...) under d.
func SignCall(s Signer, d auth.Domain, function string, args ...any) (model.Signature, error) {
	if s == nil {
		return model.Signature{}, fmt.Errorf("missing signer")
	}
	msg, err := auth.Message(d, function, args...)
	if err != nil {
		return model.Signature{}, err
	}
	return s.Sign(msg)
}
