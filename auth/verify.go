package auth

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"xdao.co/idreg/model"
)

// Digest returns the bytes a scheme actually signs for msg:
// sha256 for ed25519 and schnorr, sha3-256 for dilithium3.
func Digest(scheme model.Scheme, msg []byte) ([]byte, error) {
	switch scheme {
	case model.SchemeEd25519, model.SchemeSchnorr:
		s := sha256.Sum256(msg)
		return s[:], nil
	case model.SchemeDilithium3:
		s := sha3.Sum256(msg)
		return s[:], nil
	default:
		return nil, model.NewError(model.KindAuthenticationFailed, "IDREG-AUTH-100", "unsupported signature scheme")
	}
}

// Verify checks sig over msg with the public key carried in sig.
func Verify(sig model.Signature, msg []byte) error {
	if err := sig.Validate(); err != nil {
		return model.WrapError(model.KindAuthenticationFailed, "IDREG-AUTH-100", "malformed signature", err)
	}
	digest, err := Digest(sig.Scheme, msg)
	if err != nil {
		return err
	}

	switch sig.Scheme {
	case model.SchemeEd25519:
		if !ed25519.Verify(ed25519.PublicKey(sig.PublicKey), digest, sig.Sig) {
			return model.NewError(model.KindAuthenticationFailed, "IDREG-AUTH-101", "signature invalid")
		}
		return nil
	case model.SchemeDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(sig.PublicKey); err != nil {
			return model.WrapError(model.KindAuthenticationFailed, "IDREG-AUTH-102", "invalid dilithium3 public key", err)
		}
		if !mode3.Verify(&pk, digest, sig.Sig) {
			return model.NewError(model.KindAuthenticationFailed, "IDREG-AUTH-101", "signature invalid")
		}
		return nil
	case model.SchemeSchnorr:
		pk, err := schnorr.ParsePubKey(sig.PublicKey)
		if err != nil {
			return model.WrapError(model.KindAuthenticationFailed, "IDREG-AUTH-103", "invalid schnorr public key", err)
		}
		s, err := schnorr.ParseSignature(sig.Sig)
		if err != nil {
			return model.WrapError(model.KindAuthenticationFailed, "IDREG-AUTH-104", "invalid schnorr signature encoding", err)
		}
		if !s.Verify(digest, pk) {
			return model.NewError(model.KindAuthenticationFailed, "IDREG-AUTH-101", "signature invalid")
		}
		return nil
	default:
		return model.NewError(model.KindAuthenticationFailed, "IDREG-AUTH-100", "unsupported signature scheme")
	}
}
