package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"xdao.co/idreg/model"
)

// IdentifierFromSeed returns the registry identifier of the scheme key derived from seed.
func IdentifierFromSeed(scheme model.Scheme, seed []byte) (model.Identifier, error) {
	s, err := NewSigner(scheme, seed)
	if err != nil {
		return model.Identifier{}, err
	}
	return s.Identifier(), nil
}

// roleKDFLabel versions the role derivation; changing it changes every role key.
const roleKDFLabel = "xdao-idreg/role-seed/v2"

// DeriveRoleSeed derives the seed of role under rootSeed for scheme:
//
//	sha256(label || scheme || role || rootSeed)
//
// with each field length-prefixed. Binding the scheme means a root seed
// reused across schemes never yields related role keys.
func DeriveRoleSeed(scheme model.Scheme, rootSeed []byte, role string) ([]byte, error) {
	if _, err := model.ParseScheme(string(scheme)); err != nil {
		return nil, err
	}
	if len(rootSeed) != SeedSize {
		return nil, model.NewError(model.KindInvalid, "IDREG-KEYS-002", fmt.Sprintf("root seed must be %d bytes, got %d", SeedSize, len(rootSeed)))
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	h := sha256.New()
	for _, field := range [][]byte{[]byte(roleKDFLabel), []byte(scheme), []byte(role), rootSeed} {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(field)))
		h.Write(n[:])
		h.Write(field)
	}
	return h.Sum(nil)[:SeedSize], nil
}
