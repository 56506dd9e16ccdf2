package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// KeyTag distinguishes the three key classes sharing the registry key space.
type KeyTag uint8

const (
	TagRegistered KeyTag = 1
	TagNonce      KeyTag = 2
	TagAdmin      KeyTag = 3
)

func (t KeyTag) String() string {
	switch t {
	case TagRegistered:
		return "Registered"
	case TagNonce:
		return "Nonce"
	case TagAdmin:
		return "Admin"
	default:
		return fmt.Sprintf("KeyTag(%d)", uint8(t))
	}
}

// Key addresses one slot of the registry key space. The set of
// implementations is closed: RegisteredKey, NonceKey and AdminKey.
type Key interface {
	Tag() KeyTag
	isKey()
}

// RegisteredKey addresses the identity record registered under ID.
type RegisteredKey struct{ ID IdenKey }

// NonceKey addresses the replay counter of Signer.
type NonceKey struct{ Signer Identifier }

// AdminKey addresses the singleton admin slot.
type AdminKey struct{}

func (RegisteredKey) Tag() KeyTag { return TagRegistered }
func (NonceKey) Tag() KeyTag      { return TagNonce }
func (AdminKey) Tag() KeyTag      { return TagAdmin }

func (RegisteredKey) isKey() {}
func (NonceKey) isKey()      {}
func (AdminKey) isKey()      {}

func (k RegisteredKey) String() string { return "Registered(" + k.ID.String() + ")" }
func (k NonceKey) String() string      { return "Nonce(" + k.Signer.String() + ")" }
func (AdminKey) String() string        { return "Admin" }

// EncodeKey returns the byte-exact storage key for k: a canonical array
// whose first element is the tag.
func EncodeKey(k Key) ([]byte, error) {
	switch k := k.(type) {
	case RegisteredKey:
		return Marshal([]any{k.Tag(), k.ID[:]})
	case NonceKey:
		if err := k.Signer.Validate(); err != nil {
			return nil, err
		}
		return Marshal([]any{k.Tag(), toIdentifierWire(k.Signer)})
	case AdminKey:
		return Marshal([]any{k.Tag()})
	default:
		return nil, NewError(KindInvalid, "IDREG-KEY-003", fmt.Sprintf("unknown key type %T", k))
	}
}

// DecodeKey parses bytes produced by EncodeKey.
func DecodeKey(b []byte) (Key, error) {
	var parts []cbor.RawMessage
	if err := Unmarshal(b, &parts); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, NewError(KindInvalid, "IDREG-KEY-004", "empty key")
	}
	var tag KeyTag
	if err := Unmarshal(parts[0], &tag); err != nil {
		return nil, err
	}
	switch tag {
	case TagRegistered:
		if len(parts) != 2 {
			return nil, NewError(KindInvalid, "IDREG-KEY-004", "malformed Registered key")
		}
		var raw []byte
		if err := Unmarshal(parts[1], &raw); err != nil {
			return nil, err
		}
		if len(raw) != IdenKeySize {
			return nil, NewError(KindInvalid, "IDREG-KEY-002", fmt.Sprintf("identifier must be %d bytes, got %d", IdenKeySize, len(raw)))
		}
		var k RegisteredKey
		copy(k.ID[:], raw)
		return k, nil
	case TagNonce:
		if len(parts) != 2 {
			return nil, NewError(KindInvalid, "IDREG-KEY-004", "malformed Nonce key")
		}
		var w identifierWire
		if err := Unmarshal(parts[1], &w); err != nil {
			return nil, err
		}
		id, err := w.identifier()
		if err != nil {
			return nil, err
		}
		return NonceKey{Signer: id}, nil
	case TagAdmin:
		if len(parts) != 1 {
			return nil, NewError(KindInvalid, "IDREG-KEY-004", "malformed Admin key")
		}
		return AdminKey{}, nil
	default:
		return nil, NewError(KindInvalid, "IDREG-KEY-003", fmt.Sprintf("unknown key tag %d", tag))
	}
}
