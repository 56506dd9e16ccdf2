package auth

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"xdao.co/idreg/model"
)

// PayloadVersion tags the message layout. A new layout gets a new tag.
const PayloadVersion = "v0"

// MaxFunctionLen bounds operation names.
const MaxFunctionLen = 32

// Domain binds signatures to one deployment: the network passphrase and the
// id of the registry instance. A message signed for one Domain never verifies
// against another.
type Domain struct {
	Network  string
	Contract [32]byte
}

func (d Domain) String() string {
	return fmt.Sprintf("%s/%s", d.Network, hex.EncodeToString(d.Contract[:]))
}

// ParseDomain builds a Domain from a network passphrase and a 64 hex char
// contract id. An empty contract id is the zero id.
func ParseDomain(network, contractHex string) (Domain, error) {
	d := Domain{Network: network}
	if contractHex == "" {
		return d, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(contractHex, "0x"))
	if err != nil {
		return d, model.WrapError(model.KindInvalid, "IDREG-CONF-003", "invalid contract id hex", err)
	}
	if len(b) != len(d.Contract) {
		return d, model.NewError(model.KindInvalid, "IDREG-CONF-003", fmt.Sprintf("contract id must be %d bytes, got %d", len(d.Contract), len(b)))
	}
	copy(d.Contract[:], b)
	return d, nil
}

type payloadV0 struct {
	_        struct{} `cbor:",toarray"`
	Version  string
	Function string
	Contract []byte
	Network  string
	Args     []cbor.RawMessage
}

// Message returns the canonical bytes a signer signs to authorize function
// with the given ordered arguments under d.
func Message(d Domain, function string, args ...any) ([]byte, error) {
	if err := checkFunction(function); err != nil {
		return nil, err
	}
	p := payloadV0{
		Version:  PayloadVersion,
		Function: function,
		Contract: d.Contract[:],
		Network:  d.Network,
		Args:     make([]cbor.RawMessage, 0, len(args)),
	}
	for i, a := range args {
		b, err := encodeArg(a)
		if err != nil {
			return nil, model.WrapError(model.KindInvalid, "IDREG-AUTH-002", fmt.Sprintf("encode argument %d", i), err)
		}
		p.Args = append(p.Args, b)
	}
	return model.Marshal(p)
}

func encodeArg(a any) ([]byte, error) {
	switch v := a.(type) {
	case model.Identifier:
		return model.EncodeIdentifier(v)
	case model.IdenKey:
		return model.Marshal(v[:])
	case uint64:
		return model.EncodeNonce(v)
	case []byte, string, bool, int64:
		return model.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported argument type %T", a)
	}
}

func checkFunction(function string) error {
	if function == "" || len(function) > MaxFunctionLen {
		return model.NewError(model.KindInvalid, "IDREG-AUTH-001", fmt.Sprintf("function name must be 1..%d chars", MaxFunctionLen))
	}
	for _, c := range function {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return model.NewError(model.KindInvalid, "IDREG-AUTH-001", fmt.Sprintf("invalid character %q in function name", c))
	}
	return nil
}
