package registry

import (
	"fmt"

	"xdao.co/idreg/model"
)

// OverwritePolicy decides who may replace an existing identity record.
type OverwritePolicy int

const (
	// OverwriteAny lets any authorized signer replace any record.
	OverwriteAny OverwritePolicy = iota
	// OverwriteOwnerOnly lets only the record's current owner replace it.
	OverwriteOwnerOnly
)

func (p OverwritePolicy) String() string {
	switch p {
	case OverwriteAny:
		return "any"
	case OverwriteOwnerOnly:
		return "owner-only"
	default:
		return fmt.Sprintf("OverwritePolicy(%d)", int(p))
	}
}

// ParseOverwritePolicy accepts "any" (or "") and "owner-only".
func ParseOverwritePolicy(s string) (OverwritePolicy, error) {
	switch s {
	case "", "any":
		return OverwriteAny, nil
	case "owner-only":
		return OverwriteOwnerOnly, nil
	default:
		return 0, model.NewError(model.KindInvalid, "IDREG-CONF-001", fmt.Sprintf("unknown overwrite policy %q", s))
	}
}

func (p OverwritePolicy) allows(existing model.Identity, signer model.Identifier) bool {
	if p == OverwriteOwnerOnly {
		return existing.Owner.Equal(signer)
	}
	return true
}
