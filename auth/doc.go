// Package auth implements the signature authorization protocol that guards
// every mutating registry operation.
//
// A signer authorizes one call by signing the canonical message built from
// the protocol version, the operation name, the deployment Domain and the
// exact ordered argument list. Check verifies that signature and consumes the
// signer's nonce through a NonceAuth, so a signed message is valid for one
// deployment, one operation and one ledger state only.
package auth
