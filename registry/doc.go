// Package registry implements the identity registry operations over a
// storage.Store: set_admin, get_admin, get_iden, write_iden and nonce.
//
// Reads are public. write_iden is authorized by a signature over the
// canonical auth.Message for ("write_iden", signer, nonce, key) and by the
// signer's nonce ledger; every call commits all of its writes or none.
package registry
