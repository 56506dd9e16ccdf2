// Package cidutil derives content identifiers for registry keys and records.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	return sum(cid.Raw, data)
}

// KeyName returns the filesystem-safe name of an encoded storage key.
func KeyName(key []byte) string {
	return CIDv1RawSHA256(key)
}

// RecordCID returns the CIDv1 (dag-cbor + sha2-256) of an encoded record value.
// Registry values are canonical CBOR, so equal records always get equal CIDs.
func RecordCID(value []byte) (cid.Cid, error) {
	return sum(cid.DagCBOR, value)
}

func sum(codec uint64, data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(codec, mh), nil
}
