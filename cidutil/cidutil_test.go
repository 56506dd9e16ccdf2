package cidutil

import (
	"strings"
	"testing"

	"github.com/ipfs/go-cid"
)

func TestCIDv1RawSHA256_KnownVector(t *testing.T) {
	// CIDv1 raw sha2-256 of the empty string.
	const want = "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"
	if got := CIDv1RawSHA256(nil); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestKeyName_StableAndDistinct(t *testing.T) {
	a := KeyName([]byte{0x81, 0x03})
	if a != KeyName([]byte{0x81, 0x03}) {
		t.Fatalf("expected stable names")
	}
	if a == KeyName([]byte{0x81, 0x02}) {
		t.Fatalf("expected distinct names for distinct keys")
	}
	if strings.ContainsAny(a, "/\\") || len(a) < 2 {
		t.Fatalf("name not filesystem safe: %q", a)
	}
}

func TestRecordCID_Codec(t *testing.T) {
	id, err := RecordCID([]byte{0xa0})
	if err != nil {
		t.Fatalf("RecordCID: %v", err)
	}
	if id.Prefix().Codec != cid.DagCBOR || id.Version() != 1 {
		t.Fatalf("unexpected prefix %+v", id.Prefix())
	}
	raw, err := CIDv1RawSHA256CID([]byte{0xa0})
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}
	if raw.Hash().String() != id.Hash().String() {
		t.Fatalf("expected the same multihash under both codecs")
	}
}
