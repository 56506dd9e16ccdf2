package grpckv

import (
	"github.com/fxamacker/cbor/v2"

	"xdao.co/idreg/storage"
)

type entryWire struct {
	_     struct{} `cbor:",toarray"`
	Key   []byte
	Value []byte
}

var batchEnc, _ = cbor.CoreDetEncOptions().EncMode()

func encodeBatch(entries []storage.Entry) ([]byte, error) {
	w := make([]entryWire, 0, len(entries))
	for _, e := range entries {
		w = append(w, entryWire{Key: e.Key, Value: e.Value})
	}
	return batchEnc.Marshal(w)
}

func decodeBatch(b []byte) ([]storage.Entry, error) {
	var w []entryWire
	if err := cbor.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	out := make([]storage.Entry, 0, len(w))
	for _, e := range w {
		out = append(out, storage.Entry{Key: e.Key, Value: e.Value})
	}
	return out, nil
}
