package grpcreg

import (
	"fmt"

	"xdao.co/idreg/model"
)

type linkWire struct {
	_     struct{} `cbor:",toarray"`
	Descr []byte
	URL   []byte
}

// writeIdenRequest is the WriteIden payload. Sig holds model.EncodeSignature bytes.
type writeIdenRequest struct {
	_     struct{} `cbor:",toarray"`
	Key   []byte
	Name  []byte
	Descr []byte
	Links []linkWire
	Sig   []byte
	Nonce uint64
}

type WriteIdenParams struct {
	Key   model.IdenKey
	Name  []byte
	Descr []byte
	Links []model.Link
	Sig   model.Signature
	Nonce uint64
}

func encodeWriteIden(p WriteIdenParams) ([]byte, error) {
	sig, err := model.EncodeSignature(p.Sig)
	if err != nil {
		return nil, err
	}
	req := writeIdenRequest{
		Key:   p.Key[:],
		Name:  p.Name,
		Descr: p.Descr,
		Links: make([]linkWire, 0, len(p.Links)),
		Sig:   sig,
		Nonce: p.Nonce,
	}
	for _, l := range p.Links {
		req.Links = append(req.Links, linkWire{Descr: l.Descr, URL: l.URL})
	}
	return model.Marshal(req)
}

func decodeWriteIden(b []byte) (WriteIdenParams, error) {
	var req writeIdenRequest
	if err := model.Unmarshal(b, &req); err != nil {
		return WriteIdenParams{}, err
	}
	key, err := decodeIdenKey(req.Key)
	if err != nil {
		return WriteIdenParams{}, err
	}
	sig, err := model.DecodeSignatureUnchecked(req.Sig)
	if err != nil {
		return WriteIdenParams{}, err
	}
	p := WriteIdenParams{Key: key, Name: req.Name, Descr: req.Descr, Sig: sig, Nonce: req.Nonce}
	for _, l := range req.Links {
		p.Links = append(p.Links, model.Link{Descr: l.Descr, URL: l.URL})
	}
	return p, nil
}

func decodeIdenKey(b []byte) (model.IdenKey, error) {
	var k model.IdenKey
	if len(b) != model.IdenKeySize {
		return k, model.NewError(model.KindInvalid, "IDREG-KEY-002", fmt.Sprintf("identifier must be %d bytes, got %d", model.IdenKeySize, len(b)))
	}
	copy(k[:], b)
	return k, nil
}
