package storage

import "errors"

var (
	ErrNotFound   = errors.New("storage: not found")
	ErrInvalidKey = errors.New("storage: invalid key")
	ErrClosed     = errors.New("storage: store closed")
	ErrTxnDone    = errors.New("storage: transaction already committed or discarded")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
