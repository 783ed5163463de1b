package compress

import (
	"errors"
	"fmt"
)

var ErrUnknownCodec = errors.New("unknown compression codec")

// Compress encodes and decodes stored content snapshots.
type Compress interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// New returns the codec registered under name. An empty name is the nop codec.
func New(name string) (Compress, error) {
	switch name {
	case "", NopName:
		return NewNop(), nil
	case GZipName:
		return NewGZip(), nil
	case BrotliName:
		return NewBrotli(), nil
	case LZ4Name:
		return NewLZ4(), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
}
