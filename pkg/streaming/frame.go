package streaming

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// Frame flags, the first byte of a binary frame. Binary frames only ever
// carry snapshots; everything else travels as JSON text.
const (
	FlagPlain byte = 0
	FlagLZ4   byte = 1
)

// ErrBadFrame is returned for frames that are empty or carry an unknown flag.
var ErrBadFrame = errors.New("malformed frame")

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// EncodeFrame encodes env as a binary frame, lz4-compressing the JSON body
// when compress is set.
func EncodeFrame(env Envelope, compress bool) ([]byte, error) {
	body, err := Encode(env)
	if err != nil {
		return nil, err
	}
	if !compress {
		return append([]byte{FlagPlain}, body...), nil
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	buf.WriteByte(FlagLZ4)
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(body); err != nil {
		return nil, fmt.Errorf("compressing frame: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing frame: %w", err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// ValidFrame reports whether data starts with a known frame flag and has a
// body. It does not decode the body.
func ValidFrame(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return data[0] == FlagPlain || data[0] == FlagLZ4
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(data []byte) (Envelope, error) {
	if len(data) == 0 {
		return Envelope{}, ErrBadFrame
	}
	switch data[0] {
	case FlagPlain:
		return Decode(data[1:])
	case FlagLZ4:
		buf := bufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		defer bufferPool.Put(buf)

		zr := lz4.NewReader(bytes.NewReader(data[1:]))
		if _, err := io.Copy(buf, zr); err != nil {
			return Envelope{}, fmt.Errorf("decompressing frame: %w", err)
		}
		return Decode(buf.Bytes())
	default:
		return Envelope{}, fmt.Errorf("%w: flag %d", ErrBadFrame, data[0])
	}
}
