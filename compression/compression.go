// Package compression implements the message set codecs: gzip and snappy.
package compression

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	snappy "github.com/segmentio/kafka-go/compress/snappy/go-xerial-snappy"
)

// Type is the value of the message attribute byte.
type Type int8

const (
	None Type = iota
	Gzip
	Snappy
)

var names = map[Type]string{
	None:   "no",
	Gzip:   "gzip",
	Snappy: "snappy",
}

func (t Type) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return "unknown"
}

var ErrUnsupported = errors.New("unsupported compression")

// Parse accepts the names used on the command line and in config files: "no"
// (or "none", or ""), "gzip", and "snappy".
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "no", "none":
		return None, nil
	case "gzip":
		return Gzip, nil
	case "snappy":
		return Snappy, nil
	}
	return None, errors.Wrapf(ErrUnsupported, "%q", s)
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t Type) MarshalText() ([]byte, error) {
	if _, ok := names[t]; !ok {
		return nil, errors.Wrapf(ErrUnsupported, "code %d", t)
	}
	return []byte(t.String()), nil
}

// Codec compresses and decompresses message set bytes.
type Codec interface {
	Compress([]byte) ([]byte, error)
	Decompress([]byte) ([]byte, error)
	Type() Type
}

var codecs = map[Type]Codec{
	None:   &Nop{},
	Gzip:   &GzipCodec{},
	Snappy: &SnappyCodec{},
}

// Lookup returns the codec for the attribute value t. Unknown values return
// ErrUnsupported: they are never passed through uncompressed.
func Lookup(t Type) (Codec, error) {
	c, ok := codecs[t]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "code %d", t)
	}
	return c, nil
}

// Nop implements the Codec for uncompressed message sets.
type Nop struct{}

func (*Nop) Compress(b []byte) ([]byte, error)   { return b, nil }
func (*Nop) Decompress(b []byte) ([]byte, error) { return b, nil }
func (*Nop) Type() Type                          { return None }

type GzipCodec struct{}

func (*GzipCodec) Compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		return nil, errors.Wrap(err, "error writing gzip stream")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "error closing gzip stream")
	}
	return buf.Bytes(), nil
}

func (*GzipCodec) Decompress(b []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "error opening gzip stream")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading gzip stream")
	}
	return out, nil
}

func (*GzipCodec) Type() Type { return Gzip }

// SnappyCodec writes raw snappy blocks and reads both raw blocks and the
// xerial framed format written by the JVM clients.
type SnappyCodec struct{}

func (*SnappyCodec) Compress(b []byte) ([]byte, error) {
	return snappy.Encode(b), nil
}

func (*SnappyCodec) Decompress(b []byte) ([]byte, error) {
	out, err := snappy.Decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding snappy block")
	}
	return out, nil
}

func (*SnappyCodec) Type() Type { return Snappy }
