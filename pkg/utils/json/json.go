// Package json 封装 JSON 编解码。
// amd64/arm64 上使用 sonic，其他平台回退到 encoding/json。
package json

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"runtime"

	"github.com/bytedance/sonic"
)

var (
	// Marshal encodes v into JSON bytes.
	Marshal func(v interface{}) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal func(data []byte, v interface{}) error

	// MarshalIndent encodes v with indentation, used for files written to disk.
	MarshalIndent func(v interface{}, prefix, indent string) ([]byte, error)

	// NewEncoder creates a JSON encoder for w.
	NewEncoder func(w io.Writer) Encoder

	// NewDecoder creates a JSON decoder for r.
	NewDecoder func(r io.Reader) Decoder

	usingSonic bool
)

// Encoder is a JSON encoder.
type Encoder interface {
	Encode(v interface{}) error
}

// Decoder is a JSON decoder.
type Decoder interface {
	Decode(v interface{}) error
}

// RawMessage is a raw encoded JSON value.
type RawMessage = stdjson.RawMessage

func init() {
	if runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" {
		api := sonic.ConfigStd
		Marshal = api.Marshal
		Unmarshal = api.Unmarshal
		MarshalIndent = api.MarshalIndent
		NewEncoder = func(w io.Writer) Encoder {
			return api.NewEncoder(w)
		}
		NewDecoder = func(r io.Reader) Decoder {
			return api.NewDecoder(r)
		}
		usingSonic = true
		return
	}

	Marshal = stdjson.Marshal
	Unmarshal = stdjson.Unmarshal
	MarshalIndent = stdjson.MarshalIndent
	NewEncoder = func(w io.Writer) Encoder {
		return stdjson.NewEncoder(w)
	}
	NewDecoder = func(r io.Reader) Decoder {
		return stdjson.NewDecoder(r)
	}
}

// UnmarshalString decodes a JSON string into v.
func UnmarshalString(s string, v interface{}) error {
	return Unmarshal([]byte(s), v)
}

// Valid reports whether data is a valid JSON document.
func Valid(data []byte) bool {
	return stdjson.Valid(bytes.TrimSpace(data))
}

// IsUsingSonic reports whether sonic backs the codec.
func IsUsingSonic() bool {
	return usingSonic
}
