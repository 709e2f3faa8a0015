package protocol

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"

	"github.com/kbukum/mrstream/errors"
)

var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	// str8 and bin types keep []byte and string distinct on the wire, and
	// bin decodes back to []byte.
	h.WriteExt = true
	h.RawToString = false
	h.SignedInteger = true
	return h
}

// Msgpack is the binary structured backend used between stages. Encoded
// payloads are escaped so the separator and line terminators never appear raw.
type Msgpack struct{}

// Name returns "msgpack".
func (Msgpack) Name() string { return "msgpack" }

// Marshal encodes and escapes v.
func (m Msgpack) Marshal(v any) ([]byte, error) {
	var raw []byte
	if err := codec.NewEncoderBytes(&raw, msgpackHandle).Encode(v); err != nil {
		return nil, errors.EncodeError(m.Name(), err)
	}
	return Escape(raw), nil
}

// Unmarshal unescapes and decodes exactly one msgpack value.
func (m Msgpack) Unmarshal(data []byte) (any, error) {
	raw, err := Unescape(data)
	if err != nil {
		return nil, errors.DecodeError(m.Name(), err)
	}
	var v any
	dec := codec.NewDecoderBytes(raw, msgpackHandle)
	if err := dec.Decode(&v); err != nil {
		return nil, errors.DecodeError(m.Name(), err)
	}
	if n := dec.NumBytesRead(); n != len(raw) {
		return nil, errors.DecodeError(m.Name(), fmt.Errorf("%d trailing bytes", len(raw)-n))
	}
	return v, nil
}

// Escape replaces backslash, tab, newline and carriage return with two-byte
// backslash sequences.
func Escape(data []byte) []byte {
	n := 0
	for _, c := range data {
		switch c {
		case '\\', '\t', '\n', '\r':
			n++
		}
	}
	if n == 0 {
		return data
	}
	out := make([]byte, 0, len(data)+n)
	for _, c := range data {
		switch c {
		case '\\':
			out = append(out, '\\', '\\')
		case '\t':
			out = append(out, '\\', 't')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		default:
			out = append(out, c)
		}
	}
	return out
}

// Unescape reverses Escape. Unknown or dangling escapes are an error.
func Unescape(data []byte) ([]byte, error) {
	if bytes.IndexByte(data, '\\') < 0 {
		return data, nil
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i == len(data) {
			return nil, fmt.Errorf("dangling escape at offset %d", i-1)
		}
		switch data[i] {
		case '\\':
			out = append(out, '\\')
		case 't':
			out = append(out, '\t')
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		default:
			return nil, fmt.Errorf("invalid escape %q at offset %d", data[i], i-1)
		}
	}
	return out, nil
}
