package protocol

import (
	"bytes"

	"github.com/kbukum/mrstream/errors"
	"github.com/kbukum/mrstream/util"
)

// Separator splits a key from its value on the wire.
const Separator = '\t'

// Record is one decoded key/value pair. Either side may be nil.
type Record struct {
	Key   any
	Value any
}

// Protocol converts between wire lines and records. Lines passed to Read and
// returned by Write carry no line terminator.
//
// A Protocol may keep decode state between calls and must only be used by one
// sequential reader.
type Protocol interface {
	Read(line []byte) (Record, error)
	Write(key, value any) ([]byte, error)
}

// Factory builds a fresh Protocol. Jobs hold factories so every stage run gets
// its own decode state.
type Factory func() Protocol

// Serializer encodes single keys or values for a key-value protocol.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
}

// KeyCaching reads and writes "<key>\t<value>" lines. Grouped input repeats
// the same raw key on consecutive lines, so the last decoded key is reused
// while the raw key bytes stay the same.
type KeyCaching struct {
	serializer Serializer

	lastRaw []byte
	lastKey any
	cached  bool
}

// NewKeyCaching creates a key-value protocol on top of s.
func NewKeyCaching(s Serializer) *KeyCaching {
	return &KeyCaching{serializer: s}
}

// Serializer returns the backend used for keys and values.
func (p *KeyCaching) Serializer() Serializer { return p.serializer }

// Read decodes a key-value line.
func (p *KeyCaching) Read(line []byte) (Record, error) {
	i := bytes.IndexByte(line, Separator)
	if i < 0 {
		return Record{}, errors.FormatError(line)
	}
	rawKey, rawValue := line[:i], line[i+1:]

	if !p.cached || !bytes.Equal(rawKey, p.lastRaw) {
		key, err := p.serializer.Unmarshal(rawKey)
		if err != nil {
			return Record{}, err
		}
		p.lastRaw = append(p.lastRaw[:0], rawKey...)
		p.lastKey = key
		p.cached = true
	}

	value, err := p.serializer.Unmarshal(rawValue)
	if err != nil {
		return Record{}, err
	}
	return Record{Key: p.lastKey, Value: value}, nil
}

// Write encodes key and value joined by the separator.
func (p *KeyCaching) Write(key, value any) ([]byte, error) {
	k, err := p.serializer.Marshal(util.Materialize(key))
	if err != nil {
		return nil, err
	}
	v, err := p.serializer.Marshal(util.Materialize(value))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(k)+1+len(v))
	out = append(out, k...)
	out = append(out, Separator)
	return append(out, v...), nil
}

// NewText returns a key-value protocol with plain text keys and values.
func NewText() *KeyCaching { return NewKeyCaching(Text{}) }

// NewJSON returns a key-value protocol with JSON keys and values.
func NewJSON() *KeyCaching { return NewKeyCaching(JSON{}) }

// NewMsgpack returns a key-value protocol with escaped msgpack keys and values.
func NewMsgpack() *KeyCaching { return NewKeyCaching(Msgpack{}) }
