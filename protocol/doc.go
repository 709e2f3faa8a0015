// Package protocol implements the line codecs stages use to read and write
// records.
//
// Key-value lines have the form "<key>\t<value>"; value-only lines carry the
// value alone. Key-value protocols are built from a Serializer backend:
//
//   - Text: strings in, natural string form out
//   - JSON: github.com/goccy/go-json
//   - Msgpack: github.com/ugorji/go/codec, escaped so payloads stay on one line
//
// KeyCaching reuses the previously decoded key while consecutive lines repeat
// the same raw key bytes. Protocol values are stateful and belong to a single
// reader; use a Factory to get a fresh one per stream.
package protocol
