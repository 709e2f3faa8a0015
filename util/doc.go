// Package util provides value helpers shared by the codecs and runners.
//
// Flatten walks nested sequences lazily so that a terminal stage can encode a
// key and a value as one tab-joined line. Materialize turns a lazy sequence
// into a slice before it reaches an encoder.
package util
