package protocol

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/mrstream/util"
)

// Text is the plain-text backend. Decoding yields the raw string.
type Text struct{}

// Name returns "text".
func (Text) Name() string { return "text" }

// Marshal writes v in its natural string form.
func (Text) Marshal(v any) ([]byte, error) {
	return []byte(FormatText(v)), nil
}

// Unmarshal returns data as a string.
func (Text) Unmarshal(data []byte) (any, error) {
	return string(data), nil
}

// FormatText renders v as text. Strings and byte slices are written verbatim,
// sequences join their flattened elements with tabs and nil becomes empty.
func FormatText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	if util.IsSequence(v) {
		var b strings.Builder
		first := true
		for e := range util.Flatten(v) {
			if !first {
				b.WriteByte(Separator)
			}
			first = false
			b.WriteString(FormatText(e))
		}
		return b.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
