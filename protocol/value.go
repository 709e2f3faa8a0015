package protocol

// TextValue reads whole lines as values and writes values as text, dropping
// the key. Read assigns keys 0, 1, 0, 1, ... so adjacent lines never share a
// group.
type TextValue struct {
	id int
}

// NewTextValue creates a value-only text protocol.
func NewTextValue() *TextValue {
	return &TextValue{id: 1}
}

// Read returns the line as a string value with an alternating key.
func (p *TextValue) Read(line []byte) (Record, error) {
	p.id = (p.id + 1) % 2
	return Record{Key: p.id, Value: string(line)}, nil
}

// Write renders value with FormatText.
func (p *TextValue) Write(_, value any) ([]byte, error) {
	return []byte(FormatText(value)), nil
}
