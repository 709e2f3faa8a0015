package pipeline

import (
	"bufio"
	"context"
	"errors"
	"io"
)

// Lines reads r line by line. Each value keeps its trailing newline; the last
// line may lack one. Every value is a fresh slice owned by the caller.
func Lines(r io.Reader) *Pipeline[[]byte] {
	return OpenLines(func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	})
}

// OpenLines is Lines over a reader that is opened on the first pull and closed
// together with the iterator.
func OpenLines(open func(ctx context.Context) (io.ReadCloser, error)) *Pipeline[[]byte] {
	return &Pipeline[[]byte]{
		create: func(_ context.Context) Iterator[[]byte] {
			return &lineIter{open: open}
		},
	}
}

type lineIter struct {
	open   func(ctx context.Context) (io.ReadCloser, error)
	rc     io.ReadCloser
	reader *bufio.Reader
	done   bool
}

func (it *lineIter) Next(ctx context.Context) ([]byte, bool, error) {
	if it.done {
		return nil, false, nil
	}
	if it.reader == nil {
		rc, err := it.open(ctx)
		if err != nil {
			it.done = true
			return nil, false, err
		}
		it.rc = rc
		it.reader = bufio.NewReaderSize(rc, 64*1024)
	}
	line, err := it.reader.ReadBytes('\n')
	if err != nil {
		it.done = true
		if !errors.Is(err, io.EOF) {
			return nil, false, err
		}
		if len(line) == 0 {
			return nil, false, nil
		}
	}
	return line, true, nil
}

func (it *lineIter) Close() error {
	if it.rc == nil {
		return nil
	}
	err := it.rc.Close()
	it.rc = nil
	return err
}

// TrimEOL strips trailing carriage returns and newlines.
func TrimEOL(line []byte) []byte {
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	return line[:n]
}
