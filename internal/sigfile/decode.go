package sigfile

import (
	"bytes"
	"errors"
	"io"
)

func newBytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
