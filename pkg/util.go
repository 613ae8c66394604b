package pkg

import (
	"io"
)

// CombinedWriter writes to all given writers, used to log both
// to a file and to stdout.
type CombinedWriter struct {
	Writers []io.Writer
}

func NewCombinedWriter(writers ...io.Writer) *CombinedWriter {
	return &CombinedWriter{Writers: writers}
}

func (cw CombinedWriter) Write(p []byte) (n int, err error) {
	for _, w := range cw.Writers {
		written, werr := w.Write(p)
		if werr != nil {
			err = werr
			continue
		}
		n += written
	}
	return n, err
}
