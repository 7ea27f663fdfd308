// Package fileio holds small I/O helpers shared by store implementations.
package fileio

import (
	"context"
	"io"
)

// Copy copies from src to dst through a fixed-size buffer until EOF or
// error, checking for context cancellation between reads. The destination
// drains every buffered byte before the next read. Returns the number of
// bytes written.
func Copy(ctx context.Context, dst io.Writer, src io.Reader, bufSize int) (int64, error) {
	buf := make([]byte, bufSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if ew != nil {
				return written, ew
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if er != nil {
			if er == io.EOF {
				return written, nil
			}
			return written, er
		}
	}
}
