package stager

import (
	"bytes"
	"errors"
	"io"
)

// Source supplies content for one Stage call.
//
// Available must be answerable without committing to reading bytes, and
// must answer truthfully: when it reports false, Stage takes the
// refresh/no-op path and never calls Open. Hosts whose producers signal
// "nothing changed" by handing back a spent stream should map that signal
// to Unchanged rather than letting Stage probe the stream itself.
type Source interface {
	// Available reports whether new content is ready to be read.
	Available() bool

	// Open opens the content for reading. Called at most once per Stage
	// call, and only after Available reported true.
	Open() (io.ReadCloser, error)
}

// Unchanged is the Source for the refresh path: no new content, reuse the
// current identifier.
var Unchanged Source = unchangedSource{}

type unchangedSource struct{}

func (unchangedSource) Available() bool { return false }

func (unchangedSource) Open() (io.ReadCloser, error) {
	return nil, errors.New("stager: source has no content")
}

// BytesSource returns a Source serving the given bytes.
func BytesSource(b []byte) Source {
	return bytesSource(b)
}

type bytesSource []byte

func (bytesSource) Available() bool { return true }

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s)), nil
}

// ReaderSource returns a one-shot Source serving rc. Stage takes ownership
// of closing rc once it opens it.
func ReaderSource(rc io.ReadCloser) Source {
	return &readerSource{rc: rc}
}

type readerSource struct {
	rc io.ReadCloser
}

func (s *readerSource) Available() bool { return s.rc != nil }

func (s *readerSource) Open() (io.ReadCloser, error) {
	if s.rc == nil {
		return nil, errors.New("stager: reader source already consumed")
	}
	rc := s.rc
	s.rc = nil
	return rc, nil
}
