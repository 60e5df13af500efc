package scriptctx

import (
	"bytes"
	"os"
	"sync"
)

// StdoutTee replaces os.Stdout with a pipe that mirrors every write to
// both the original stdout and an in-memory buffer, so the buffer can
// later be uploaded as the script log (spec §4.8 "Stdout capture"). No
// io.Writer-tee idiom appears in the teacher's pack, so this is built
// directly against the spec's description, following the same "scoped
// acquisition / restore on close" shape the teacher uses for its signal-
// driven context cancellation (cmd/kilroy/main.go's signalCancelContext).
type StdoutTee struct {
	original *os.File
	writer   *os.File
	reader   *os.File

	mu   sync.Mutex
	buf  bytes.Buffer
	done chan struct{}
}

// BeginStdoutTee installs the tee and returns it; call Close to restore
// the original stdout and stop copying.
func BeginStdoutTee() (*StdoutTee, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	t := &StdoutTee{original: os.Stdout, writer: w, reader: r, done: make(chan struct{})}
	os.Stdout = w

	go t.copyLoop()
	return t, nil
}

func (t *StdoutTee) copyLoop() {
	defer close(t.done)
	buf := make([]byte, 4096)
	for {
		n, err := t.reader.Read(buf)
		if n > 0 {
			t.original.Write(buf[:n])
			t.mu.Lock()
			t.buf.Write(buf[:n])
			t.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Output returns everything written to stdout since BeginStdoutTee.
func (t *StdoutTee) Output() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.String()
}

// Close restores the original os.Stdout and waits for the copy loop to
// drain the pipe.
func (t *StdoutTee) Close() error {
	os.Stdout = t.original
	err := t.writer.Close()
	<-t.done
	_ = t.reader.Close()
	return err
}
