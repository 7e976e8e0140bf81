package fake

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// CheckLog returns a logger and a check function. When called, the function
// verifies that the logger has printed the message.
func CheckLog(msg string) (zerolog.Logger, func(t *testing.T)) {
	buffer := &syncBuffer{}

	check := func(t *testing.T) {
		require.Contains(t, buffer.String(), fmt.Sprintf(`"%s"`, msg))
	}

	return zerolog.New(buffer), check
}

// syncBuffer is a buffer that can be written by the logger of a goroutine
// while the test reads it.
type syncBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.Lock()
	defer b.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.Lock()
	defer b.Unlock()

	return b.buf.String()
}
