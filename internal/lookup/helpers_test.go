package lookup

import (
	"io"
	"strings"
)

func httputilBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
