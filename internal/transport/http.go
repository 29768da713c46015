package transport

import (
	"bufio"
	"io"
)

func newBufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(r)
}

func writeUnauthorized(w io.Writer) error {
	_, err := io.WriteString(w, "HTTP/1.1 401 Unauthorized\r\nContent-Length: 0\r\nConnection: close\r\n\r\n")
	return err
}
