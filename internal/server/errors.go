// Package server provides shared error helpers reused across session and
// supervisor logic.
package server

import (
	"errors"
	"io"
	"net"
	"strings"
)

// isExpectedCloseError checks if an error is expected during connection
// closure and therefore not worth logging at warning level.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "connection reset by peer") ||
		strings.Contains(errStr, "broken pipe")
}
