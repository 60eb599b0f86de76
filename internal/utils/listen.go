package utils

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ListenFirstFree binds host on the first free port starting at preferred,
// trying at most attempts consecutive ports. It returns the listener and the
// port it bound.
func ListenFirstFree(host string, preferred, attempts int) (net.Listener, int, error) {
	if preferred <= 0 || preferred > 65535 {
		return nil, 0, fmt.Errorf("listen: invalid port %d", preferred)
	}
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for port := preferred; port < preferred+attempts && port <= 65535; port++ {
		listener, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return listener, port, nil
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("port range exhausted")
	}
	return nil, 0, fmt.Errorf("listen: no free port in %d-%d: %w", preferred, preferred+attempts-1, lastErr)
}
