package httpx

import (
	"errors"
	"net"
	"runtime"
	"strconv"
	"syscall"
)

const portRollAttempts = 42

// Listener is a TCP listener that knows its port.
type Listener struct {
	net.Listener
}

// NewListener listens on the address. With roll, a busy port is replaced
// by the next free one above it.
func NewListener(address string, roll bool) (*Listener, error) {
	ls, err := net.Listen("tcp", address)
	switch {
	case err == nil:
		return &Listener{ls}, nil
	case !roll || !addressInUse(err):
		return nil, err
	}
	host, port, perr := splitPort(address)
	if perr != nil {
		return nil, err
	}
	for next := port + 1; next < port+portRollAttempts; next++ {
		if ls, err = net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(next))); err == nil {
			return &Listener{ls}, nil
		}
	}
	return nil, err
}

func (l Listener) GetPort() int {
	if l.Listener == nil {
		return 0
	}
	if tcp, ok := l.Addr().(*net.TCPAddr); ok && tcp != nil {
		return tcp.Port
	}
	return 0
}

func splitPort(address string) (host string, port int, err error) {
	host, p, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}
	port, err = strconv.Atoi(p)
	return host, port, err
}

func addressInUse(err error) bool {
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	// WSAEADDRINUSE
	return runtime.GOOS == "windows" && errors.Is(err, syscall.Errno(10048))
}

// publicAddress is the host of the address with the actual port,
// default HTTP(S) ports are left out.
// E.g. host.com:8080 served on 8888 is host.com:8888.
func publicAddress(address string, port int) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	if host == "" {
		host = "localhost"
	}
	if port <= 0 || port == 80 || port == 443 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
