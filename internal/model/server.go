package model

import (
	"context"
	"net"
)

// SecurityLayer produces the listener a server runs on, plain or TLS.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is the API server lifecycle: Start blocks until the server
// stops, Stop shuts it down within the context deadline.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}
