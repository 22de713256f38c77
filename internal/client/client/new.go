package client

import (
	"fmt"
	"strings"
)

const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// New builds the client for transport ("http" or "grpc") talking to address.
func New(transport, address string, opts ...Option) (Client, error) {
	switch strings.ToLower(transport) {
	case TransportHTTP, "":
		return NewHTTPClient(address, opts...)
	case TransportGRPC:
		return NewGRPCClient(address, opts...)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}
