package client

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

const (
	protoHTTP  = "http"
	protoHTTPS = "https"
	protoWSS   = "wss"
	protoWS    = "ws"
	protoTCP   = "tcp"

	// DefaultPort is the port of the Tendermint RPC server.
	DefaultPort = "26657"
	// WSEndpoint is the path of the websocket endpoint.
	WSEndpoint = "/websocket"
)

// Remote is the address of a full node's RPC server.
type Remote struct {
	// Secure is set for https and wss.
	Secure bool
	// Host is host:port.
	Host string
	// Path prefixes every request, for servers behind a proxy.
	Path string
}

// ParseRemote parses an RPC address. The tcp, http, https, ws and wss
// schemes are accepted, and an address without a scheme is taken to be
// http. The port defaults to DefaultPort.
func ParseRemote(remote string) (Remote, error) {
	s := strings.TrimSpace(remote)
	if !strings.Contains(s, "://") {
		s = protoHTTP + "://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Remote{}, fmt.Errorf("invalid remote %q: %w", remote, err)
	}

	var r Remote
	switch u.Scheme {
	case protoHTTP, protoWS, protoTCP:
	case protoHTTPS, protoWSS:
		r.Secure = true
	default:
		return Remote{}, fmt.Errorf("invalid remote %q: unsupported scheme %q", remote, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return Remote{}, fmt.Errorf("invalid remote %q: missing host", remote)
	}
	port := u.Port()
	if port == "" {
		port = DefaultPort
	}
	r.Host = net.JoinHostPort(host, port)
	r.Path = strings.TrimRight(u.EscapedPath(), "/")
	return r, nil
}

// HTTPURL returns the base URL of JSON-RPC requests over HTTP.
func (r Remote) HTTPURL() string {
	scheme := protoHTTP
	if r.Secure {
		scheme = protoHTTPS
	}
	return scheme + "://" + r.Host + r.Path
}

// WSURL returns the URL of the websocket endpoint.
func (r Remote) WSURL() string {
	scheme := protoWS
	if r.Secure {
		scheme = protoWSS
	}
	return scheme + "://" + r.Host + r.Path + WSEndpoint
}

func (r Remote) String() string {
	return r.HTTPURL()
}
