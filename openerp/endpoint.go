package openerp

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// RPC namespaces of the server.
const (
	// CommonPath serves the session and meta operations.
	CommonPath = "/xmlrpc/common"
	// ObjectPath serves the data operations.
	ObjectPath = "/xmlrpc/object"
)

// Endpoint describes the location of an ERP server.
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
	// Prefix is prepended to the RPC namespaces, e.g. /erp for a server behind
	// a reverse proxy. It has no trailing slash.
	Prefix string
}

// ParseEndpoint parses a base URL like http://localhost:8069. A path other
// than /xmlrpc is kept as prefix. Without port, the default port of the
// scheme is used.
func ParseEndpoint(baseURL string) (Endpoint, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("Invalid URL %s: %v", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoint{}, fmt.Errorf("Invalid URL %s: scheme http or https expected", baseURL)
	}
	if u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("Invalid URL %s: missing host", baseURL)
	}
	ep := Endpoint{Scheme: u.Scheme, Host: u.Hostname()}
	if p := u.Port(); p != "" {
		ep.Port, err = strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("Invalid port in URL %s: %v", baseURL, err)
		}
	} else if u.Scheme == "https" {
		ep.Port = 443
	} else {
		ep.Port = 80
	}
	if u.Path != "" && strings.Trim(u.Path, "/") != "xmlrpc" {
		ep.Prefix = strings.TrimRight(u.Path, "/")
	}
	return ep, nil
}

// Addr returns the address of the server including the prefix.
func (ep Endpoint) Addr() string {
	return ep.Scheme + "://" + net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port)) + ep.Prefix
}

// String implements fmt.Stringer.
func (ep Endpoint) String() string {
	return ep.Addr()
}
