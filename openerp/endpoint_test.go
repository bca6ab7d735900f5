package openerp

import (
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		want Endpoint
		addr string
	}{
		{"http://localhost:8069", Endpoint{"http", "localhost", 8069, ""}, "http://localhost:8069"},
		{"http://erp.example.com", Endpoint{"http", "erp.example.com", 80, ""}, "http://erp.example.com:80"},
		{"https://erp.example.com", Endpoint{"https", "erp.example.com", 443, ""}, "https://erp.example.com:443"},
		{"http://localhost:8069/", Endpoint{"http", "localhost", 8069, ""}, "http://localhost:8069"},
		{"http://localhost:8069/xmlrpc", Endpoint{"http", "localhost", 8069, ""}, "http://localhost:8069"},
		{"http://localhost:8069/xmlrpc/", Endpoint{"http", "localhost", 8069, ""}, "http://localhost:8069"},
		{"http://proxy/erp/", Endpoint{"http", "proxy", 80, "/erp"}, "http://proxy:80/erp"},
		{"http://[::1]:8069", Endpoint{"http", "::1", 8069, ""}, "http://[::1]:8069"},
	}
	for _, c := range cases {
		ep, err := ParseEndpoint(c.in)
		if err != nil {
			t.Errorf("unexpected error for %s: %v", c.in, err)
			continue
		}
		if ep != c.want {
			t.Errorf("unexpected endpoint for %s: %+v", c.in, ep)
		}
		if ep.Addr() != c.addr {
			t.Errorf("unexpected address for %s: %s", c.in, ep.Addr())
		}
	}
}

func TestParseEndpoint_Errors(t *testing.T) {
	cases := []string{
		"",
		"localhost:8069",
		"ftp://localhost",
		"http://",
		"http://localhost:port",
		"http://%zz",
	}
	for _, c := range cases {
		if _, err := ParseEndpoint(c); err == nil {
			t.Errorf("error expected for %q", c)
		}
	}
}
