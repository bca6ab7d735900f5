// Package openerp provides access to the XML-RPC API of an OpenERP/Odoo
// server.
//
// A Client holds the session of one user and is not safe for concurrent use.
// Use one Client per goroutine or protect it with a mutex.
package openerp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mdzio/go-logging"

	"github.com/mdzio/go-openerp/xmlrpc"
)

// DefaultSearchLimit is the max. number of ids returned by Search, if no
// limit is specified.
const DefaultSearchLimit = 1000

var (
	// ErrNotLoggedIn is returned by operations which require a successful
	// Login. No request is sent in this case.
	ErrNotLoggedIn = errors.New("Not logged in")
	// ErrAccessDenied is returned by Login, if the server rejects the
	// credentials.
	ErrAccessDenied = errors.New("Access denied")
)

var clnLog = logging.Get("openerp-client")

// Record is a record read from a model. The values have the native data types
// of xmlrpc.Query.Any.
type Record map[string]interface{}

// recorder provides the last exchanged documents.
type recorder interface {
	LastRequest() []byte
	LastResponse() []byte
}

// Client provides the ERP operations.
type Client struct {
	// Caller executes the remote calls. NewClient sets an *xmlrpc.Client.
	Caller xmlrpc.Caller
	// Endpoint of the server.
	Endpoint Endpoint

	// LegacyUnlink selects the call of the remote method write instead of
	// unlink in Unlink. Some old client code depends on this behavior.
	LegacyUnlink bool

	database      string
	login         string
	password      string
	uid           int
	loggedIn      bool
	serverVersion string
}

// NewClient creates a Client for the server at baseURL, e.g.
// http://localhost:8069. The character encoding and the user agent can be
// configured with Transport.
func NewClient(baseURL string) (*Client, error) {
	ep, err := ParseEndpoint(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		Caller:   &xmlrpc.Client{Addr: ep.Addr(), Charset: xmlrpc.DefaultCharset},
		Endpoint: ep,
	}, nil
}

// Transport returns the XML-RPC client or nil, if Caller is not an
// *xmlrpc.Client.
func (c *Client) Transport() *xmlrpc.Client {
	t, _ := c.Caller.(*xmlrpc.Client)
	return t
}

// Charset returns the character encoding of the requests.
func (c *Client) Charset() string {
	if t := c.Transport(); t != nil && t.Charset != "" {
		return t.Charset
	}
	return xmlrpc.DefaultCharset
}

// LastRequest returns the last sent request document.
func (c *Client) LastRequest() []byte {
	if r, ok := c.Caller.(recorder); ok {
		return r.LastRequest()
	}
	return nil
}

// LastResponse returns the last received response document.
func (c *Client) LastResponse() []byte {
	if r, ok := c.Caller.(recorder); ok {
		return r.LastResponse()
	}
	return nil
}

// UID returns the user id of the session. ok is false before a successful
// login.
func (c *Client) UID() (uid int, ok bool) {
	return c.uid, c.loggedIn
}

// Database returns the database selected by Login.
func (c *Client) Database() string {
	return c.database
}

// ServerVersion returns the version retrieved by the last call of Version.
func (c *Client) ServerVersion() string {
	return c.serverVersion
}

func (c *Client) call(ctx context.Context, path, method string, args ...interface{}) (*xmlrpc.Value, error) {
	params, err := xmlrpc.NewValues(args...)
	if err != nil {
		return nil, fmt.Errorf("Invalid parameters for %s: %w", method, err)
	}
	return c.Caller.Call(ctx, path, method, params)
}

func invalidResponse(op string, err error) error {
	return fmt.Errorf("Invalid XML-RPC response for %s: %w", op, err)
}

// Login authenticates the user and selects the database. The user id is
// returned and kept for the following operations.
func (c *Client) Login(ctx context.Context, db, login, password string) (int, error) {
	clnLog.Debugf("Logging in as %s on database %s at %s", login, db, c.Endpoint)
	c.database = db
	c.login = login
	c.password = password
	c.loggedIn = false

	v, err := c.call(ctx, CommonPath, "login", db, login, password)
	if err != nil {
		return 0, err
	}
	e := xmlrpc.Q(v)
	// the server answers false on invalid credentials
	if e.Kind() == xmlrpc.BooleanKind {
		return 0, ErrAccessDenied
	}
	uid := e.Int()
	if e.Err() != nil {
		return 0, invalidResponse("login", e.Err())
	}
	c.uid = uid
	c.loggedIn = true
	return uid, nil
}

// Version retrieves the version of the server.
func (c *Client) Version(ctx context.Context) (string, error) {
	clnLog.Debugf("Retrieving version of %s", c.Endpoint)
	v, err := c.call(ctx, CommonPath, "version")
	if err != nil {
		return "", err
	}
	e := xmlrpc.Q(v)
	sv := e.TryKey("server_version")
	if sv.Value() == nil && e.Err() == nil && e.Kind() == xmlrpc.StructKind && len(v.Struct.Members) > 0 {
		// no server_version member: use the first one
		sv = e.Map()[v.Struct.Members[0].Name]
	}
	version := sv.String()
	if e.Err() != nil {
		return "", invalidResponse("version", e.Err())
	}
	c.serverVersion = version
	return version, nil
}

// About retrieves the description of the server. With extended, the server
// sends the version in addition, which is ignored.
func (c *Client) About(ctx context.Context, extended bool) (string, error) {
	clnLog.Debugf("Retrieving about of %s", c.Endpoint)
	v, err := c.call(ctx, CommonPath, "about", extended)
	if err != nil {
		return "", err
	}
	e := xmlrpc.Q(v)
	var about string
	if e.Kind() == xmlrpc.ArrayKind {
		about = e.Idx(0).String()
	} else {
		about = e.String()
	}
	if e.Err() != nil {
		return "", invalidResponse("about", e.Err())
	}
	return about, nil
}

// Timezone retrieves the time zone of the server. The credentials of the last
// login are used.
func (c *Client) Timezone(ctx context.Context) (string, error) {
	if !c.loggedIn {
		return "", ErrNotLoggedIn
	}
	clnLog.Debugf("Retrieving time zone of %s", c.Endpoint)
	v, err := c.call(ctx, CommonPath, "timezone_get", c.database, c.login, c.password)
	if err != nil {
		return "", err
	}
	e := xmlrpc.Q(v)
	tz := e.String()
	if e.Err() != nil {
		return "", invalidResponse("timezone_get", e.Err())
	}
	return tz, nil
}

// Execute calls a method of a model. The arguments are converted with
// xmlrpc.NewValue. The result is returned unmodified.
func (c *Client) Execute(ctx context.Context, model, method string, args ...interface{}) (*xmlrpc.Value, error) {
	if !c.loggedIn {
		return nil, ErrNotLoggedIn
	}
	clnLog.Debugf("Executing %s on model %s at %s", method, model, c.Endpoint)
	params := append([]interface{}{c.database, c.uid, c.password, model, method}, args...)
	return c.call(ctx, ObjectPath, "execute", params...)
}

// Create creates a record and returns its id. values is an xmlrpc.Fields or a
// map with string keys.
func (c *Client) Create(ctx context.Context, model string, values interface{}) (int, error) {
	v, err := c.Execute(ctx, model, "create", values)
	if err != nil {
		return 0, err
	}
	e := xmlrpc.Q(v)
	id := e.Int()
	if e.Err() != nil {
		return 0, invalidResponse("create", e.Err())
	}
	return id, nil
}

// Search returns the ids of the records matching the domain, e.g.
// []interface{}{[]interface{}{"name", "=", "ACME"}}. A nil domain matches all
// records. limit <= 0 selects DefaultSearchLimit.
func (c *Client) Search(ctx context.Context, model string, domain []interface{}, offset, limit int) ([]int, error) {
	if domain == nil {
		domain = []interface{}{}
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	v, err := c.Execute(ctx, model, "search", domain, offset, limit)
	if err != nil {
		return nil, err
	}
	e := xmlrpc.Q(v)
	ids := e.Ints()
	if e.Err() != nil {
		return nil, invalidResponse("search", e.Err())
	}
	return ids, nil
}

// Read reads the specified fields of the records. An empty fields list reads
// all fields.
//
// Compatibility: if exactly one id is requested, the result is normalized to
// a list with exactly one record, even if the server sends a single struct
// instead of an array or more than one record.
func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error) {
	if fields == nil {
		fields = []string{}
	}
	v, err := c.Execute(ctx, model, "read", ids, fields)
	if err != nil {
		return nil, err
	}
	e := xmlrpc.Q(v)
	var items []*xmlrpc.Query
	if e.Kind() == xmlrpc.StructKind {
		// single record without enclosing array
		items = []*xmlrpc.Query{e}
	} else {
		items = e.Slice()
	}
	// single id: exactly one record, never flattened
	if len(ids) == 1 && len(items) > 1 {
		items = items[:1]
	}
	records := make([]Record, 0, len(items))
	for _, item := range items {
		r := make(Record)
		for n, f := range item.Map() {
			r[n] = f.Any()
		}
		records = append(records, r)
	}
	if e.Err() != nil {
		return nil, invalidResponse("read", e.Err())
	}
	return records, nil
}

// Write updates the records with the specified values.
func (c *Client) Write(ctx context.Context, model string, ids []int, values interface{}) (bool, error) {
	v, err := c.Execute(ctx, model, "write", ids, values)
	if err != nil {
		return false, err
	}
	e := xmlrpc.Q(v)
	ok := e.Bool()
	if e.Err() != nil {
		return false, invalidResponse("write", e.Err())
	}
	return ok, nil
}

// Unlink deletes the records. With LegacyUnlink, the remote method write is
// called with the ids only.
func (c *Client) Unlink(ctx context.Context, model string, ids []int) (bool, error) {
	method := "unlink"
	if c.LegacyUnlink {
		method = "write"
	}
	v, err := c.Execute(ctx, model, method, ids)
	if err != nil {
		return false, err
	}
	e := xmlrpc.Q(v)
	ok := e.Bool()
	if e.Err() != nil {
		return false, invalidResponse("unlink", e.Err())
	}
	return ok, nil
}
