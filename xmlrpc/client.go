package xmlrpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/mdzio/go-logging"
)

// max. size of a valid response, if not specified: 10 MB
const responseSizeLimit = 10 * 1024 * 1024

// DefaultUserAgent is sent, if no user agent is configured.
const DefaultUserAgent = "Simbigo XML-RPC Client"

// Caller is an interface for calling XML-RPC functions. The path is appended
// to the address of the server for this call only.
type Caller interface {
	Call(ctx context.Context, path, method string, params Values) (*Value, error)
}

var clnLog = logging.Get("xmlrpc-client")

// Client provides access to an XML-RPC server. The configuration fields must
// not be modified while calls are in progress.
type Client struct {
	// Address of the server, e.g. http://localhost:8069.
	Addr string
	// Character encoding of requests. Defaults to DefaultCharset.
	Charset string
	// User-Agent header. Defaults to DefaultUserAgent.
	UserAgent string
	// Max. size of a response. Defaults to 10 MB.
	ResponseSizeLimit int64
	// HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	mutex        sync.Mutex
	lastRequest  []byte
	lastResponse []byte
}

// Call executes a remote procedure call. A fault response is returned as
// *MethodError. Call implements Caller.
func (c *Client) Call(ctx context.Context, path, method string, params Values) (*Value, error) {
	addr := c.Addr + path
	clnLog.Debugf("Calling method %s on %s", method, addr)

	// encode request
	var reqBuf bytes.Buffer
	err := EncodeRequest(&reqBuf, c.Charset, method, params)
	if err != nil {
		return nil, fmt.Errorf("Encoding of request for %s failed: %w", addr, err)
	}
	if clnLog.TraceEnabled() {
		// attention: log message is encoded with the configured charset!
		clnLog.Tracef("Request XML: %s", reqBuf.String())
	}

	// exchange
	respBuf, err := c.Send(ctx, path, reqBuf.Bytes())
	if err != nil {
		return nil, err
	}
	if clnLog.TraceEnabled() {
		clnLog.Tracef("Response XML: %s", string(respBuf))
	}

	// decode response
	resp, err := DecodeResponse(bytes.NewReader(respBuf))
	if err != nil {
		return nil, fmt.Errorf("Decoding of response from %s failed: %w", addr, err)
	}
	return resp.Result()
}

// Send posts an encoded request to the address of the server extended by path
// and returns the response body. The HTTP status code is not checked, because
// XML-RPC servers report errors in the body. The request and the response are
// recorded and replace the previous recording.
func (c *Client) Send(ctx context.Context, path string, payload []byte) ([]byte, error) {
	addr := c.Addr + path
	c.record(payload, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: Invalid HTTP request for %s: %v", ErrTransport, addr, err)
	}
	req.Header.Set("Content-Type", "text/xml")
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)

	// http post
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	httpResp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: HTTP request failed on %s: %w", ErrTransport, addr, err)
	}
	defer httpResp.Body.Close()

	// read response
	limit := c.ResponseSizeLimit
	if limit == 0 {
		limit = responseSizeLimit
	}
	respBuf, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: Reading of response failed from %s: %w", ErrTransport, addr, err)
	}
	if int64(len(respBuf)) > limit {
		return nil, fmt.Errorf("%w: Response from %s exceeds size limit of %d bytes", ErrTransport, addr, limit)
	}
	c.record(payload, respBuf)
	return respBuf, nil
}

func (c *Client) record(req, resp []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.lastRequest = append([]byte(nil), req...)
	c.lastResponse = resp
}

// LastRequest returns a copy of the most recently sent request.
func (c *Client) LastRequest() []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]byte(nil), c.lastRequest...)
}

// LastResponse returns a copy of the most recently received response. It is
// nil, if the last exchange failed.
func (c *Client) LastResponse() []byte {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.lastResponse == nil {
		return nil
	}
	return append([]byte(nil), c.lastResponse...)
}
