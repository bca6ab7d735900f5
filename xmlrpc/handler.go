package xmlrpc

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mdzio/go-logging"
)

// max. size of a valid request, if not specified: 10 MB
const requestSizeLimit = 10 * 1024 * 1024

var svrLog = logging.Get("xmlrpc-server")

// Handler is an http.Handler serving XML-RPC calls. Every call is passed to
// the Dispatcher. Errors of the Dispatcher are sent as fault responses.
type Handler struct {
	Dispatcher Dispatcher
	// Max. size of a request. Defaults to 10 MB.
	RequestSizeLimit int64
	// Character encoding of responses. Defaults to DefaultCharset.
	Charset string
}

// readCall reads and decodes the method call of req. The returned status
// code is valid, if err is not nil.
func (h *Handler) readCall(resp http.ResponseWriter, req *http.Request) (*MethodCall, int, error) {
	limit := h.RequestSizeLimit
	if limit == 0 {
		limit = requestSizeLimit
	}
	body, err := io.ReadAll(http.MaxBytesReader(resp, req.Body, limit))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("Reading of request failed: %v", err)
	}
	if svrLog.TraceEnabled() {
		svrLog.Tracef("Request XML: %s", string(body))
	}
	call, err := DecodeRequest(bytes.NewReader(body))
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("Decoding of request failed: %v", err)
	}
	return call, 0, nil
}

// respond executes the call and builds the response document.
func (h *Handler) respond(call *MethodCall, remote string) *MethodResponse {
	svrLog.Debugf("Call of method %s received from %s", call.MethodName, remote)
	res, err := h.Dispatcher.Dispatch(call.MethodName, call.Args())
	if err != nil {
		svrLog.Warningf("Sending fault for method %s to %s: %v", call.MethodName, remote, err)
		return newFaultResponse(err)
	}
	// no result: empty string
	if res == nil {
		res = &Value{}
	}
	return newMethodResponse(res)
}

func (h *Handler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	call, status, err := h.readCall(resp, req)
	if err != nil {
		svrLog.Errorf("Invalid request from %s: %v", req.RemoteAddr, err)
		http.Error(resp, err.Error(), status)
		return
	}

	var out bytes.Buffer
	err = EncodeResponse(&out, h.Charset, h.respond(call, req.RemoteAddr))
	if err != nil {
		svrLog.Errorf("Encoding of response for %s failed: %v", req.RemoteAddr, err)
		http.Error(resp, "Encoding of response failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if svrLog.TraceEnabled() {
		svrLog.Tracef("Response XML: %s", out.String())
	}

	resp.Header().Set("Content-Type", "text/xml")
	resp.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	if _, err := resp.Write(out.Bytes()); err != nil {
		svrLog.Warningf("Sending of response to %s failed: %v", req.RemoteAddr, err)
	}
}
