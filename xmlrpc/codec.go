package xmlrpc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultCharset is the character encoding used, if none is specified.
const DefaultCharset = "utf-8"

// lookupCharset resolves an IANA character set name.
func lookupCharset(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: Unknown charset %s: %v", ErrEncode, name, err)
	}
	// known names without implementation
	if enc == nil {
		return nil, fmt.Errorf("%w: Unsupported charset: %s", ErrEncode, name)
	}
	return enc, nil
}

// encodeDocument writes an XML prolog and the XML representation of doc in
// the specified character encoding.
func encodeDocument(w io.Writer, charsetName string, doc interface{}) error {
	if charsetName == "" {
		charsetName = DefaultCharset
	}
	enc, err := lookupCharset(charsetName)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"" + charsetName + "\"?>\n")
	err = xml.NewEncoder(&buf).Encode(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	out, err := enc.NewEncoder().Bytes(buf.Bytes())
	if err != nil {
		return fmt.Errorf("%w: Conversion to charset %s: %v", ErrEncode, charsetName, err)
	}
	_, err = w.Write(out)
	return err
}

// EncodeRequest writes an XML-RPC method call document. The character
// encoding is applied to the document and declared in the XML prolog. An
// empty charset selects DefaultCharset.
func EncodeRequest(w io.Writer, charsetName string, method string, params Values) error {
	if method == "" {
		return fmt.Errorf("%w: Empty method name", ErrEncode)
	}
	ps := make([]*Param, len(params))
	for i, p := range params {
		if p == nil {
			return fmt.Errorf("%w: Parameter %d is nil", ErrEncode, i+1)
		}
		ps[i] = &Param{p}
	}
	return encodeDocument(w, charsetName, &MethodCall{
		MethodName: method,
		Params:     &Params{ps},
	})
}

// EncodeResponse writes an XML-RPC method response document.
func EncodeResponse(w io.Writer, charsetName string, resp *MethodResponse) error {
	return encodeDocument(w, charsetName, resp)
}

// decodeDocument parses an XML document. The character encoding declared in
// the XML prolog is respected.
func decodeDocument(r io.Reader, doc interface{}) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	err := dec.Decode(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// DecodeResponse parses an XML-RPC method response document. A fault response
// is not an error at this stage, use MethodResponse.FaultError or
// MethodResponse.Result.
func DecodeResponse(r io.Reader) (*MethodResponse, error) {
	resp := &MethodResponse{}
	if err := decodeDocument(r, resp); err != nil {
		return nil, err
	}
	if resp.Fault == nil && resp.Params == nil {
		return nil, fmt.Errorf("%w: Neither params nor fault in response", ErrDecode)
	}
	return resp, nil
}

// DecodeRequest parses an XML-RPC method call document.
func DecodeRequest(r io.Reader) (*MethodCall, error) {
	call := &MethodCall{}
	if err := decodeDocument(r, call); err != nil {
		return nil, err
	}
	if call.Params == nil {
		call.Params = &Params{}
	}
	return call, nil
}
