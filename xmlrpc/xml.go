package xmlrpc

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// Errors of the processing stages. Concrete errors wrap one of these and can
// be checked with errors.Is.
var (
	// ErrEncode signals a parameter or method name that can not be encoded.
	ErrEncode = errors.New("Encoding failed")
	// ErrTransport signals a failed HTTP exchange.
	ErrTransport = errors.New("Transport failed")
	// ErrDecode signals a response that is not a valid XML-RPC document.
	ErrDecode = errors.New("Decoding failed")
	// ErrTypeMismatch signals an access to a value with the wrong data type.
	ErrTypeMismatch = errors.New("Type mismatch")
)

// Message of a fault response without a faultString member.
const undefinedFaultString = "Undefined fault string"

// MethodCall represents an XML-RPC method call.
type MethodCall struct {
	MethodName string   `xml:"methodName"`
	Params     *Params  `xml:"params"`
	XMLName    xml.Name `xml:"methodCall"`
}

// Args returns the parameters of the call as array value.
func (c *MethodCall) Args() *Value {
	a := &Array{}
	if c.Params != nil {
		for _, p := range c.Params.Param {
			a.Data = append(a.Data, p.Value)
		}
	}
	return &Value{Array: a}
}

// MethodResponse represents an XML-RPC method response.
type MethodResponse struct {
	Params  *Params  `xml:"params"`
	Fault   *Value   `xml:"fault>value"`
	XMLName xml.Name `xml:"methodResponse"`
}

// Params holds the parameters for the method call or response.
type Params struct {
	Param []*Param `xml:"param"`
}

// Param is a single parameter.
type Param struct {
	Value *Value
}

// Values is a list of values, e.g. the parameters of a method call.
type Values []*Value

// Value represents an XML-RPC value. Exactly one of the type fields should be
// set. A value without type tag is a string (FlatString).
type Value struct {
	I4         string   `xml:"i4,omitempty"`
	Int        string   `xml:"int,omitempty"`
	Boolean    string   `xml:"boolean,omitempty"`
	ElemString string   `xml:"string,omitempty"`
	FlatString string   `xml:",chardata"`
	Double     string   `xml:"double,omitempty"`
	DateTime   string   `xml:"dateTime.iso8601,omitempty"`
	Base64     string   `xml:"base64,omitempty"`
	Struct     *Struct  `xml:"struct"`
	Array      *Array   `xml:"array"`
	XMLName    xml.Name `xml:"value"`
}

// UnmarshalXML implements xml.Unmarshaler. Character data next to a type
// element (e.g. indentation around <string></string>) is dropped, so that it
// is not taken for the content of an untagged string.
func (v *Value) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw struct {
		I4         *string `xml:"i4"`
		Int        *string `xml:"int"`
		Boolean    *string `xml:"boolean"`
		ElemString *string `xml:"string"`
		FlatString string  `xml:",chardata"`
		Double     *string `xml:"double"`
		DateTime   *string `xml:"dateTime.iso8601"`
		Base64     *string `xml:"base64"`
		Struct     *Struct `xml:"struct"`
		Array      *Array  `xml:"array"`
	}
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	*v = Value{Struct: raw.Struct, Array: raw.Array, XMLName: start.Name}
	typed := raw.Struct != nil || raw.Array != nil
	for _, e := range []struct{ src, dst *string }{
		{raw.I4, &v.I4},
		{raw.Int, &v.Int},
		{raw.Boolean, &v.Boolean},
		{raw.ElemString, &v.ElemString},
		{raw.Double, &v.Double},
		{raw.DateTime, &v.DateTime},
		{raw.Base64, &v.Base64},
	} {
		if e.src != nil {
			*e.dst = *e.src
			typed = true
		}
	}
	if !typed {
		v.FlatString = raw.FlatString
	}
	return nil
}

// Struct represents an XML-RPC struct.
type Struct struct {
	Members []*Member `xml:"member"`
}

// Member represents an XML-RPC struct member.
type Member struct {
	Name  string `xml:"name"`
	Value *Value
}

// Array represents an XML-RPC array.
type Array struct {
	Data []*Value `xml:"data>value"`
}

// Kind is the data type of a Value.
type Kind int

// Data types of XML-RPC values. NoKind is reported for a missing (nil)
// value.
const (
	NoKind Kind = iota
	BooleanKind
	IntKind
	DoubleKind
	StringKind
	DateTimeKind
	Base64Kind
	StructKind
	ArrayKind
)

var kindNames = [...]string{
	NoKind:       "none",
	BooleanKind:  "boolean",
	IntKind:      "int",
	DoubleKind:   "double",
	StringKind:   "string",
	DateTimeKind: "dateTime.iso8601",
	Base64Kind:   "base64",
	StructKind:   "struct",
	ArrayKind:    "array",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Kind returns the data type of the value. Content without a type tag is a
// string.
func (v *Value) Kind() Kind {
	switch {
	case v == nil:
		return NoKind
	case v.Struct != nil:
		return StructKind
	case v.Array != nil:
		return ArrayKind
	case v.Boolean != "":
		return BooleanKind
	case v.I4 != "" || v.Int != "":
		return IntKind
	case v.Double != "":
		return DoubleKind
	case v.DateTime != "":
		return DateTimeKind
	case v.Base64 != "":
		return Base64Kind
	}
	return StringKind
}

// MethodError encapsulates an XML-RPC fault response.
type MethodError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (f *MethodError) Error() string {
	return fmt.Sprintf("XML-RPC fault (code: %d, message: %s)", f.Code, f.Message)
}

// FaultError returns the fault of the response or nil, if the response is not
// a fault.
//
// The members of the fault struct are scanned in order. A string faultCode
// sets the code to 0, replaces the message and ends the scan. An int
// faultCode only sets the code, so that a following faultString still
// supplies the message.
func (r *MethodResponse) FaultError() *MethodError {
	if r.Fault == nil {
		return nil
	}
	f := &MethodError{Message: undefinedFaultString}
	if r.Fault.Struct == nil {
		return f
	}
	for _, m := range r.Fault.Struct.Members {
		q := Q(m.Value)
		switch m.Name {
		case "faultCode":
			switch q.Kind() {
			case StringKind:
				f.Code = 0
				f.Message = q.String()
				return f
			case IntKind:
				if c := q.Int(); q.Err() == nil {
					f.Code = c
				}
			}
		case "faultString":
			if q.Kind() == StringKind {
				f.Message = q.String()
			}
		}
	}
	return f
}

// Values returns the parameters of a successful response.
func (r *MethodResponse) Values() Values {
	if r.Params == nil {
		return nil
	}
	vs := make(Values, len(r.Params.Param))
	for i, p := range r.Params.Param {
		vs[i] = p.Value
	}
	return vs
}

// Result returns the first parameter of a successful response. A fault is
// returned as *MethodError.
func (r *MethodResponse) Result() (*Value, error) {
	if f := r.FaultError(); f != nil {
		return nil, f
	}
	vs := r.Values()
	if len(vs) == 0 || vs[0] == nil {
		return nil, fmt.Errorf("%w: No parameters in response", ErrDecode)
	}
	return vs[0], nil
}

// Fault is an error which a Handler sends verbatim as fault value. It allows
// fault structs that are not produced from a MethodError, e.g. with a string
// faultCode.
type Fault struct {
	Value *Value
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return (&MethodResponse{Fault: f.Value}).FaultError().Error()
}

func newFaultResponse(err error) *MethodResponse {
	var code int
	var message string
	var raw *Fault
	if errors.As(err, &raw) {
		return &MethodResponse{Fault: raw.Value}
	}
	var fre *MethodError
	if errors.As(err, &fre) {
		code = fre.Code
		message = fre.Message
	} else {
		code = -1
		message = err.Error()
	}
	return &MethodResponse{
		Fault: &Value{
			Struct: &Struct{
				[]*Member{
					{"faultCode", NewInt(code)},
					{"faultString", NewString(message)},
				},
			},
		},
	}
}

func newMethodResponse(value *Value) *MethodResponse {
	return &MethodResponse{
		Params: &Params{
			[]*Param{{value}},
		},
	}
}
