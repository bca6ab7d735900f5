package xmlrpc

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Field is a named member of an ordered struct.
type Field struct {
	Name  string
	Value interface{}
}

// Fields is a keyed mapping which keeps the order of its members. It is
// encoded as XML-RPC struct with the members in slice order.
type Fields []Field

// Get returns the value of the first member with the specified name.
func (fs Fields) Get(name string) (interface{}, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Map converts the fields into a map. Later members override earlier ones
// with the same name.
func (fs Fields) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(fs))
	for _, f := range fs {
		m[f.Name] = f.Value
	}
	return m
}

// NewBool creates an XML-RPC boolean.
func NewBool(b bool) *Value {
	if b {
		return &Value{Boolean: "1"}
	}
	return &Value{Boolean: "0"}
}

// NewInt creates an XML-RPC int.
func NewInt(i int) *Value {
	return &Value{Int: strconv.Itoa(i)}
}

// NewDouble creates an XML-RPC double. The shortest representation without
// exponent is used, which converts back to the identical float64.
func NewDouble(d float64) *Value {
	return &Value{Double: strconv.FormatFloat(d, 'f', -1, 64)}
}

// NewString creates an XML-RPC string with string tag.
func NewString(s string) *Value {
	return &Value{ElemString: s}
}

// NewStrings creates an XML-RPC array of strings.
func NewStrings(ss []string) *Value {
	es := make([]*Value, len(ss))
	for i, s := range ss {
		es[i] = NewString(s)
	}
	return &Value{Array: &Array{es}}
}

// NewInts creates an XML-RPC array of ints.
func NewInts(is []int) *Value {
	es := make([]*Value, len(is))
	for i, n := range is {
		es[i] = NewInt(n)
	}
	return &Value{Array: &Array{es}}
}

// NewValue creates a value from a native data type. Supported types: bool,
// all integer types, float32, float64, string, Fields, maps with string keys,
// slices and arrays of supported types, *Value and Values. Map members are
// sorted by name, because the iteration order of Go maps is unspecified. Use
// Fields to control the member order.
func NewValue(in interface{}) (*Value, error) {
	switch val := in.(type) {
	case bool:
		return NewBool(val), nil
	case int:
		return NewInt(val), nil
	case float64:
		return NewDouble(val), nil
	case string:
		return NewString(val), nil
	case []string:
		return NewStrings(val), nil
	case []int:
		return NewInts(val), nil
	case []interface{}:
		es := make([]*Value, len(val))
		for i, e := range val {
			cv, err := NewValue(e)
			if err != nil {
				return nil, err
			}
			es[i] = cv
		}
		return &Value{Array: &Array{es}}, nil
	case Fields:
		ms := make([]*Member, len(val))
		for i, f := range val {
			cv, err := NewValue(f.Value)
			if err != nil {
				return nil, fmt.Errorf("Member %s: %w", f.Name, err)
			}
			ms[i] = &Member{Name: f.Name, Value: cv}
		}
		return &Value{Struct: &Struct{Members: ms}}, nil
	case map[string]interface{}:
		names := make([]string, 0, len(val))
		for n := range val {
			names = append(names, n)
		}
		sort.Strings(names)
		fs := make(Fields, len(names))
		for i, n := range names {
			fs[i] = Field{n, val[n]}
		}
		return NewValue(fs)
	case *Value:
		if val == nil {
			break
		}
		return val, nil
	case Values:
		return &Value{Array: &Array{append([]*Value{}, val...)}}, nil
	case nil:
		return nil, fmt.Errorf("%w: Conversion of nil is not supported", ErrEncode)
	}
	return newReflectedValue(in)
}

// newReflectedValue handles the types not covered by the type switch in
// NewValue.
func newReflectedValue(in interface{}) (*Value, error) {
	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Bool:
		return NewBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if int64(int(i)) != i {
			return nil, fmt.Errorf("%w: Integer out of range: %d", ErrEncode, i)
		}
		return NewInt(int(i)), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return nil, fmt.Errorf("%w: Integer out of range: %d", ErrEncode, u)
		}
		return NewInt(int(u)), nil
	case reflect.Float32, reflect.Float64:
		return NewDouble(rv.Float()), nil
	case reflect.String:
		return NewString(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return &Value{Array: &Array{}}, nil
		}
		es := make([]*Value, rv.Len())
		for i := range es {
			cv, err := NewValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			es[i] = cv
		}
		return &Value{Array: &Array{es}}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		fs := make(Fields, len(keys))
		for i, k := range keys {
			fs[i] = Field{k.String(), rv.MapIndex(k).Interface()}
		}
		return NewValue(fs)
	}
	return nil, fmt.Errorf("%w: Conversion of type %[2]T with value %[2]v is not supported", ErrEncode, in)
}

// NewValues converts native data types into a list of values, e.g. for the
// parameters of a method call.
func NewValues(in ...interface{}) (Values, error) {
	vs := make(Values, len(in))
	for i, e := range in {
		v, err := NewValue(e)
		if err != nil {
			return nil, fmt.Errorf("Parameter %d: %w", i+1, err)
		}
		vs[i] = v
	}
	return vs, nil
}
