package xmlrpc

import (
	"fmt"
	"strconv"
)

// Query helps to extract values from the XML model. The first encountered
// error is kept and shared with all queries derived from the same root.
type Query struct {
	value *Value
	err   *error
	// faster lookup for structs
	lookup map[string]*Query
	// cache arrays
	array []*Query
}

// Q creates a new Query for the specified Value.
func Q(v *Value) *Query {
	var err error
	return &Query{value: v, err: &err}
}

// Err returns the first encountered error.
func (q *Query) Err() error {
	return *q.err
}

func (q *Query) mismatch(want Kind) {
	*q.err = fmt.Errorf("%w: %s expected, got %s", ErrTypeMismatch, want, q.value.Kind())
}

// Kind returns the data type of the wrapped value.
func (q *Query) Kind() Kind {
	return q.value.Kind()
}

// Int gets an XML-RPC int or i4 value.
func (q *Query) Int() (i int) {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return
	}
	var s string
	if q.value.I4 != "" {
		s = q.value.I4
	} else if q.value.Int != "" {
		s = q.value.Int
	} else {
		q.mismatch(IntKind)
		return
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		*q.err = fmt.Errorf("Invalid int: %s", s)
		return 0
	}
	return
}

// Bool gets an XML-RPC boolean value.
func (q *Query) Bool() bool {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return false
	}
	switch q.value.Boolean {
	case "0":
		return false
	case "1":
		return true
	case "":
		q.mismatch(BooleanKind)
		return false
	default:
		*q.err = fmt.Errorf("Invalid boolean: %s", q.value.Boolean)
		return false
	}
}

// String gets an XML-RPC string value.
func (q *Query) String() string {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return ""
	}
	if q.value.Kind() != StringKind {
		q.mismatch(StringKind)
		return ""
	}
	// first string variant
	if q.value.ElemString != "" {
		return q.value.ElemString
	}
	// second string variant
	return q.value.FlatString
}

// Float64 gets an XML-RPC double value.
func (q *Query) Float64() float64 {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return 0
	}
	if q.value.Double == "" {
		q.mismatch(DoubleKind)
		return 0
	}
	d, err := strconv.ParseFloat(q.value.Double, 64)
	if err != nil {
		*q.err = fmt.Errorf("Invalid double: %s", q.value.Double)
		return 0
	}
	return d
}

// IsEmpty returns true, if there is no previous error and the value is empty.
// An empty value can also be interpreted as an empty string.
func (q *Query) IsEmpty() bool {
	// previous error?
	if q.Err() != nil {
		return false
	}
	return q.value == nil || (q.value.Kind() == StringKind && q.value.ElemString == "" && q.value.FlatString == "")
}

// IsNotEmpty returns true, if there is no previous error and the value is not
// empty.
func (q *Query) IsNotEmpty() bool {
	return q.Err() == nil && !q.IsEmpty()
}

// Any returns the value as native data type: int, bool, float64, string,
// []interface{} for arrays, map[string]interface{} for structs or nil for an
// empty optional. dateTime.iso8601 and base64 values are returned as their
// string content.
func (q *Query) Any() interface{} {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return nil
	}
	switch q.value.Kind() {
	case IntKind:
		return q.Int()
	case BooleanKind:
		return q.Bool()
	case DoubleKind:
		return q.Float64()
	case DateTimeKind:
		return q.value.DateTime
	case Base64Kind:
		return q.value.Base64
	case ArrayKind:
		s := q.Slice()
		r := make([]interface{}, len(s))
		for i, e := range s {
			r[i] = e.Any()
		}
		return r
	case StructKind:
		r := make(map[string]interface{})
		for _, m := range q.value.Struct.Members {
			r[m.Name] = (&Query{value: m.Value, err: q.err}).Any()
		}
		return r
	}
	return q.String()
}

// Fields returns the members of an XML-RPC struct as native data types in the
// order of the XML document.
func (q *Query) Fields() Fields {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return nil
	}
	s := q.value.Struct
	if s == nil {
		q.mismatch(StructKind)
		return nil
	}
	fs := make(Fields, len(s.Members))
	for i, m := range s.Members {
		fs[i] = Field{Name: m.Name, Value: (&Query{value: m.Value, err: q.err}).Any()}
	}
	if q.Err() != nil {
		return nil
	}
	return fs
}

// Map returns all members of an XML-RPC struct.
func (q *Query) Map() map[string]*Query {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty map
		return nil
	}
	// is map already created?
	if q.lookup != nil {
		return q.lookup
	}
	// create map
	s := q.value.Struct
	if s == nil {
		q.mismatch(StructKind)
		return nil
	}
	q.lookup = make(map[string]*Query)
	for _, m := range s.Members {
		q.lookup[m.Name] = &Query{value: m.Value, err: q.err}
	}
	return q.lookup
}

// key gets the specified member from a struct.
func (q *Query) key(name string, must bool) *Query {
	m := q.Map()
	// previous error?
	if q.Err() != nil {
		return &Query{err: q.err}
	}
	// lookup
	f, ok := m[name]
	if !ok {
		if must {
			*q.err = fmt.Errorf("Field not found: %s", name)
		}
		return &Query{err: q.err}
	}
	return f
}

// Key sets an error, if the specified member is missing.
func (q *Query) Key(name string) *Query {
	return q.key(name, true)
}

// TryKey does not set an error, if the specified member is missing.
func (q *Query) TryKey(name string) *Query {
	return q.key(name, false)
}

// Slice returns all array elements.
func (q *Query) Slice() []*Query {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty slice
		return nil
	}
	// array already created?
	if q.array != nil {
		return q.array
	}
	// create array
	a := q.value.Array
	if a == nil {
		q.mismatch(ArrayKind)
		return nil
	}
	q.array = make([]*Query, len(a.Data))
	for i, v := range a.Data {
		q.array[i] = &Query{value: v, err: q.err}
	}
	return q.array
}

// Strings returns a string array.
func (q *Query) Strings() []string {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		// return empty slice
		return nil
	}
	s := q.Slice()
	r := make([]string, 0, len(s))
	for _, e := range s {
		r = append(r, e.String())
	}
	if q.Err() != nil {
		return nil
	}
	return r
}

// Ints returns an int array.
func (q *Query) Ints() []int {
	// previous error or empty optional?
	if q.Err() != nil || q.value == nil {
		return nil
	}
	s := q.Slice()
	r := make([]int, 0, len(s))
	for _, e := range s {
		r = append(r, e.Int())
	}
	if q.Err() != nil {
		return nil
	}
	return r
}

// Idx returns the array element at i.
func (q *Query) Idx(i int) *Query {
	s := q.Slice()
	// previous error
	if q.Err() != nil {
		return &Query{err: q.err}
	}
	// check bounds
	if i < 0 || i >= len(s) {
		*q.err = fmt.Errorf("Index out of bounds (array length: %d): %d", len(s), i)
		return &Query{err: q.err}
	}
	return s[i]
}

// Value returns the wrapped Value.
func (q *Query) Value() *Value {
	return q.value
}
