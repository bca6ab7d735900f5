package xmlrpc

import (
	"errors"
	"reflect"
	"testing"
)

func TestQuery_Int(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    int
		errWanted bool
	}{
		{Value{}, 0, true},
		{Value{I4: ""}, 0, true},
		{Value{I4: "123"}, 123, false},
		{Value{Int: "456"}, 456, false},
		{Value{Int: "x"}, 0, true},
	}
	for _, c := range cases {
		e := Q(&c.in)
		i := e.Int()
		err := e.Err()
		if i != c.wanted || (err != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %d %v", c.in, i, err)
		}
	}
}

func TestQuery_Boolean(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    bool
		errWanted bool
	}{
		{Value{}, false, true},
		{Value{Boolean: "2"}, false, true},
		{Value{Boolean: "0"}, false, false},
		{Value{Boolean: "1"}, true, false},
	}
	for _, c := range cases {
		u := Q(&c.in)
		b := u.Bool()
		err := u.Err()
		if b != c.wanted || (err != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %t %v", c.in, b, err)
		}
	}
}

func TestQuery_String(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    string
		errWanted bool
	}{
		{Value{ElemString: "abc"}, "abc", false},
		{Value{FlatString: " def"}, " def", false},
		{Value{ElemString: "abc", FlatString: "def"}, "abc", false},
		{Value{}, "", false},
		{Value{Int: "1"}, "", true},
	}
	for _, c := range cases {
		u := Q(&c.in)
		s := u.String()
		if s != c.wanted || (u.Err() != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %q %v", c.in, s, u.Err())
		}
	}
}

func TestQuery_Double(t *testing.T) {
	cases := []struct {
		in        Value
		wanted    float64
		errWanted bool
	}{
		{Value{}, 0.0, true},
		{Value{Double: "a"}, 0.0, true},
		{Value{Double: "0"}, 0.0, false},
		{Value{Double: "1"}, 1.0, false},
		{Value{Double: "-1e3"}, -1000.0, false},
	}
	for _, c := range cases {
		u := Q(&c.in)
		d := u.Float64()
		err := u.Err()
		if d != c.wanted || (err != nil) != c.errWanted {
			t.Errorf("unexpected result for %v: %g %v", c.in, d, err)
		}
	}
}

func TestQuery_TypeMismatch(t *testing.T) {
	e := Q(NewString("abc"))
	e.Int()
	if !errors.Is(e.Err(), ErrTypeMismatch) {
		t.Errorf("unexpected error: %v", e.Err())
	}
	if e.Err().Error() != "Type mismatch: int expected, got string" {
		t.Errorf("unexpected message: %v", e.Err())
	}

	e = Q(NewInt(1))
	e.Slice()
	if !errors.Is(e.Err(), ErrTypeMismatch) {
		t.Errorf("unexpected error: %v", e.Err())
	}

	e = Q(NewInts([]int{1}))
	e.Map()
	if !errors.Is(e.Err(), ErrTypeMismatch) {
		t.Errorf("unexpected error: %v", e.Err())
	}
}

func TestQuery_Key(t *testing.T) {
	e := Q(&Value{Struct: &Struct{}})
	e.Key("unknown")
	err := e.Err()
	if err == nil {
		t.Error("error expected")
	}

	e = Q(
		&Value{
			Struct: &Struct{
				Members: []*Member{
					{"name1", &Value{I4: "123"}},
					{"name2", &Value{ElemString: "abc"}},
				},
			},
		},
	)

	e.Key("unknown")
	err = e.Err()
	if err == nil {
		t.Error("error expected")
	}
	*e.err = nil

	f := e.Key("name1")
	err = e.Err()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	i := f.Int()
	err = f.Err()
	if err != nil || i != 123 {
		t.Errorf("unexpected result: %d %v", i, err)
	}

	s := e.Key("name2").String()
	err = e.Err()
	if err != nil || s != "abc" {
		t.Errorf("unexpected result: %s %v", s, err)
	}

	s = e.Key("name2").Key("unknown").Key("unknown2").String()
	err = e.Err()
	if err == nil || s != "" {
		t.Errorf("unexpected result: %s %v", s, err)
	}
}

func TestQuery_TryKey(t *testing.T) {
	e := Q(
		&Value{
			Struct: &Struct{
				Members: []*Member{
					{"name1", &Value{I4: "123"}},
					{"name2", &Value{ElemString: "abc"}},
				},
			},
		},
	)
	i := e.TryKey("name1").Int()
	if i != 123 || e.Err() != nil {
		t.Errorf("unexpected result: %d %v", i, e.Err())
	}
	i = e.TryKey("unknown").Int()
	if i != 0 || e.Err() != nil {
		t.Errorf("unexpected result: %d %v", i, e.Err())
	}
	i = e.TryKey("name1").TryKey("unknown").Int()
	if i != 0 || e.Err() == nil {
		t.Errorf("unexpected result: %d %v", i, e.Err())
	}
}

func TestQuery_Array(t *testing.T) {
	e := Q(
		&Value{
			Array: &Array{
				[]*Value{
					{FlatString: "abc"},
					{I4: "4"},
				},
			},
		},
	)
	if len(e.Slice()) != 2 {
		t.Fatal("invalid length")
	}
	s := e.Slice()[0].String()
	i := e.Slice()[1].Int()
	if s != "abc" || i != 4 || e.Err() != nil {
		t.Errorf("unexpected result: %s %d %v", s, i, e.Err())
	}
	e.Idx(2)
	if e.Err() == nil {
		t.Error("error expected")
	}
	*e.err = nil
	e.Slice()[0].Int()
	if e.Err() == nil {
		t.Error("error expected")
	}
}

func TestQuery_StringsInts(t *testing.T) {
	e := Q(
		&Value{
			Array: &Array{
				[]*Value{
					{FlatString: "abc"},
					{ElemString: "def"},
				},
			},
		},
	)
	s := e.Strings()
	if e.Err() != nil {
		t.Error(e.Err())
	}
	if !reflect.DeepEqual(s, []string{"abc", "def"}) {
		t.Error("invalid result: ", s)
	}

	e = Q(&Value{Array: &Array{}})
	is := e.Ints()
	if e.Err() != nil || is == nil || len(is) != 0 {
		t.Errorf("unexpected result: %#v %v", is, e.Err())
	}

	e = Q(NewInts([]int{3, 1, 2}))
	is = e.Ints()
	if !reflect.DeepEqual(is, []int{3, 1, 2}) {
		t.Errorf("unexpected result: %v", is)
	}

	e = Q(&Value{Array: &Array{[]*Value{NewInt(1), NewString("x")}}})
	is = e.Ints()
	if is != nil || e.Err() == nil {
		t.Errorf("unexpected result: %v %v", is, e.Err())
	}
}

func TestQuery_Any(t *testing.T) {
	cases := []struct {
		v       *Value
		want    interface{}
		wantErr bool
	}{
		{&Value{I4: "123"}, int(123), false},
		{&Value{Boolean: "1"}, true, false},
		{&Value{Double: "123.456"}, 123.456, false},
		{&Value{FlatString: "abc"}, "abc", false},
		{&Value{DateTime: "20200816T20:28:50"}, "20200816T20:28:50", false},
		{&Value{Base64: "SGVsbG8="}, "SGVsbG8=", false},
		{&Value{Double: "a"}, 0, true},
		{nil, nil, false},
		{
			&Value{Array: &Array{[]*Value{NewInt(1), NewString("a")}}},
			[]interface{}{1, "a"},
			false,
		},
		{
			&Value{Struct: &Struct{[]*Member{
				{"id", NewInt(7)},
				{"tags", NewStrings([]string{"x"})},
			}}},
			map[string]interface{}{"id": 7, "tags": []interface{}{"x"}},
			false,
		},
	}
	for _, c := range cases {
		e := Q(c.v)
		v := e.Any()
		if (e.Err() != nil) && !c.wantErr {
			t.Errorf("unexpected error: %v", e.Err())
		} else if (e.Err() == nil) && c.wantErr {
			t.Error("missing error")
		}
		if e.Err() == nil && !reflect.DeepEqual(v, c.want) {
			t.Errorf("unexpected value: %v, expected: %v", v, c.want)
		}
	}
}

func TestQuery_Fields(t *testing.T) {
	e := Q(&Value{Struct: &Struct{[]*Member{
		{"b", NewString("x")},
		{"a", NewInt(1)},
	}}})
	fs := e.Fields()
	want := Fields{{"b", "x"}, {"a", 1}}
	if e.Err() != nil || !reflect.DeepEqual(fs, want) {
		t.Errorf("unexpected fields: %v %v", fs, e.Err())
	}

	e = Q(NewInt(1))
	if e.Fields() != nil || !errors.Is(e.Err(), ErrTypeMismatch) {
		t.Errorf("unexpected error: %v", e.Err())
	}
}

func TestQuery_IsEmpty(t *testing.T) {
	if !Q(nil).IsEmpty() || !Q(&Value{}).IsEmpty() {
		t.Error("empty expected")
	}
	if Q(NewInt(0)).IsEmpty() || !Q(NewString("a")).IsNotEmpty() {
		t.Error("not empty expected")
	}
}
