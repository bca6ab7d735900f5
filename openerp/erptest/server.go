// Package erptest provides an in-memory ERP server speaking the XML-RPC API
// for tests.
package erptest

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sort"
	"sync"

	"github.com/mdzio/go-logging"

	"github.com/mdzio/go-openerp/openerp"
	"github.com/mdzio/go-openerp/xmlrpc"
)

// Fault codes of the server.
const (
	FaultBadArguments = 1
	FaultBadModel     = 2
	FaultBadMethod    = 3
	FaultNoRecord     = 4
)

// Default settings of a new Server.
const (
	DefaultDatabase = "demo"
	DefaultVersion  = "8.0"
	DefaultTimezone = "Europe/Berlin"
	AboutText       = "See http://openerp.com"
)

var log = logging.Get("erptest")

type user struct {
	uid      int
	password string
}

type model struct {
	nextID  int
	records map[int]map[string]interface{}
}

// Server is an ERP server with an in-memory store. Models must be registered
// with AddModel and users with AddUser.
type Server struct {
	*httptest.Server
	Database string
	Version  string
	Timezone string

	mutex  sync.Mutex
	users  map[string]*user
	models map[string]*model
	paths  []string
}

// NewServer starts a new Server. It must be closed after use.
func NewServer() *Server {
	s := &Server{
		Database: DefaultDatabase,
		Version:  DefaultVersion,
		Timezone: DefaultTimezone,
		users:    make(map[string]*user),
		models:   make(map[string]*model),
	}

	common := &xmlrpc.BasicDispatcher{}
	common.HandleFunc("login", s.login)
	common.HandleFunc("version", s.version)
	common.HandleFunc("about", s.about)
	common.HandleFunc("timezone_get", s.timezone)
	common.HandleUnknownFunc(unknownMethod)

	object := &xmlrpc.BasicDispatcher{}
	object.HandleFunc("execute", s.execute)
	object.HandleUnknownFunc(unknownMethod)

	mux := http.NewServeMux()
	mux.Handle(openerp.CommonPath, &xmlrpc.Handler{Dispatcher: common})
	mux.Handle(openerp.ObjectPath, &xmlrpc.Handler{Dispatcher: object})
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mutex.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.mutex.Unlock()
		mux.ServeHTTP(w, r)
	}))
	return s
}

// AddUser registers a user and returns its id.
func (s *Server) AddUser(login, password string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	uid := len(s.users) + 1
	s.users[login] = &user{uid: uid, password: password}
	return uid
}

// AddModel registers a model.
func (s *Server) AddModel(name string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.models[name]; !ok {
		s.models[name] = &model{nextID: 1, records: make(map[int]map[string]interface{})}
	}
}

// Record returns a copy of a stored record.
func (s *Server) Record(modelName string, id int) (map[string]interface{}, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	m, ok := s.models[modelName]
	if !ok {
		return nil, false
	}
	r, ok := m.records[id]
	if !ok {
		return nil, false
	}
	c := make(map[string]interface{}, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c, true
}

// Paths returns the request paths in the order of reception.
func (s *Server) Paths() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]string(nil), s.paths...)
}

func accessDenied() error {
	return &xmlrpc.Fault{Value: &xmlrpc.Value{Struct: &xmlrpc.Struct{Members: []*xmlrpc.Member{
		{Name: "faultCode", Value: xmlrpc.NewString("Access Denied")},
		{Name: "faultString", Value: xmlrpc.NewString("Traceback: AccessDenied")},
	}}}}
}

// unknownMethod answers remote methods, which the server does not provide, e.g.
// db_list or execute_kw.
func unknownMethod(name string, _ *xmlrpc.Value) (*xmlrpc.Value, error) {
	log.Debugf("Call of unsupported method %s", name)
	return nil, &xmlrpc.MethodError{Code: FaultBadMethod, Message: "Method not available: " + name}
}

func badArguments(err error) error {
	return &xmlrpc.MethodError{Code: FaultBadArguments, Message: err.Error()}
}

// authenticate must be called with locked mutex.
func (s *Server) authenticate(db, login, password string) (*user, bool) {
	u, ok := s.users[login]
	if !ok || db != s.Database || u.password != password {
		return nil, false
	}
	return u, true
}

func (s *Server) login(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	db, login, password := q.Idx(0).String(), q.Idx(1).String(), q.Idx(2).String()
	if q.Err() != nil {
		return nil, badArguments(q.Err())
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	u, ok := s.authenticate(db, login, password)
	if !ok {
		log.Debugf("Login of %s on %s rejected", login, db)
		return xmlrpc.NewBool(false), nil
	}
	return xmlrpc.NewInt(u.uid), nil
}

func (s *Server) version(*xmlrpc.Value) (*xmlrpc.Value, error) {
	return xmlrpc.NewValue(xmlrpc.Fields{
		{Name: "server_version", Value: s.Version},
		{Name: "server_version_info", Value: []interface{}{8, 0, 0, "final", 0}},
		{Name: "server_serie", Value: s.Version},
		{Name: "protocol_version", Value: 1},
	})
}

func (s *Server) about(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	var extended bool
	if len(q.Slice()) > 0 {
		extended = q.Idx(0).Bool()
	}
	if q.Err() != nil {
		return nil, badArguments(q.Err())
	}
	if extended {
		return xmlrpc.NewValue([]interface{}{AboutText, s.Version})
	}
	return xmlrpc.NewString(AboutText), nil
}

func (s *Server) timezone(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	db, login, password := q.Idx(0).String(), q.Idx(1).String(), q.Idx(2).String()
	if q.Err() != nil {
		return nil, badArguments(q.Err())
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, ok := s.authenticate(db, login, password); !ok {
		return nil, accessDenied()
	}
	return xmlrpc.NewString(s.Timezone), nil
}

func (s *Server) execute(args *xmlrpc.Value) (*xmlrpc.Value, error) {
	q := xmlrpc.Q(args)
	db, uid, password := q.Idx(0).String(), q.Idx(1).Int(), q.Idx(2).String()
	modelName, method := q.Idx(3).String(), q.Idx(4).String()
	if q.Err() != nil {
		return nil, badArguments(q.Err())
	}
	rest := q.Slice()[5:]
	log.Debugf("Executing %s on model %s", method, modelName)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	// authenticate
	var authorized bool
	for _, u := range s.users {
		if u.uid == uid && u.password == password && db == s.Database {
			authorized = true
		}
	}
	if !authorized {
		return nil, accessDenied()
	}

	m, ok := s.models[modelName]
	if !ok {
		return nil, &xmlrpc.MethodError{Code: FaultBadModel, Message: "Object " + modelName + " doesn't exist"}
	}
	var res *xmlrpc.Value
	var err error
	switch method {
	case "create":
		res, err = m.create(rest)
	case "search":
		res, err = m.search(rest)
	case "read":
		res, err = m.read(rest)
	case "write":
		res, err = m.write(rest)
	case "unlink":
		res, err = m.unlink(rest)
	default:
		return nil, &xmlrpc.MethodError{Code: FaultBadMethod, Message: "Method not available: " + method}
	}
	if err != nil {
		var fault *xmlrpc.MethodError
		if errors.As(err, &fault) {
			return nil, err
		}
		return nil, badArguments(err)
	}
	return res, nil
}

func argCount(args []*xmlrpc.Query, min int) error {
	if len(args) < min {
		return fmt.Errorf("Missing arguments: %d expected, got %d", min, len(args))
	}
	return nil
}

func (m *model) create(args []*xmlrpc.Query) (*xmlrpc.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	values := args[0].Fields()
	if err := args[0].Err(); err != nil {
		return nil, err
	}
	id := m.nextID
	m.nextID++
	r := values.Map()
	r["id"] = id
	m.records[id] = r
	return xmlrpc.NewInt(id), nil
}

func (m *model) ids() []int {
	ids := make([]int, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *model) search(args []*xmlrpc.Query) (*xmlrpc.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	domain, ok := args[0].Any().([]interface{})
	if !ok {
		return nil, errors.New("Domain must be an array")
	}
	offset, limit := 0, 0
	if len(args) > 1 {
		offset = args[1].Int()
	}
	if len(args) > 2 {
		limit = args[2].Int()
	}
	if err := args[0].Err(); err != nil {
		return nil, err
	}
	found := []int{}
	for _, id := range m.ids() {
		ok, err := match(m.records[id], domain)
		if err != nil {
			return nil, err
		}
		if ok {
			found = append(found, id)
		}
	}
	if offset > len(found) {
		offset = len(found)
	}
	found = found[offset:]
	if limit > 0 && limit < len(found) {
		found = found[:limit]
	}
	return xmlrpc.NewInts(found), nil
}

func match(r map[string]interface{}, domain []interface{}) (bool, error) {
	for _, t := range domain {
		term, ok := t.([]interface{})
		if !ok || len(term) != 3 {
			return false, fmt.Errorf("Invalid domain term: %v", t)
		}
		field, _ := term[0].(string)
		op, _ := term[1].(string)
		v := r[field]
		switch op {
		case "=":
			ok = reflect.DeepEqual(v, term[2])
		case "!=":
			ok = !reflect.DeepEqual(v, term[2])
		case "in":
			vs, isList := term[2].([]interface{})
			if !isList {
				return false, fmt.Errorf("List expected for operator in: %v", t)
			}
			ok = false
			for _, e := range vs {
				if reflect.DeepEqual(v, e) {
					ok = true
				}
			}
		default:
			return false, fmt.Errorf("Unsupported operator: %s", op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// fields selects the fields of a record: id first, then the requested fields
// or all fields sorted by name.
func fields(r map[string]interface{}, names []string) xmlrpc.Fields {
	if len(names) == 0 {
		for n := range r {
			if n != "id" {
				names = append(names, n)
			}
		}
		sort.Strings(names)
	}
	fs := xmlrpc.Fields{{Name: "id", Value: r["id"]}}
	for _, n := range names {
		if n == "id" {
			continue
		}
		v, ok := r[n]
		if !ok {
			v = false
		}
		fs = append(fs, xmlrpc.Field{Name: n, Value: v})
	}
	return fs
}

func (m *model) read(args []*xmlrpc.Query) (*xmlrpc.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	var names []string
	if len(args) > 1 {
		names = args[1].Strings()
		if err := args[1].Err(); err != nil {
			return nil, err
		}
	}
	// a single id returns a single record
	if args[0].Kind() == xmlrpc.IntKind {
		id := args[0].Int()
		r, ok := m.records[id]
		if !ok {
			return nil, &xmlrpc.MethodError{Code: FaultNoRecord, Message: fmt.Sprintf("Record %d does not exist", id)}
		}
		return xmlrpc.NewValue(fields(r, names))
	}
	ids := args[0].Ints()
	if err := args[0].Err(); err != nil {
		return nil, err
	}
	recs := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		r, ok := m.records[id]
		if !ok {
			return nil, &xmlrpc.MethodError{Code: FaultNoRecord, Message: fmt.Sprintf("Record %d does not exist", id)}
		}
		recs = append(recs, fields(r, names))
	}
	return xmlrpc.NewValue(recs)
}

func (m *model) write(args []*xmlrpc.Query) (*xmlrpc.Value, error) {
	if err := argCount(args, 2); err != nil {
		return nil, err
	}
	ids := args[0].Ints()
	values := args[1].Fields()
	if err := args[0].Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		r, ok := m.records[id]
		if !ok {
			return nil, &xmlrpc.MethodError{Code: FaultNoRecord, Message: fmt.Sprintf("Record %d does not exist", id)}
		}
		for _, f := range values {
			if f.Name != "id" {
				r[f.Name] = f.Value
			}
		}
	}
	return xmlrpc.NewBool(true), nil
}

func (m *model) unlink(args []*xmlrpc.Query) (*xmlrpc.Value, error) {
	if err := argCount(args, 1); err != nil {
		return nil, err
	}
	ids := args[0].Ints()
	if err := args[0].Err(); err != nil {
		return nil, err
	}
	for _, id := range ids {
		delete(m.records, id)
	}
	return xmlrpc.NewBool(true), nil
}
