// Package server exposes the dispatcher over HTTP.
//
//	POST   /v1/objects/{type}            create, body {"attributes":{"NAME":"value"}}
//	GET    /v1/objects/{type}/{oid}      get, ?attr=NAME repeated
//	PATCH  /v1/objects/{type}/{oid}      set, body {"attribute":"NAME","value":"value"}
//	DELETE /v1/objects/{type}/{oid}      remove
//	GET    /v1/objects                   list live objects, ?type= filters
//	GET    /v1/types                     list object types
//	GET    /v1/types/{type}              attribute metadata of one type
//	GET    /metrics, /healthz
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newtron-network/sairedis/pkg/api"
	"github.com/newtron-network/sairedis/pkg/meta"
	"github.com/newtron-network/sairedis/pkg/sai"
	"github.com/newtron-network/sairedis/pkg/util"
)

// Server serves one api.Table.
type Server struct {
	table    *api.Table
	schema   meta.Schema
	gatherer prometheus.Gatherer
	router   *mux.Router
	http     *http.Server
}

// CreateRequest is the body of a create.
type CreateRequest struct {
	Attributes map[string]string `json:"attributes"`
}

// SetRequest is the body of a set.
type SetRequest struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

// ObjectResponse describes one object.
type ObjectResponse struct {
	ObjectType string            `json:"object_type"`
	OID        string            `json:"oid"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ErrorResponse carries the SAI status of a failed request.
type ErrorResponse struct {
	Status     int32  `json:"status"`
	StatusName string `json:"status_name"`
	Error      string `json:"error"`
}

// New builds the router. A nil gatherer serves the default registry.
func New(table *api.Table, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		table:    table,
		schema:   table.Dispatcher().Schema(),
		gatherer: gatherer,
		router:   mux.NewRouter(),
	}

	s.router.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	v1 := s.router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/types", s.listTypesHandler).Methods("GET")
	v1.HandleFunc("/types/{type}", s.describeTypeHandler).Methods("GET")
	v1.HandleFunc("/objects", s.listObjectsHandler).Methods("GET")
	v1.HandleFunc("/objects/{type}", s.createHandler).Methods("POST")
	v1.HandleFunc("/objects/{type}/{oid}", s.getHandler).Methods("GET")
	v1.HandleFunc("/objects/{type}/{oid}", s.setHandler).Methods("PATCH")
	v1.HandleFunc("/objects/{type}/{oid}", s.removeHandler).Methods("DELETE")

	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on l until Shutdown.
func (s *Server) Serve(l net.Listener) error {
	util.WithField("listen", l.Addr().String()).Info("Serving REST API")
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"objects": len(s.table.Dispatcher().Objects(sai.ObjectTypeNull)),
	})
}

func (s *Server) listTypesHandler(w http.ResponseWriter, r *http.Request) {
	var types []string
	for _, t := range sai.ObjectTypes() {
		if _, ok := s.schema.SchemaFor(t); ok {
			types = append(types, t.ShortName())
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"types": types})
}

type attrInfo struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Access    string   `json:"access"`
	Mandatory bool     `json:"mandatory,omitempty"`
	Enum      []string `json:"enum,omitempty"`
}

func (s *Server) describeTypeHandler(w http.ResponseWriter, r *http.Request) {
	t, err := sai.ParseObjectType(mux.Vars(r)["type"])
	if err != nil {
		writeError(w, err)
		return
	}
	sch, ok := s.schema.SchemaFor(t)
	if !ok {
		writeError(w, fmt.Errorf("%s: %w", t, sai.ErrInvalidObjectType))
		return
	}

	var attrs []attrInfo
	for _, md := range sch.Attrs() {
		attrs = append(attrs, attrInfo{
			ID:        string(md.ID),
			Kind:      md.Kind.String(),
			Access:    string(md.Access),
			Mandatory: md.Mandatory,
			Enum:      md.Enum,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object_type": t.String(),
		"attributes":  attrs,
	})
}

func (s *Server) listObjectsHandler(w http.ResponseWriter, r *http.Request) {
	t := sai.ObjectTypeNull
	if name := r.URL.Query().Get("type"); name != "" {
		var err error
		if t, err = sai.ParseObjectType(name); err != nil {
			writeError(w, err)
			return
		}
	}

	objects := []ObjectResponse{}
	for _, k := range s.table.Dispatcher().Objects(t) {
		objects = append(objects, ObjectResponse{ObjectType: k.Type.String(), OID: k.ID.String()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"objects": objects})
}

func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	obj, err := s.object(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding body: %v", sai.StatusInvalidParameter, err))
		return
	}

	// map order is random; sort so attribute indexes in errors are stable
	names := make([]string, 0, len(req.Attributes))
	for name := range req.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := make([]sai.Attribute, 0, len(names))
	for _, name := range names {
		a, err := meta.ParseAttribute(s.schema, obj.Type, sai.AttrID(name), req.Attributes[name])
		if err != nil {
			writeError(w, err)
			return
		}
		attrs = append(attrs, a)
	}

	id, err := obj.Create(attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ObjectResponse{ObjectType: obj.Type.String(), OID: id.String()})
}

func (s *Server) getHandler(w http.ResponseWriter, r *http.Request) {
	obj, id, err := s.objectID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// attr may repeat or carry a comma list: ?attr=A&attr=B or ?attr=A,B
	var ids []sai.AttrID
	for _, param := range r.URL.Query()["attr"] {
		for _, n := range util.SplitCommaSeparated(param) {
			ids = append(ids, sai.AttrID(n))
		}
	}
	if len(ids) == 0 {
		writeError(w, fmt.Errorf("%w: at least one attr query parameter is required", sai.StatusInvalidParameter))
		return
	}

	attrs := sai.Request(ids...)
	if err := obj.Get(id, attrs); err != nil {
		writeError(w, err)
		return
	}

	resp := ObjectResponse{ObjectType: obj.Type.String(), OID: id.String(), Attributes: make(map[string]string, len(attrs))}
	for _, a := range attrs {
		resp.Attributes[string(a.ID)] = meta.FormatAttribute(s.schema, obj.Type, a)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) setHandler(w http.ResponseWriter, r *http.Request) {
	obj, id, err := s.objectID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decoding body: %v", sai.StatusInvalidParameter, err))
		return
	}
	attr, err := meta.ParseAttribute(s.schema, obj.Type, sai.AttrID(req.Attribute), req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := obj.Set(id, attr); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) removeHandler(w http.ResponseWriter, r *http.Request) {
	obj, id, err := s.objectID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := obj.Remove(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) object(r *http.Request) (*api.ObjectAPI, error) {
	t, err := sai.ParseObjectType(mux.Vars(r)["type"])
	if err != nil {
		return nil, err
	}
	return s.table.Object(t)
}

func (s *Server) objectID(r *http.Request) (*api.ObjectAPI, sai.ObjectID, error) {
	obj, err := s.object(r)
	if err != nil {
		return nil, sai.NullObjectID, err
	}
	id, err := sai.ParseObjectID(mux.Vars(r)["oid"])
	if err != nil {
		return nil, sai.NullObjectID, fmt.Errorf("%w: %v", sai.StatusInvalidObjectID, err)
	}
	return obj, id, nil
}

// HTTPStatus maps a dispatcher error to an HTTP status code.
func HTTPStatus(err error) int {
	var ae *sai.AttributeError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, sai.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, sai.ErrObjectTypeMismatch):
		return http.StatusConflict
	case errors.Is(err, sai.ErrBackendFailure):
		return http.StatusBadGateway
	case errors.As(err, &ae), errors.Is(err, sai.ErrInvalidObjectType):
		return http.StatusBadRequest
	}

	switch sai.StatusOf(err) {
	case sai.StatusInvalidParameter, sai.StatusInvalidObjectID:
		return http.StatusBadRequest
	case sai.StatusNotImplemented:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := sai.StatusOf(err)
	writeJSON(w, HTTPStatus(err), ErrorResponse{
		Status:     int32(status),
		StatusName: status.String(),
		Error:      err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Warnf("encoding response: %v", err)
	}
}
