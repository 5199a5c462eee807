package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/crud"
	"github.com/mmynk/backstack/internal/middleware"
)

// ResourceServiceName is the fully-qualified name of the ResourceService.
const ResourceServiceName = "backstack.v1.ResourceService"

// ResourceService procedure paths.
const (
	ResourceServiceListProcedure   = "/" + ResourceServiceName + "/List"
	ResourceServiceGetProcedure    = "/" + ResourceServiceName + "/Get"
	ResourceServiceCreateProcedure = "/" + ResourceServiceName + "/Create"
	ResourceServiceUpdateProcedure = "/" + ResourceServiceName + "/Update"
	ResourceServiceDeleteProcedure = "/" + ResourceServiceName + "/Delete"
)

// ResourceService mirrors the REST endpoints as RPCs. Every request names the
// resource and carries path captures, query parameters and an optional payload:
//
//	{"resource": "notes", "path": {"id": "3"}, "query": {"page[size]": "10"},
//	 "payload": {"title": "Hello"}, "partial": true}
type ResourceService struct {
	engine    *crud.Engine
	resources map[string]*crud.Resource
	logger    *slog.Logger
}

// NewResourceService creates a service serving the given resources by name.
func NewResourceService(engine *crud.Engine, resources map[string]*crud.Resource, logger *slog.Logger) *ResourceService {
	return &ResourceService{
		engine:    engine,
		resources: resources,
		logger:    logger,
	}
}

// NewResourceServiceHandler builds an HTTP handler serving svc and returns the
// path on which to mount it.
func NewResourceServiceHandler(svc *ResourceService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ResourceServiceListProcedure, connect.NewUnaryHandler(ResourceServiceListProcedure, svc.List, opts...))
	mux.Handle(ResourceServiceGetProcedure, connect.NewUnaryHandler(ResourceServiceGetProcedure, svc.Get, opts...))
	mux.Handle(ResourceServiceCreateProcedure, connect.NewUnaryHandler(ResourceServiceCreateProcedure, svc.Create, opts...))
	mux.Handle(ResourceServiceUpdateProcedure, connect.NewUnaryHandler(ResourceServiceUpdateProcedure, svc.Update, opts...))
	mux.Handle(ResourceServiceDeleteProcedure, connect.NewUnaryHandler(ResourceServiceDeleteProcedure, svc.Delete, opts...))
	return "/" + ResourceServiceName + "/", mux
}

// resolve decodes the common request fields.
func (s *ResourceService) resolve(ctx context.Context, req *connect.Request[structpb.Struct]) (*crud.Resource, *crud.Request, error) {
	fields := req.Msg.GetFields()
	name := fields["resource"].GetStringValue()
	res, ok := s.resources[name]
	if !ok {
		return nil, nil, apperr.Field("resource", apperr.CodeInvalidInput)
	}

	path := map[string]string{}
	for k, v := range fields["path"].GetStructValue().GetFields() {
		path[k] = scalar(v)
	}

	query := url.Values{}
	for k, v := range fields["query"].GetStructValue().GetFields() {
		if list := v.GetListValue(); list != nil {
			for _, item := range list.GetValues() {
				query.Add(k, scalar(item))
			}
			continue
		}
		query.Add(k, scalar(v))
	}

	return res, &crud.Request{
		Principal: middleware.GetPrincipal(ctx),
		Origin:    middleware.ClientAddr(req.Header(), req.Peer().Addr),
		Path:      path,
		Query:     query,
	}, nil
}

// scalar renders a path or query value as it would appear in a URL.
func scalar(v *structpb.Value) string {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(k.BoolValue)
	default:
		return ""
	}
}

func payloadOf(req *connect.Request[structpb.Struct]) map[string]any {
	p := req.Msg.GetFields()["payload"].GetStructValue()
	if p == nil {
		return map[string]any{}
	}
	return p.AsMap()
}

// List returns one page of a resource collection.
func (s *ResourceService) List(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	res, creq, err := s.resolve(ctx, req)
	if err != nil {
		return nil, connectError(err)
	}
	page, err := s.engine.List(ctx, res, creq)
	if err != nil {
		return nil, connectError(err)
	}
	msg, err := toStruct(page)
	if err != nil {
		s.logger.Error("Failed to encode page", "resource", res.Descriptor.Name, "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(msg), nil
}

// Get returns a single resource.
func (s *ResourceService) Get(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	res, creq, err := s.resolve(ctx, req)
	if err != nil {
		return nil, connectError(err)
	}
	m, err := s.engine.Get(ctx, res, creq)
	if err != nil {
		return nil, connectError(err)
	}
	msg, err := toStruct(m)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(msg), nil
}

// Create creates a resource from the payload.
func (s *ResourceService) Create(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	res, creq, err := s.resolve(ctx, req)
	if err != nil {
		return nil, connectError(err)
	}
	m, err := s.engine.Create(ctx, res, creq, payloadOf(req))
	if err != nil {
		return nil, connectError(err)
	}
	msg, err := toStruct(m)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(msg), nil
}

// Update applies the payload to a resource. "partial" selects PATCH semantics.
func (s *ResourceService) Update(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	res, creq, err := s.resolve(ctx, req)
	if err != nil {
		return nil, connectError(err)
	}
	partial := req.Msg.GetFields()["partial"].GetBoolValue()
	m, err := s.engine.Update(ctx, res, creq, payloadOf(req), partial)
	if err != nil {
		return nil, connectError(err)
	}
	msg, err := toStruct(m)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(msg), nil
}

// Delete deletes a resource.
func (s *ResourceService) Delete(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	res, creq, err := s.resolve(ctx, req)
	if err != nil {
		return nil, connectError(err)
	}
	if err := s.engine.Delete(ctx, res, creq); err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&structpb.Struct{}), nil
}
