// Package service exposes the crud engine and account operations over Connect
// RPC. Messages are google.protobuf.Struct values, so no generated code is
// needed; handlers accept the Connect, gRPC and gRPC-Web protocols.
package service

import (
	"errors"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/backstack/internal/apperr"
	"github.com/mmynk/backstack/internal/schema"
)

// connectError converts err into a Connect error carrying the structured
// payload as an error detail. The message holds codes only; causes stay in
// the server logs.
func connectError(err error) *connect.Error {
	appErr := apperr.Translate(err)
	cerr := connect.NewError(appErr.ConnectCode(), errors.New(appErr.Public()))
	if payload, pErr := structpb.NewStruct(appErr.Payload()); pErr == nil {
		if detail, dErr := connect.NewErrorDetail(payload); dErr == nil {
			cerr.AddDetail(detail)
		}
	}
	return cerr
}

// ErrorPayload extracts the structured payload attached to a Connect error.
func ErrorPayload(err error) (map[string]any, bool) {
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		return nil, false
	}
	for _, d := range cerr.Details() {
		msg, vErr := d.Value()
		if vErr != nil {
			continue
		}
		if s, ok := msg.(*structpb.Struct); ok {
			return s.AsMap(), true
		}
	}
	return nil, false
}

// toStruct renders v through its json tags.
func toStruct(v any) (*structpb.Struct, error) {
	m, err := schema.Dump(v)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
