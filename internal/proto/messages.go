package proto

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct so the service needs no generated
// code. Keys are snake_case; ids are JSON numbers and must fit in 2^53.

var ErrInvalidMessage = errors.New("invalid message")

type message interface {
	toStruct() (*structpb.Struct, error)
	fromStruct(*structpb.Struct) error
}

type AuthenticateRequest struct {
	Username string
	Secret   string
}

func (m *AuthenticateRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"username": m.Username, "secret": m.Secret})
}

func (m *AuthenticateRequest) fromStruct(s *structpb.Struct) (err error) {
	if m.Username, err = stringField(s, "username"); err != nil {
		return err
	}
	m.Secret, err = stringField(s, "secret")
	return err
}

// LookupRequest is shared by FindByUsername and Exists.
type LookupRequest struct {
	Username string
}

func (m *LookupRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"username": m.Username})
}

func (m *LookupRequest) fromStruct(s *structpb.Struct) (err error) {
	m.Username, err = stringField(s, "username")
	return err
}

type CreateRequest struct {
	Username string
	Secret   string
}

func (m *CreateRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"username": m.Username, "secret": m.Secret})
}

func (m *CreateRequest) fromStruct(s *structpb.Struct) (err error) {
	if m.Username, err = stringField(s, "username"); err != nil {
		return err
	}
	m.Secret, err = stringField(s, "secret")
	return err
}

// UpdateRequest changes the user with the given id. Empty fields are left
// as they are.
type UpdateRequest struct {
	ID       int64
	Username string
	Secret   string
}

func (m *UpdateRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"id": float64(m.ID), "username": m.Username, "secret": m.Secret})
}

func (m *UpdateRequest) fromStruct(s *structpb.Struct) (err error) {
	if m.ID, err = intField(s, "id"); err != nil {
		return err
	}
	if m.Username, err = stringField(s, "username"); err != nil {
		return err
	}
	m.Secret, err = stringField(s, "secret")
	return err
}

// UserReply answers Authenticate, FindByUsername, Create and Update.
// Found is false when no user matched; the remaining fields are then empty.
type UserReply struct {
	Found    bool
	ID       int64
	Username string
	Token    string
}

func (m *UserReply) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"found":    m.Found,
		"id":       float64(m.ID),
		"username": m.Username,
		"token":    m.Token,
	})
}

func (m *UserReply) fromStruct(s *structpb.Struct) (err error) {
	if m.Found, err = boolField(s, "found"); err != nil {
		return err
	}
	if m.ID, err = intField(s, "id"); err != nil {
		return err
	}
	if m.Username, err = stringField(s, "username"); err != nil {
		return err
	}
	m.Token, err = stringField(s, "token")
	return err
}

type ExistsReply struct {
	Exists bool
}

func (m *ExistsReply) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"exists": m.Exists})
}

func (m *ExistsReply) fromStruct(s *structpb.Struct) (err error) {
	m.Exists, err = boolField(s, "exists")
	return err
}

type PingRequest struct{}

func (m *PingRequest) toStruct() (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{}}, nil
}

func (m *PingRequest) fromStruct(*structpb.Struct) error { return nil }

type PingReply struct {
	Status string
}

func (m *PingReply) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"status": m.Status})
}

func (m *PingReply) fromStruct(s *structpb.Struct) (err error) {
	m.Status, err = stringField(s, "status")
	return err
}

func field(s *structpb.Struct, key string) *structpb.Value {
	if s == nil {
		return nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil
	}
	return v
}

func stringField(s *structpb.Struct, key string) (string, error) {
	v := field(s, key)
	if v == nil {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrInvalidMessage, key)
	}
	return sv.StringValue, nil
}

func boolField(s *structpb.Struct, key string) (bool, error) {
	v := field(s, key)
	if v == nil {
		return false, nil
	}
	bv, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %s is not a bool", ErrInvalidMessage, key)
	}
	return bv.BoolValue, nil
}

const maxExactInt = 1 << 53

func intField(s *structpb.Struct, key string) (int64, error) {
	v := field(s, key)
	if v == nil {
		return 0, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidMessage, key)
	}
	n := nv.NumberValue
	if n != math.Trunc(n) || math.Abs(n) > maxExactInt {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrInvalidMessage, key)
	}
	return int64(n), nil
}
