// Package wire defines the envelopes exchanged on the account channel and
// their google.protobuf.Struct form used on the gRPC transport.
package wire

import "encoding/json"

// Kind names a request type on the account channel.
type Kind string

const (
	KindGetUserByToken         Kind = "GET_USER_BY_TOKEN"
	KindGenerateNewToken       Kind = "GENERATE_NEW_TOKEN"
	KindGenerateNewAccessToken Kind = "GENERATE_NEW_ACCESS_TOKEN"
	KindChangeUserPassword     Kind = "CHANGE_USER_PASSWORD"
	KindRegisterNewUser        Kind = "REGISTER_NEW_USER"
	KindProviderToken          Kind = "GENERATE_NEW_TOKEN_BASED_ON_USER_PROVIDER"
	KindLogout                 Kind = "LOGOUT"
)

// Request is an inbound message.
type Request struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Error is the failure half of a Response. Code follows HTTP status
// semantics.
type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// Response is either a success carrying Body or a failure carrying Error.
type Response struct {
	OK    bool            `json:"ok"`
	Body  json.RawMessage `json:"body,omitempty"`
	Error *Error          `json:"error,omitempty"`
}

var emptyBody = json.RawMessage(`{}`)

// Success wraps body. A nil body becomes an empty object.
func Success(body any) (Response, error) {
	if body == nil {
		return Response{OK: true, Body: emptyBody}, nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}
	return Response{OK: true, Body: raw}, nil
}

// Failure builds an error envelope.
func Failure(code int, message string) Response {
	return Response{Error: &Error{Message: message, Code: code}}
}

// NewRequest marshals payload into a Request of the given kind.
func NewRequest(kind Kind, payload any) (Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Kind: kind, Payload: raw}, nil
}
