// Package common contains shared constants and sentinel errors used across
// gophauth components.
package common

// RequestIDHeaderName is the gRPC metadata key that carries the caller's
// correlation id. The server generates one when it is absent.
const RequestIDHeaderName = "x-request-id"

// ServiceName is the fully qualified gRPC service name of the account service.
const ServiceName = "gophauth.v1.AccountService"

// RequestMethod is the full method name of the single request/reply RPC.
const RequestMethod = "/" + ServiceName + "/Request"
