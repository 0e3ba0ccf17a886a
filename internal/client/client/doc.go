// Package client talks to the account service over gRPC.
//
// Every call is a single unary Request carrying a kind-tagged envelope.
// Transport failures are mapped to ErrUnavailable; error envelopes come
// back as *RemoteError, which matches ErrUnauthorized and ErrConflict
// through errors.Is.
package client
