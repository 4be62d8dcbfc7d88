// Package service exposes the front-of-house components over Connect RPC.
//
// Messages are plain Go structs carried as JSON; amounts travel as decimal
// strings so no precision is lost on the wire.
package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// Codec marshals messages as JSON. It replaces Connect's default "json"
// codec, which only accepts protobuf messages.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) { return json.Marshal(msg) }

// Unmarshal implements connect.Codec.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

// NewClient returns a client for one procedure that speaks the service's
// JSON codec. baseURL is the server root, procedure the full path
// (e.g. OrderServiceCreateOrderProcedure).
func NewClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts ...connect.ClientOption) *connect.Client[Req, Res] {
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return connect.NewClient[Req, Res](httpClient, baseURL+procedure, opts...)
}
