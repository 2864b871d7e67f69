package grpcserver

import (
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

// CodecName is the content-subtype of the catalog service: clients call with
// grpc.CallContentSubtype(CodecName), i.e. "application/grpc+json".
const CodecName = "json"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return jsonAPI.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return jsonAPI.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
