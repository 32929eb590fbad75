package llmclient

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodecName is registered as a gRPC content-subtype so calls made with
// grpc.CallContentSubtype(jsonCodecName) marshal over JSON instead of the
// default protobuf wire codec. There is no protoc-generated Go package for
// proto/llm.proto in this repo, so rather than fabricate one, this codec
// lets the real google.golang.org/grpc transport carry plain Go structs
// that mirror the .proto message shapes field-for-field.
const jsonCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return jsonCodecName }
