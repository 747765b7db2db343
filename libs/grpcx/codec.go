package grpcx

import (
	"fmt"

	json "github.com/goccy/go-json"
	"google.golang.org/grpc/encoding"
)

// JSONCodecName is the content-subtype negotiated by clients using JSONCodec
// ("application/grpc+json").
const JSONCodecName = "json"

// JSONCodec carries plain Go structs over gRPC without generated protobuf types.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("grpc json marshal: %w", err)
	}
	return b, nil
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("grpc json unmarshal: %w", err)
	}
	return nil
}

func (JSONCodec) Name() string { return JSONCodecName }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}
