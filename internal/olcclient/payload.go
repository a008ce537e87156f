package olcclient

import "github.com/google/device-infra-sub009/internal/olcpb"

// Codec is the marshal/unmarshal pair the session stub is parameterized
// over. Payload is the caller's plugin configuration type; Output is the
// plugin's result type. The core never inspects either beyond calling
// these two functions.
type Codec[Payload, Output any] struct {
	// TypeUrl tags the AnyPayload so the server (and a human reading a
	// log) can tell which plugin schema is inside.
	TypeUrl string

	MarshalPayload   func(Payload) ([]byte, error)
	UnmarshalOutput  func([]byte) (Output, error)
}

func (c Codec[Payload, Output]) marshalPayload(p Payload) (*olcpb.AnyPayload, error) {
	raw, err := c.MarshalPayload(p)
	if err != nil {
		return nil, err
	}
	return &olcpb.AnyPayload{TypeUrl: c.TypeUrl, Value: raw}, nil
}

func (c Codec[Payload, Output]) unmarshalOutput(env *olcpb.PluginOutputEnvelope) (Output, error) {
	var zero Output
	if env == nil || env.Output == nil {
		return zero, nil
	}
	return c.UnmarshalOutput(env.Output.Value)
}

// NewRawCodec builds a Codec that passes raw bytes through unchanged,
// tagged with typeURL. Useful for callers whose plugin already works in
// terms of pre-serialized bytes (e.g. a command that just forwards a
// JSON blob) and don't need a dedicated struct type.
func NewRawCodec(typeURL string) Codec[[]byte, []byte] {
	return Codec[[]byte, []byte]{
		TypeUrl:         typeURL,
		MarshalPayload:  func(b []byte) ([]byte, error) { return b, nil },
		UnmarshalOutput: func(b []byte) ([]byte, error) { return b, nil },
	}
}
