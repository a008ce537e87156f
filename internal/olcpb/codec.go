package olcpb

import (
	"bytes"
	"encoding/gob"

	"google.golang.org/grpc/encoding"
)

// wireCodecName is the gRPC codec identifier every ServerChannel dial
// forces via grpc.ForceCodec. grpc-go sends it as each call's
// content-subtype ("application/grpc+olcgob"), so the server end has to
// register a codec under the same name, the same way two ends of a
// hand-rolled wire protocol always have to agree out of band on how bytes
// are framed.
const wireCodecName = "olcgob"

// wireCodec marshals the request/response structs in this package with
// encoding/gob instead of protobuf. Every message here but AnyPayload is
// a plain Go struct with no protobuf struct tags and no ProtoReflect
// method, so grpc-go's default "proto" codec can't read their fields at
// all: its legacy-message adapter builds a field descriptor purely from
// struct tags, and with none present every message synthesizes to a
// zero-field descriptor that marshals to an empty payload regardless of
// content. gob needs no tags or descriptors — it walks exported struct
// fields directly — so it reproduces the old "whatever exec.Command-style
// RPC framing a process already speaks" approach at a layer grpc-go will
// actually invoke.
type wireCodec struct{}

func (wireCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (wireCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func (wireCodec) Name() string { return wireCodecName }

func init() {
	encoding.RegisterCodec(wireCodec{})
}

// WireCodec is the codec ServerChannel forces on every call. Exported so
// channel.go never needs to know the registered name or the codec's
// concrete type.
func WireCodec() encoding.Codec { return wireCodec{} }
