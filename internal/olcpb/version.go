// Package olcpb holds the wire types and gRPC service descriptions shared
// between the ATS Console and the OLC server: version negotiation, session
// lifecycle, and server control. Request/response types are plain structs,
// not generated protobuf messages, and travel over the connection's
// forced gob codec (see WireCodec); the one genuine protobuf message is
// AnyPayload, which carries the caller's own opaque plugin bytes.
package olcpb

import (
	"context"

	"google.golang.org/grpc"
)

// VersionRequest carries no fields; the server always answers with its
// own version regardless of what the client sends.
type VersionRequest struct{}

// VersionResponse is the server's self-reported semantic version.
type VersionResponse struct {
	Major int32
	Minor int32
	Patch int32
}

// VersionServiceClient is the client half of the version RPC surface.
// Generated clients implement this over a *grpc.ClientConn; tests
// substitute a fake.
type VersionServiceClient interface {
	GetVersion(ctx context.Context, in *VersionRequest, opts ...grpc.CallOption) (*VersionResponse, error)
}

type versionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewVersionServiceClient wraps a shared channel with the version stub.
func NewVersionServiceClient(cc grpc.ClientConnInterface) VersionServiceClient {
	return &versionServiceClient{cc: cc}
}

func (c *versionServiceClient) GetVersion(ctx context.Context, in *VersionRequest, opts ...grpc.CallOption) (*VersionResponse, error) {
	out := new(VersionResponse)
	if err := c.cc.Invoke(ctx, "/olc.VersionService/GetVersion", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// VersionServiceServer is the server-side contract; the OLC server
// implements it, and VersionServiceDesc dispatches GetVersion to it.
type VersionServiceServer interface {
	GetVersion(context.Context, *VersionRequest) (*VersionResponse, error)
}

var VersionServiceDesc = grpc.ServiceDesc{
	ServiceName: "olc.VersionService",
	HandlerType: (*VersionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetVersion",
			Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
				in := new(VersionRequest)
				if err := dec(in); err != nil {
					return nil, err
				}
				if interceptor == nil {
					return srv.(VersionServiceServer).GetVersion(ctx, in)
				}
				info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/olc.VersionService/GetVersion"}
				handler := func(ctx context.Context, req interface{}) (interface{}, error) {
					return srv.(VersionServiceServer).GetVersion(ctx, req.(*VersionRequest))
				}
				return interceptor(ctx, in, info, handler)
			},
		},
	},
}
