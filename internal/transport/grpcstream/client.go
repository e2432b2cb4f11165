package grpcstream

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// SubscribeClient receives frames from an open notification stream.
type SubscribeClient struct {
	grpc.ClientStream
}

// Recv returns the next frame.
func (c *SubscribeClient) Recv() (*structpb.Struct, error) {
	msg := new(structpb.Struct)
	if err := c.RecvMsg(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Subscribe opens a notification stream, resuming after lastEventID when it
// is not empty.
func Subscribe(ctx context.Context, cc grpc.ClientConnInterface, lastEventID string, opts ...grpc.CallOption) (*SubscribeClient, error) {
	cs, err := cc.NewStream(ctx, &ServiceDesc.Streams[0], subscribeMethod, opts...)
	if err != nil {
		return nil, err
	}
	req, err := structpb.NewStruct(map[string]interface{}{"last_event_id": lastEventID})
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeClient{ClientStream: cs}, nil
}
