package advisor

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

// GrpcClient calls a remote AdvisoryService.
type GrpcClient struct {
	cc grpc.ClientConnInterface
}

func NewGrpcClient(cc grpc.ClientConnInterface) *GrpcClient { return &GrpcClient{cc: cc} }

func (c *GrpcClient) Advise(ctx context.Context, in entities.FieldInputs) (Report, error) {
	req, err := InputsToStruct(in)
	if err != nil {
		return Report{}, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, adviseMethod, req, out); err != nil {
		return Report{}, err
	}
	return ReportFromStruct(out)
}
