package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/LeonardoBeccarini/anuja/internal/model/entities"
)

const (
	AdvisoryServiceName = "anuja.v1.AdvisoryService"
	adviseMethod        = "/" + AdvisoryServiceName + "/Advise"
	dateLayout          = entities.DateLayout
)

// AdvisoryServer is the server API of anuja.v1.AdvisoryService.
// Requests and responses are google.protobuf.Struct so the JSON report
// shape is shared with the HTTP API.
type AdvisoryServer interface {
	Advise(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var advisoryServiceDesc = grpc.ServiceDesc{
	ServiceName: AdvisoryServiceName,
	HandlerType: (*AdvisoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Advise", Handler: adviseHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "anuja/v1/advisory.proto",
}

func adviseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisoryServer).Advise(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: adviseMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AdvisoryServer).Advise(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterAdvisoryServer registers srv on s.
func RegisterAdvisoryServer(s grpc.ServiceRegistrar, srv AdvisoryServer) {
	s.RegisterService(&advisoryServiceDesc, srv)
}

// GrpcHandler implementa AdvisoryServer sopra il Service.
type GrpcHandler struct {
	svc *Service
}

var _ AdvisoryServer = (*GrpcHandler)(nil)

func NewGrpcHandler(svc *Service) *GrpcHandler { return &GrpcHandler{svc: svc} }

func (h *GrpcHandler) Advise(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	in, err := InputsFromStruct(req, h.svc.Defaults())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rep, err := h.svc.Advise(ctx, in, SourceGRPC)
	if err != nil {
		var fe *entities.FieldError
		if errors.As(err, &fe) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	out, err := ReportToStruct(rep)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// InputsFromStruct overlays the fields present in req on defaults.
func InputsFromStruct(req *structpb.Struct, defaults entities.FieldInputs) (entities.FieldInputs, error) {
	in := defaults
	f := req.GetFields()

	num := func(k string) (float64, bool, error) {
		v, ok := f[k]
		if !ok {
			return 0, false, nil
		}
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
			return 0, false, fmt.Errorf("%s: expected a number", k)
		}
		return v.GetNumberValue(), true, nil
	}

	if v, ok, err := num("ph"); err != nil {
		return in, err
	} else if ok {
		in.PH = v
	}
	if v, ok, err := num("moisture"); err != nil {
		return in, err
	} else if ok {
		if v != math.Trunc(v) {
			return in, fmt.Errorf("moisture: expected a whole number")
		}
		in.Moisture = int(v)
	}
	if v, ok, err := num("temperature"); err != nil {
		return in, err
	} else if ok {
		in.Temperature = v
	}
	if v, ok := f["crop"]; ok {
		in.Crop = entities.Crop(v.GetStringValue())
	}
	if v, ok := f["city"]; ok {
		in.City = v.GetStringValue()
	}
	if v, ok := f["plant_date"]; ok {
		d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(v.GetStringValue()), defaults.PlantDate.Location())
		if err != nil {
			return in, fmt.Errorf("plant_date: expected YYYY-MM-DD")
		}
		in.PlantDate = d
	}
	return in, nil
}

// InputsToStruct is the client-side inverse of InputsFromStruct.
func InputsToStruct(in entities.FieldInputs) (*structpb.Struct, error) {
	m := map[string]interface{}{
		"ph":          in.PH,
		"moisture":    float64(in.Moisture),
		"temperature": in.Temperature,
		"crop":        string(in.Crop),
		"city":        in.City,
	}
	if !in.PlantDate.IsZero() {
		m["plant_date"] = in.PlantDate.Format(dateLayout)
	}
	return structpb.NewStruct(m)
}

// ReportToStruct encodes a report with the same shape as the JSON API.
func ReportToStruct(rep Report) (*structpb.Struct, error) {
	b, err := json.Marshal(rep)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// ReportFromStruct decodes a report produced by ReportToStruct.
func ReportFromStruct(s *structpb.Struct) (Report, error) {
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return Report{}, err
	}
	var rep Report
	if err := json.Unmarshal(b, &rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}
