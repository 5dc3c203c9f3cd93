package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"travelbook/internal/database"
	"travelbook/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	catalogServiceName = "travelbook.catalog.v1.CatalogService"
	methodListPlaces   = "/" + catalogServiceName + "/ListPlaces"
	methodGetPlace     = "/" + catalogServiceName + "/GetPlace"
)

// PlaceCatalog is the read side of the catalog service.
type PlaceCatalog interface {
	ListByCategory(ctx context.Context, token string) ([]models.Place, error)
	GetPlace(ctx context.Context, id string) (*models.Place, error)
}

// CatalogServer is implemented by the read-only gRPC catalog. ListPlaces takes
// a category, GetPlace takes a place id; places travel as JSON-shaped structs.
type CatalogServer interface {
	ListPlaces(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	GetPlace(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

type CatalogService struct {
	catalog PlaceCatalog
}

func NewCatalogService(catalog PlaceCatalog) *CatalogService {
	return &CatalogService{catalog: catalog}
}

func (s *CatalogService) ListPlaces(ctx context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	category := strings.TrimSpace(req.GetValue())
	if category == "" {
		category = models.CategoryAll
	}

	places, err := s.catalog.ListByCategory(ctx, category)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list places")
	}

	out := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(places))}
	for i := range places {
		st, err := placeToStruct(&places[i])
		if err != nil {
			return nil, status.Error(codes.Internal, "failed to encode place")
		}
		out.Values = append(out.Values, structpb.NewStructValue(st))
	}
	return out, nil
}

func (s *CatalogService) GetPlace(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := strings.TrimSpace(req.GetValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	place, err := s.catalog.GetPlace(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, status.Error(codes.NotFound, "place not found")
	}
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to get place")
	}

	st, err := placeToStruct(place)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode place")
	}
	return st, nil
}

// placeToStruct keeps the HTTP JSON field names, so prices stay decimal strings.
func placeToStruct(place *models.Place) (*structpb.Struct, error) {
	raw, err := json.Marshal(place)
	if err != nil {
		return nil, err
	}
	st := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	return st, nil
}

func placeFromStruct(st *structpb.Struct) (*models.Place, error) {
	raw, err := protojson.Marshal(st)
	if err != nil {
		return nil, err
	}
	var place models.Place
	if err := json.Unmarshal(raw, &place); err != nil {
		return nil, fmt.Errorf("decode place: %w", err)
	}
	return &place, nil
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&catalogServiceDesc, srv)
}

var catalogServiceDesc = grpc.ServiceDesc{
	ServiceName: catalogServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPlaces", Handler: listPlacesHandler},
		{MethodName: "GetPlace", Handler: getPlaceHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func listPlacesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).ListPlaces(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListPlaces}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).ListPlaces(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getPlaceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CatalogServer).GetPlace(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetPlace}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CatalogServer).GetPlace(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// CatalogClient calls the catalog over an existing connection.
type CatalogClient struct {
	cc grpc.ClientConnInterface
}

func NewCatalogClient(cc grpc.ClientConnInterface) *CatalogClient {
	return &CatalogClient{cc: cc}
}

// ListPlaces returns the places of a category; an empty category lists all.
func (c *CatalogClient) ListPlaces(ctx context.Context, category string, opts ...grpc.CallOption) ([]models.Place, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodListPlaces, wrapperspb.String(category), out, opts...); err != nil {
		return nil, err
	}

	places := make([]models.Place, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		st := v.GetStructValue()
		if st == nil {
			return nil, fmt.Errorf("decode place: unexpected %T", v.GetKind())
		}
		place, err := placeFromStruct(st)
		if err != nil {
			return nil, err
		}
		places = append(places, *place)
	}
	return places, nil
}

func (c *CatalogClient) GetPlace(ctx context.Context, id string, opts ...grpc.CallOption) (*models.Place, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetPlace, wrapperspb.String(id), out, opts...); err != nil {
		return nil, err
	}
	return placeFromStruct(out)
}
