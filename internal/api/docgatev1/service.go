package docgatev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "docgate.v1.DocGate"

// DocGateServer is the server API for the DocGate service.
// Implementations must embed UnimplementedDocGateServer.
type DocGateServer interface {
	UploadDocument(context.Context, *UploadDocumentRequest) (*UploadDocumentResponse, error)
	GetDocument(context.Context, *GetDocumentRequest) (*GetDocumentResponse, error)
	ListDocuments(context.Context, *ListDocumentsRequest) (*ListDocumentsResponse, error)
	UpdateDocument(context.Context, *UpdateDocumentRequest) (*UpdateDocumentResponse, error)
	DownloadDocument(context.Context, *DownloadDocumentRequest) (*DownloadDocumentResponse, error)
	RequestDelete(context.Context, *ChangeRequest) (*ChangeResponse, error)
	RequestReplace(context.Context, *ChangeRequest) (*ChangeResponse, error)
	ListApprovals(context.Context, *ListApprovalsRequest) (*ListApprovalsResponse, error)
	GetApproval(context.Context, *GetApprovalRequest) (*GetApprovalResponse, error)
	ReviewApproval(context.Context, *ReviewApprovalRequest) (*ReviewApprovalResponse, error)
	ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error)
	mustEmbedUnimplementedDocGateServer()
}

// UnimplementedDocGateServer answers every method with codes.Unimplemented.
type UnimplementedDocGateServer struct{}

func unimplemented(m string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", m)
}

func (UnimplementedDocGateServer) UploadDocument(context.Context, *UploadDocumentRequest) (*UploadDocumentResponse, error) {
	return nil, unimplemented("UploadDocument")
}
func (UnimplementedDocGateServer) GetDocument(context.Context, *GetDocumentRequest) (*GetDocumentResponse, error) {
	return nil, unimplemented("GetDocument")
}
func (UnimplementedDocGateServer) ListDocuments(context.Context, *ListDocumentsRequest) (*ListDocumentsResponse, error) {
	return nil, unimplemented("ListDocuments")
}
func (UnimplementedDocGateServer) UpdateDocument(context.Context, *UpdateDocumentRequest) (*UpdateDocumentResponse, error) {
	return nil, unimplemented("UpdateDocument")
}
func (UnimplementedDocGateServer) DownloadDocument(context.Context, *DownloadDocumentRequest) (*DownloadDocumentResponse, error) {
	return nil, unimplemented("DownloadDocument")
}
func (UnimplementedDocGateServer) RequestDelete(context.Context, *ChangeRequest) (*ChangeResponse, error) {
	return nil, unimplemented("RequestDelete")
}
func (UnimplementedDocGateServer) RequestReplace(context.Context, *ChangeRequest) (*ChangeResponse, error) {
	return nil, unimplemented("RequestReplace")
}
func (UnimplementedDocGateServer) ListApprovals(context.Context, *ListApprovalsRequest) (*ListApprovalsResponse, error) {
	return nil, unimplemented("ListApprovals")
}
func (UnimplementedDocGateServer) GetApproval(context.Context, *GetApprovalRequest) (*GetApprovalResponse, error) {
	return nil, unimplemented("GetApproval")
}
func (UnimplementedDocGateServer) ReviewApproval(context.Context, *ReviewApprovalRequest) (*ReviewApprovalResponse, error) {
	return nil, unimplemented("ReviewApproval")
}
func (UnimplementedDocGateServer) ListNotifications(context.Context, *ListNotificationsRequest) (*ListNotificationsResponse, error) {
	return nil, unimplemented("ListNotifications")
}
func (UnimplementedDocGateServer) mustEmbedUnimplementedDocGateServer() {}

// RegisterDocGateServer registers srv on s.
func RegisterDocGateServer(s grpc.ServiceRegistrar, srv DocGateServer) {
	s.RegisterService(&DocGate_ServiceDesc, srv)
}

// unary builds the method descriptor of a unary RPC dispatching to call.
func unary[Req, Resp any](method string, call func(DocGateServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DocGateServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DocGateServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// DocGate_ServiceDesc is the grpc.ServiceDesc for the DocGate service.
var DocGate_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DocGateServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("UploadDocument", DocGateServer.UploadDocument),
		unary("GetDocument", DocGateServer.GetDocument),
		unary("ListDocuments", DocGateServer.ListDocuments),
		unary("UpdateDocument", DocGateServer.UpdateDocument),
		unary("DownloadDocument", DocGateServer.DownloadDocument),
		unary("RequestDelete", DocGateServer.RequestDelete),
		unary("RequestReplace", DocGateServer.RequestReplace),
		unary("ListApprovals", DocGateServer.ListApprovals),
		unary("GetApproval", DocGateServer.GetApproval),
		unary("ReviewApproval", DocGateServer.ReviewApproval),
		unary("ListNotifications", DocGateServer.ListNotifications),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docgate/v1",
}

// DocGateClient is the client API for the DocGate service.
type DocGateClient interface {
	UploadDocument(ctx context.Context, in *UploadDocumentRequest, opts ...grpc.CallOption) (*UploadDocumentResponse, error)
	GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*GetDocumentResponse, error)
	ListDocuments(ctx context.Context, in *ListDocumentsRequest, opts ...grpc.CallOption) (*ListDocumentsResponse, error)
	UpdateDocument(ctx context.Context, in *UpdateDocumentRequest, opts ...grpc.CallOption) (*UpdateDocumentResponse, error)
	DownloadDocument(ctx context.Context, in *DownloadDocumentRequest, opts ...grpc.CallOption) (*DownloadDocumentResponse, error)
	RequestDelete(ctx context.Context, in *ChangeRequest, opts ...grpc.CallOption) (*ChangeResponse, error)
	RequestReplace(ctx context.Context, in *ChangeRequest, opts ...grpc.CallOption) (*ChangeResponse, error)
	ListApprovals(ctx context.Context, in *ListApprovalsRequest, opts ...grpc.CallOption) (*ListApprovalsResponse, error)
	GetApproval(ctx context.Context, in *GetApprovalRequest, opts ...grpc.CallOption) (*GetApprovalResponse, error)
	ReviewApproval(ctx context.Context, in *ReviewApprovalRequest, opts ...grpc.CallOption) (*ReviewApprovalResponse, error)
	ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error)
}

type docGateClient struct {
	cc grpc.ClientConnInterface
}

// NewDocGateClient returns a client that sends every call with the JSON codec.
func NewDocGateClient(cc grpc.ClientConnInterface) DocGateClient {
	return &docGateClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *docGateClient) UploadDocument(ctx context.Context, in *UploadDocumentRequest, opts ...grpc.CallOption) (*UploadDocumentResponse, error) {
	return invoke[UploadDocumentResponse](ctx, c.cc, "UploadDocument", in, opts)
}

func (c *docGateClient) GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*GetDocumentResponse, error) {
	return invoke[GetDocumentResponse](ctx, c.cc, "GetDocument", in, opts)
}

func (c *docGateClient) ListDocuments(ctx context.Context, in *ListDocumentsRequest, opts ...grpc.CallOption) (*ListDocumentsResponse, error) {
	return invoke[ListDocumentsResponse](ctx, c.cc, "ListDocuments", in, opts)
}

func (c *docGateClient) UpdateDocument(ctx context.Context, in *UpdateDocumentRequest, opts ...grpc.CallOption) (*UpdateDocumentResponse, error) {
	return invoke[UpdateDocumentResponse](ctx, c.cc, "UpdateDocument", in, opts)
}

func (c *docGateClient) DownloadDocument(ctx context.Context, in *DownloadDocumentRequest, opts ...grpc.CallOption) (*DownloadDocumentResponse, error) {
	return invoke[DownloadDocumentResponse](ctx, c.cc, "DownloadDocument", in, opts)
}

func (c *docGateClient) RequestDelete(ctx context.Context, in *ChangeRequest, opts ...grpc.CallOption) (*ChangeResponse, error) {
	return invoke[ChangeResponse](ctx, c.cc, "RequestDelete", in, opts)
}

func (c *docGateClient) RequestReplace(ctx context.Context, in *ChangeRequest, opts ...grpc.CallOption) (*ChangeResponse, error) {
	return invoke[ChangeResponse](ctx, c.cc, "RequestReplace", in, opts)
}

func (c *docGateClient) ListApprovals(ctx context.Context, in *ListApprovalsRequest, opts ...grpc.CallOption) (*ListApprovalsResponse, error) {
	return invoke[ListApprovalsResponse](ctx, c.cc, "ListApprovals", in, opts)
}

func (c *docGateClient) GetApproval(ctx context.Context, in *GetApprovalRequest, opts ...grpc.CallOption) (*GetApprovalResponse, error) {
	return invoke[GetApprovalResponse](ctx, c.cc, "GetApproval", in, opts)
}

func (c *docGateClient) ReviewApproval(ctx context.Context, in *ReviewApprovalRequest, opts ...grpc.CallOption) (*ReviewApprovalResponse, error) {
	return invoke[ReviewApprovalResponse](ctx, c.cc, "ReviewApproval", in, opts)
}

func (c *docGateClient) ListNotifications(ctx context.Context, in *ListNotificationsRequest, opts ...grpc.CallOption) (*ListNotificationsResponse, error) {
	return invoke[ListNotificationsResponse](ctx, c.cc, "ListNotifications", in, opts)
}
