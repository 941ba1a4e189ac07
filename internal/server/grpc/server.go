// Package grpcserver exposes the docgate.v1.DocGate gRPC API handlers.
package grpcserver

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	api "github.com/and161185/docgate/internal/api/docgatev1"
	"github.com/and161185/docgate/internal/convert"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	api.UnimplementedDocGateServer
	docs      service.DocumentService
	approvals service.ApprovalService
	inbox     service.InboxService
	maxUpload int64
}

// New constructs a gRPC server with injected services. Uploads larger than
// maxUpload bytes are rejected; 0 disables the check.
func New(docs service.DocumentService, approvals service.ApprovalService, inbox service.InboxService, maxUpload int64) *Server {
	return &Server{docs: docs, approvals: approvals, inbox: inbox, maxUpload: maxUpload}
}

func caller(ctx context.Context) (model.Principal, error) {
	p, ok := PrincipalFromCtx(ctx)
	if !ok {
		return model.Principal{}, status.Error(codes.Unauthenticated, "no auth")
	}
	return p, nil
}

func (s *Server) checkSize(content []byte) error {
	if s.maxUpload > 0 && int64(len(content)) > s.maxUpload {
		return status.Errorf(codes.InvalidArgument, "file exceeds %d bytes", s.maxUpload)
	}
	return nil
}

// --- Documents ---

// UploadDocument stores a new ACTIVE document.
func (s *Server) UploadDocument(ctx context.Context, req *api.UploadDocumentRequest) (*api.UploadDocumentResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(req.Content); err != nil {
		return nil, err
	}
	d, err := s.docs.Create(ctx, convert.FromAPIMeta(req), convert.FromAPIUpload(req.FileName, req.Content), p)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.UploadDocumentResponse{Document: convert.ToAPIDocument(d)}, nil
}

// GetDocument returns a single document by id.
func (s *Server) GetDocument(ctx context.Context, req *api.GetDocumentRequest) (*api.GetDocumentResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	d, err := s.docs.Get(ctx, id, p)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetDocumentResponse{Document: convert.ToAPIDocument(d)}, nil
}

// ListDocuments returns one page of visible documents.
func (s *Server) ListDocuments(ctx context.Context, req *api.ListDocumentsRequest) (*api.ListDocumentsResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	f, err := convert.FromAPIFilter(req)
	if err != nil {
		return nil, toStatus(err)
	}
	page, err := s.docs.List(ctx, f, p)
	if err != nil {
		return nil, toStatus(err)
	}
	return convert.ToAPIDocumentPage(page), nil
}

// UpdateDocument patches metadata of an ACTIVE document.
func (s *Server) UpdateDocument(ctx context.Context, req *api.UpdateDocumentRequest) (*api.UpdateDocumentResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	d, err := s.docs.Update(ctx, id, convert.FromAPIPatch(req), p)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.UpdateDocumentResponse{Document: convert.ToAPIDocument(d)}, nil
}

// DownloadDocument returns the current content of a document.
func (s *Server) DownloadDocument(ctx context.Context, req *api.DownloadDocumentRequest) (*api.DownloadDocumentResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	ref, rc, err := s.docs.Content(ctx, id, p)
	if err != nil {
		return nil, toStatus(err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, toStatus(fmt.Errorf("read content: %w", err))
	}
	return &api.DownloadDocumentResponse{FileName: ref.Name, Size: ref.Size, Checksum: ref.Checksum, Content: b}, nil
}

// --- Approvals ---

// RequestDelete moves a document to PENDING_DELETE and files the approval.
func (s *Server) RequestDelete(ctx context.Context, req *api.ChangeRequest) (*api.ChangeResponse, error) {
	return s.submit(ctx, model.ApprovalDelete, req)
}

// RequestReplace moves a document to PENDING_REPLACE and files the approval.
func (s *Server) RequestReplace(ctx context.Context, req *api.ChangeRequest) (*api.ChangeResponse, error) {
	return s.submit(ctx, model.ApprovalReplace, req)
}

func (s *Server) submit(ctx context.Context, typ model.ApprovalType, req *api.ChangeRequest) (*api.ChangeResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("document_id", req.DocumentID)
	if err != nil {
		return nil, toStatus(err)
	}
	a, d, err := s.approvals.Submit(ctx, typ, id, req.ExpectedVer, req.Reason, p)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ChangeResponse{Approval: convert.ToAPIApproval(a), Document: convert.ToAPIDocument(d)}, nil
}

// ListApprovals returns pending approvals to admins and own requests to users.
func (s *Server) ListApprovals(ctx context.Context, req *api.ListApprovalsRequest) (*api.ListApprovalsResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.approvals.List(ctx, p, model.ApprovalFilter{Limit: int(req.Limit), Offset: int(req.Offset)})
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ListApprovalsResponse{Approvals: convert.ToAPIApprovals(out)}, nil
}

// GetApproval returns a single approval by id.
func (s *Server) GetApproval(ctx context.Context, req *api.GetApprovalRequest) (*api.GetApprovalResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("id", req.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	a, err := s.approvals.Get(ctx, id, p)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetApprovalResponse{Approval: convert.ToAPIApproval(a)}, nil
}

// ReviewApproval approves or rejects a pending approval.
func (s *Server) ReviewApproval(ctx context.Context, req *api.ReviewApprovalRequest) (*api.ReviewApprovalResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := convert.ParseID("approval_id", req.ApprovalID)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.checkSize(req.Content); err != nil {
		return nil, err
	}
	dec, err := convert.FromAPIDecision(req)
	if err != nil {
		return nil, toStatus(err)
	}
	a, d, err := s.approvals.Review(ctx, id, dec, p)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ReviewApprovalResponse{Approval: convert.ToAPIApproval(a), Document: convert.ToAPIDocument(d)}, nil
}

// --- Notifications ---

// ListNotifications returns the caller's inbox, newest first.
func (s *Server) ListNotifications(ctx context.Context, req *api.ListNotificationsRequest) (*api.ListNotificationsResponse, error) {
	p, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	out, err := s.inbox.List(ctx, p, int(req.Limit))
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ListNotificationsResponse{Notifications: convert.ToAPINotifications(out)}, nil
}

var _ api.DocGateServer = (*Server)(nil)
