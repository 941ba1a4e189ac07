// Package docgatev1 defines the docgate.v1.DocGate gRPC service: its
// messages, the JSON codec they travel in, the service descriptor and a client.
package docgatev1

import "time"

// Document is the wire form of a managed document.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	FileName    string    `json:"file_name"`
	FileSize    int64     `json:"file_size"`
	Checksum    string    `json:"checksum"`
	CreatedBy   string    `json:"created_by"`
	Ver         int64     `json:"ver"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Approval is the wire form of an approval request. Review fields are set once resolved.
type Approval struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	DocumentID  string     `json:"document_id"`
	Reason      string     `json:"reason,omitempty"`
	Status      string     `json:"status"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	Comment     string     `json:"admin_comment,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// Notification is the wire form of an inbox entry.
type Notification struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type UploadDocumentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	FileName    string `json:"file_name"`
	Content     []byte `json:"content"`
}

type UploadDocumentResponse struct {
	Document *Document `json:"document"`
}

type GetDocumentRequest struct {
	ID string `json:"id"`
}

type GetDocumentResponse struct {
	Document *Document `json:"document"`
}

type ListDocumentsRequest struct {
	Search    string `json:"search,omitempty"`
	Type      string `json:"type,omitempty"`
	Status    string `json:"status,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
	Page      int32  `json:"page,omitempty"`
	Limit     int32  `json:"limit,omitempty"`
}

type ListDocumentsResponse struct {
	Documents  []*Document `json:"documents"`
	Total      int64       `json:"total"`
	Page       int32       `json:"page"`
	Limit      int32       `json:"limit"`
	TotalPages int32       `json:"total_pages"`
}

// UpdateDocumentRequest carries a partial patch; absent fields stay unchanged.
type UpdateDocumentRequest struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
}

type UpdateDocumentResponse struct {
	Document *Document `json:"document"`
}

type DownloadDocumentRequest struct {
	ID string `json:"id"`
}

type DownloadDocumentResponse struct {
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
	Content  []byte `json:"content"`
}

// ChangeRequest files a delete or replace request against ExpectedVer.
type ChangeRequest struct {
	DocumentID  string `json:"document_id"`
	ExpectedVer int64  `json:"expected_ver"`
	Reason      string `json:"reason,omitempty"`
}

type ChangeResponse struct {
	Approval *Approval `json:"approval"`
	Document *Document `json:"document"`
}

type ListApprovalsRequest struct {
	Limit  int32 `json:"limit,omitempty"`
	Offset int32 `json:"offset,omitempty"`
}

type ListApprovalsResponse struct {
	Approvals []*Approval `json:"approvals"`
}

type GetApprovalRequest struct {
	ID string `json:"id"`
}

type GetApprovalResponse struct {
	Approval *Approval `json:"approval"`
}

// ReviewApprovalRequest resolves an approval. FileName and Content are the
// replacement and only matter when approving a REPLACE request.
type ReviewApprovalRequest struct {
	ApprovalID string `json:"approval_id"`
	Outcome    string `json:"outcome"`
	Comment    string `json:"comment,omitempty"`
	FileName   string `json:"file_name,omitempty"`
	Content    []byte `json:"content,omitempty"`
}

type ReviewApprovalResponse struct {
	Approval *Approval `json:"approval"`
	Document *Document `json:"document"`
}

type ListNotificationsRequest struct {
	Limit int32 `json:"limit,omitempty"`
}

type ListNotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}
