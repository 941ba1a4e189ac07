// Package convert maps domain entities to and from docgate.v1 wire messages.
package convert

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	u "github.com/gofrs/uuid/v5"

	api "github.com/and161185/docgate/internal/api/docgatev1"
	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
)

// --- helpers ---

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func idString(id u.UUID) string {
	if id == u.Nil {
		return ""
	}
	return id.String()
}

// ParseID parses a required identifier field; failures wrap errs.ErrInvalid.
func ParseID(field, s string) (u.UUID, error) {
	id, err := u.FromString(strings.TrimSpace(s))
	if err != nil || id == u.Nil {
		return u.Nil, fmt.Errorf("%w: invalid %s", errs.ErrInvalid, field)
	}
	return id, nil
}

// --- Documents (server -> client) ---

// ToAPIDocument converts a domain document to its wire form.
func ToAPIDocument(d *model.Document) *api.Document {
	if d == nil {
		return nil
	}
	return &api.Document{
		ID:          d.ID.String(),
		Title:       d.Title,
		Description: d.Description,
		Type:        d.Type,
		FileName:    d.Blob.Name,
		FileSize:    d.Blob.Size,
		Checksum:    d.Blob.Checksum,
		CreatedBy:   idString(d.CreatedBy),
		Ver:         d.Ver,
		Status:      string(d.Status),
		CreatedAt:   utc(d.CreatedAt),
		UpdatedAt:   utc(d.UpdatedAt),
	}
}

// ToAPIDocumentPage converts a listing page.
func ToAPIDocumentPage(p model.DocumentPage) *api.ListDocumentsResponse {
	out := &api.ListDocumentsResponse{
		Documents:  make([]*api.Document, 0, len(p.Documents)),
		Total:      p.Total,
		Page:       int32(p.Page),
		Limit:      int32(p.Limit),
		TotalPages: int32(p.TotalPages),
	}
	for i := range p.Documents {
		out.Documents = append(out.Documents, ToAPIDocument(&p.Documents[i]))
	}
	return out
}

// --- Documents (client -> server) ---

// FromAPIMeta extracts the metadata of an upload.
func FromAPIMeta(in *api.UploadDocumentRequest) model.DocumentMeta {
	return model.DocumentMeta{Title: in.Title, Description: in.Description, Type: in.Type}
}

// FromAPIUpload wraps uploaded content as a domain upload.
func FromAPIUpload(name string, content []byte) model.Upload {
	return model.Upload{Name: name, Body: bytes.NewReader(content)}
}

// FromAPIPatch converts a partial update.
func FromAPIPatch(in *api.UpdateDocumentRequest) model.DocumentPatch {
	return model.DocumentPatch{Title: in.Title, Description: in.Description, Type: in.Type}
}

// FromAPIFilter converts listing parameters. Status is matched case-insensitively.
func FromAPIFilter(in *api.ListDocumentsRequest) (model.DocumentFilter, error) {
	f := model.DocumentFilter{
		Search: strings.TrimSpace(in.Search),
		Type:   strings.TrimSpace(in.Type),
		Page:   int(in.Page),
		Limit:  int(in.Limit),
	}
	if in.Status != "" {
		st := model.DocumentStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
		if !st.Valid() {
			return model.DocumentFilter{}, fmt.Errorf("%w: unknown status %q", errs.ErrInvalid, in.Status)
		}
		f.Status = st
	}
	if in.CreatedBy != "" {
		id, err := ParseID("created_by", in.CreatedBy)
		if err != nil {
			return model.DocumentFilter{}, err
		}
		f.CreatedBy = id
	}
	return f, nil
}

// --- Approvals ---

// ToAPIApproval converts a domain approval to its wire form.
func ToAPIApproval(a *model.Approval) *api.Approval {
	if a == nil {
		return nil
	}
	out := &api.Approval{
		ID:          a.ID.String(),
		Type:        string(a.Type),
		DocumentID:  a.DocumentID.String(),
		Reason:      a.Reason,
		Status:      string(a.Status()),
		RequestedBy: idString(a.RequestedBy),
		CreatedAt:   utc(a.CreatedAt),
	}
	if r := a.Review; r != nil {
		at := utc(r.ReviewedAt)
		out.ReviewedBy = idString(r.ReviewerID)
		out.Comment = r.Comment
		out.ReviewedAt = &at
	}
	return out
}

// ToAPIApprovals converts a listing.
func ToAPIApprovals(in []model.Approval) []*api.Approval {
	out := make([]*api.Approval, 0, len(in))
	for i := range in {
		out = append(out, ToAPIApproval(&in[i]))
	}
	return out
}

// FromAPIDecision converts a review request. Content or a file name makes
// the request carry a replacement.
func FromAPIDecision(in *api.ReviewApprovalRequest) (model.Decision, error) {
	var d model.Decision
	switch strings.ToUpper(strings.TrimSpace(in.Outcome)) {
	case string(model.ApprovalApproved), "APPROVE":
		d.Outcome = model.ApprovalApproved
	case string(model.ApprovalRejected), "REJECT":
		d.Outcome = model.ApprovalRejected
	default:
		return model.Decision{}, fmt.Errorf("%w: outcome must be APPROVED or REJECTED", errs.ErrInvalid)
	}
	d.Comment = in.Comment
	if len(in.Content) > 0 || in.FileName != "" {
		up := FromAPIUpload(in.FileName, in.Content)
		d.Replacement = &up
	}
	return d, nil
}

// --- Notifications ---

// ToAPINotifications converts inbox entries.
func ToAPINotifications(in []model.Notification) []*api.Notification {
	out := make([]*api.Notification, 0, len(in))
	for _, n := range in {
		out = append(out, &api.Notification{
			ID:        n.ID.String(),
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Metadata:  n.Metadata,
			CreatedAt: utc(n.CreatedAt),
		})
	}
	return out
}
