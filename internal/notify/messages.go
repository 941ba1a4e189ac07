package notify

import (
	"fmt"
	"strings"

	"github.com/and161185/docgate/internal/model"
)

// Metadata keys attached to approval notifications.
const (
	MetaApprovalID = "approvalId"
	MetaDocumentID = "documentId"
	MetaType       = "type"
	MetaStatus     = "status"
)

// ApprovalRequested is the notice sent to administrators when a request is filed.
func ApprovalRequested(a model.Approval, documentTitle string) model.Notification {
	action := a.Type.ActionText()
	return model.Notification{
		Type:    model.NotifyApprovalRequested,
		Title:   "Approval Request: Document " + action,
		Message: fmt.Sprintf("A request for %s of document \"%s\" requires your approval.", action, documentTitle),
		Metadata: map[string]string{
			MetaApprovalID: a.ID.String(),
			MetaDocumentID: a.DocumentID.String(),
			MetaType:       string(a.Type),
		},
	}
}

// ApprovalResolved is the notice sent to the requester once a review lands.
// a must carry its Review.
func ApprovalResolved(a model.Approval) model.Notification {
	status := a.Status()
	typ, verb := model.NotifyApprovalRejected, "rejected"
	if status == model.ApprovalApproved {
		typ, verb = model.NotifyApprovalApproved, "approved"
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "Your request for %s has been %s.", a.Type.ActionText(), verb)
	if a.Review != nil && a.Review.Comment != "" {
		msg.WriteString(" Admin comment: ")
		msg.WriteString(a.Review.Comment)
	}
	return model.Notification{
		Type:    typ,
		Title:   "Request " + verb,
		Message: msg.String(),
		Metadata: map[string]string{
			MetaApprovalID: a.ID.String(),
			MetaDocumentID: a.DocumentID.String(),
			MetaStatus:     string(status),
		},
	}
}
