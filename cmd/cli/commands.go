package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"

	api "github.com/and161185/docgate/internal/api/docgatev1"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/service"
)

// app runs RPC-backed subcommands against cl and prints results to out.
type app struct {
	cl  api.DocGateClient
	out io.Writer
}

type command func(a *app, ctx context.Context, args []string) error

var commands = map[string]command{
	"upload":        (*app).upload,
	"list":          (*app).list,
	"get":           (*app).get,
	"update":        (*app).update,
	"download":      (*app).download,
	"rm":            (*app).requestDelete,
	"replace":       (*app).requestReplace,
	"approvals":     (*app).approvals,
	"approval":      (*app).approval,
	"review":        (*app).review,
	"notifications": (*app).notifications,
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	c, ok := commands[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q", cmd)
	}
	return c(a, ctx, args)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func required(name, v string) error {
	if v == "" {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := newFlags("upload")
	title := fs.String("title", "", "title")
	desc := fs.String("desc", "", "description")
	typ := fs.String("type", "", "document type tag")
	file := fs.String("file", "", "path or - for stdin")
	name := fs.String("name", "", "file name (default: base of -file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("file", *file); err != nil {
		return err
	}
	data, err := readAll(*file)
	if err != nil {
		return err
	}
	fileName := *name
	if fileName == "" && *file != "-" {
		fileName = filepath.Base(*file)
	}
	resp, err := a.cl.UploadDocument(ctx, &api.UploadDocumentRequest{
		Title: *title, Description: *desc, Type: *typ, FileName: fileName, Content: data,
	})
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Document)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := newFlags("list")
	search := fs.String("search", "", "substring of title/description/file name")
	typ := fs.String("type", "", "document type tag")
	st := fs.String("status", "", "ACTIVE|PENDING_DELETE|PENDING_REPLACE|DELETED")
	owner := fs.String("owner", "", "creator id (admins only)")
	page := fs.Int("page", 1, "page")
	limit := fs.Int("limit", 20, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.cl.ListDocuments(ctx, &api.ListDocumentsRequest{
		Search: *search, Type: *typ, Status: *st, CreatedBy: *owner,
		Page: int32(*page), Limit: int32(*limit),
	})
	if err != nil {
		return err
	}
	printJSON(a.out, resp)
	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	fs := newFlags("get")
	id := fs.String("id", "", "document id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	resp, err := a.cl.GetDocument(ctx, &api.GetDocumentRequest{ID: *id})
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Document)
	return nil
}

// update sends only the flags given on the command line.
func (a *app) update(ctx context.Context, args []string) error {
	fs := newFlags("update")
	id := fs.String("id", "", "document id")
	title := fs.String("title", "", "new title")
	desc := fs.String("desc", "", "new description")
	typ := fs.String("type", "", "new type tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	req := &api.UpdateDocumentRequest{ID: *id}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			req.Title = title
		case "desc":
			req.Description = desc
		case "type":
			req.Type = typ
		}
	})
	if req.Title == nil && req.Description == nil && req.Type == nil {
		return errors.New("nothing to update")
	}
	resp, err := a.cl.UpdateDocument(ctx, req)
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Document)
	return nil
}

func (a *app) download(ctx context.Context, args []string) error {
	fs := newFlags("download")
	id := fs.String("id", "", "document id")
	out := fs.String("o", "", "output path, - for stdout (default: stored file name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	resp, err := a.cl.DownloadDocument(ctx, &api.DownloadDocumentRequest{ID: *id})
	if err != nil {
		return err
	}
	if *out == "-" {
		_, err = a.out.Write(resp.Content)
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Base(resp.FileName)
	}
	if err := os.WriteFile(path, resp.Content, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved %s (%d bytes, sha256 %s)\n", path, resp.Size, resp.Checksum)
	return nil
}

func (a *app) change(ctx context.Context, name string, args []string,
	call func(context.Context, *api.ChangeRequest) (*api.ChangeResponse, error)) error {
	fs := newFlags(name)
	id := fs.String("id", "", "document id")
	ver := fs.Int64("ver", 0, "expected document version")
	reason := fs.String("reason", "", "reason")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if *ver <= 0 {
		return errors.New("-ver is required")
	}
	resp, err := call(ctx, &api.ChangeRequest{DocumentID: *id, ExpectedVer: *ver, Reason: *reason})
	if err != nil {
		return err
	}
	printJSON(a.out, resp)
	return nil
}

func (a *app) requestDelete(ctx context.Context, args []string) error {
	return a.change(ctx, "rm", args, func(ctx context.Context, r *api.ChangeRequest) (*api.ChangeResponse, error) {
		return a.cl.RequestDelete(ctx, r)
	})
}

func (a *app) requestReplace(ctx context.Context, args []string) error {
	return a.change(ctx, "replace", args, func(ctx context.Context, r *api.ChangeRequest) (*api.ChangeResponse, error) {
		return a.cl.RequestReplace(ctx, r)
	})
}

func (a *app) approvals(ctx context.Context, args []string) error {
	fs := newFlags("approvals")
	limit := fs.Int("limit", 50, "max items")
	offset := fs.Int("offset", 0, "offset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.cl.ListApprovals(ctx, &api.ListApprovalsRequest{Limit: int32(*limit), Offset: int32(*offset)})
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Approvals)
	return nil
}

func (a *app) approval(ctx context.Context, args []string) error {
	fs := newFlags("approval")
	id := fs.String("id", "", "approval id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	resp, err := a.cl.GetApproval(ctx, &api.GetApprovalRequest{ID: *id})
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Approval)
	return nil
}

func (a *app) review(ctx context.Context, args []string) error {
	fs := newFlags("review")
	id := fs.String("id", "", "approval id")
	outcome := fs.String("outcome", "", "approve|reject")
	comment := fs.String("comment", "", "admin comment")
	file := fs.String("file", "", "replacement content for REPLACE requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("id", *id); err != nil {
		return err
	}
	if err := required("outcome", *outcome); err != nil {
		return err
	}
	req := &api.ReviewApprovalRequest{ApprovalID: *id, Outcome: *outcome, Comment: *comment}
	if *file != "" {
		data, err := readAll(*file)
		if err != nil {
			return err
		}
		req.Content = data
		if *file != "-" {
			req.FileName = filepath.Base(*file)
		}
	}
	resp, err := a.cl.ReviewApproval(ctx, req)
	if err != nil {
		return err
	}
	printJSON(a.out, resp)
	return nil
}

func (a *app) notifications(ctx context.Context, args []string) error {
	fs := newFlags("notifications")
	limit := fs.Int("limit", 50, "max items")
	if err := fs.Parse(args); err != nil {
		return err
	}
	resp, err := a.cl.ListNotifications(ctx, &api.ListNotificationsRequest{Limit: int32(*limit)})
	if err != nil {
		return err
	}
	printJSON(a.out, resp.Notifications)
	return nil
}

// cmdToken signs a token locally with the shared key, for dev setups without an identity provider.
func cmdToken(out io.Writer, args []string, envKey string) error {
	fs := newFlags("token")
	key := fs.String("key", envKey, "signing key (default $DOCGATE_JWT_KEY)")
	sub := fs.String("sub", "", "user id (default: random)")
	name := fs.String("name", "", "display name")
	role := fs.String("role", string(model.RoleUser), "user|admin")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	save := fs.Bool("save", false, "store the token for later commands")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("key", *key); err != nil {
		return err
	}
	r := model.Role(*role)
	if r != model.RoleUser && r != model.RoleAdmin {
		return fmt.Errorf("bad role %q", *role)
	}
	id := uuid.Must(uuid.NewV4())
	if *sub != "" {
		var err error
		if id, err = uuid.FromString(*sub); err != nil {
			return fmt.Errorf("bad -sub: %w", err)
		}
	}
	tok, exp, err := service.IssueToken([]byte(*key), model.Principal{ID: id, Name: *name, Role: r}, *ttl)
	if err != nil {
		return err
	}
	if *save {
		if err := saveToken(tok, exp); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, tok)
	return nil
}

// cmdLogin stores a token issued elsewhere until its exp claim.
func cmdLogin(out io.Writer, args []string) error {
	fs := newFlags("login")
	tok := fs.String("token", "", "bearer token")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("token", *tok); err != nil {
		return err
	}
	exp := tokenExpiry(*tok)
	if err := saveToken(*tok, exp); err != nil {
		return err
	}
	fmt.Fprintf(out, "token saved, expires %s\n", exp.Format(time.RFC3339))
	return nil
}
