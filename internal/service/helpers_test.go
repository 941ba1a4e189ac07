package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/docgate/internal/blob"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/notify"
	"github.com/and161185/docgate/internal/repository"
	"github.com/and161185/docgate/internal/repository/memory"
)

// flakyBlobs wraps a real blob store and fails on demand.
type flakyBlobs struct {
	blob.Store
	mu         sync.Mutex
	failSave   bool
	failDelete bool
}

func (f *flakyBlobs) Save(ctx context.Context, r io.Reader, name string) (model.BlobRef, error) {
	f.mu.Lock()
	fail := f.failSave
	f.mu.Unlock()
	if fail {
		return model.BlobRef{}, errors.New("disk full")
	}
	return f.Store.Save(ctx, r, name)
}

func (f *flakyBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failDelete
	f.mu.Unlock()
	if fail {
		return errors.New("permission denied")
	}
	return f.Store.Delete(ctx, key)
}

func (f *flakyBlobs) set(save, del bool) {
	f.mu.Lock()
	f.failSave, f.failDelete = save, del
	f.mu.Unlock()
}

// commitFails runs each unit of work and then reports a failed commit, so
// nothing it wrote is kept.
type commitFails struct{ *memory.Store }

func (s commitFails) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return errors.New("commit: connection reset")
	})
}

type env struct {
	t         *testing.T
	dir       string
	store     *memory.Store
	blobs     *flakyBlobs
	docs      *DocumentServiceImpl
	approvals *ApprovalServiceImpl

	owner, other, admin, admin2 model.Principal
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	fs, err := blob.NewFS(dir)
	require.NoError(t, err)

	st := memory.New()
	log := zaptest.NewLogger(t)
	blobs := &flakyBlobs{Store: fs}
	docs := NewDocumentService(st, blobs, log)
	bc := notify.NewBroadcaster(st.Users(), notify.NewStoreSink(st.Notifications()), log,
		notify.WithBackoff(time.Millisecond))

	e := &env{
		t:         t,
		dir:       dir,
		store:     st,
		blobs:     blobs,
		docs:      docs,
		approvals: NewApprovalService(st, docs, bc, log),
		owner:     principal(model.RoleUser, "owner"),
		other:     principal(model.RoleUser, "other"),
		admin:     principal(model.RoleAdmin, "admin"),
		admin2:    principal(model.RoleAdmin, "admin2"),
	}
	for _, p := range []model.Principal{e.owner, e.other, e.admin, e.admin2} {
		require.NoError(t, st.Users().Touch(context.Background(), model.User{ID: p.ID, Username: p.Name, Role: p.Role}))
	}
	return e
}

func principal(r model.Role, name string) model.Principal {
	return model.Principal{ID: uuid.Must(uuid.NewV4()), Name: name, Role: r}
}

func upload(name, body string) model.Upload {
	return model.Upload{Name: name, Body: bytes.NewBufferString(body)}
}

func (e *env) create(title, body string) *model.Document {
	e.t.Helper()
	d, err := e.docs.Create(context.Background(),
		model.DocumentMeta{Title: title, Description: "desc of " + title, Type: "txt"},
		upload(title+".txt", body), e.owner)
	require.NoError(e.t, err)
	return d
}

func (e *env) reload(id uuid.UUID) *model.Document {
	e.t.Helper()
	d, err := e.store.Documents().Get(context.Background(), id)
	require.NoError(e.t, err)
	return d
}

func (e *env) blobExists(key string) bool {
	_, err := os.Stat(e.dir + string(os.PathSeparator) + key)
	return err == nil
}

func (e *env) inbox(p model.Principal) []model.Notification {
	e.t.Helper()
	n, err := e.store.Notifications().ListForUser(context.Background(), p.ID, 0)
	require.NoError(e.t, err)
	return n
}

func (e *env) content(id uuid.UUID, p model.Principal) string {
	e.t.Helper()
	_, rc, err := e.docs.Content(context.Background(), id, p)
	require.NoError(e.t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(e.t, err)
	return string(b)
}
