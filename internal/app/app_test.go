package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"diagramai/pkg/domain"
	"diagramai/pkg/store"
)

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) GenerateText(context.Context, string, string) (string, error) {
	return g.response, g.err
}

type stubRenderer struct{}

func (stubRenderer) Render(context.Context, domain.DiagramKind, string) ([]byte, error) {
	return []byte("<svg/>"), nil
}

// fakeObjectStore records stored documents in memory.
type fakeObjectStore struct {
	objects map[string][]byte
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return "https://objects.local/" + key + "?sig=test", nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func newTestApp(t *testing.T, objects *fakeObjectStore) *App {
	t.Helper()
	sessions, err := store.NewJWTSessionStore("test-secret-0123456789", time.Hour, store.JWTOptions{})
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	cfg := Config{
		Store:     store.NewMemoryStore(),
		Sessions:  sessions,
		Generator: &stubGenerator{response: "mindmap\n  root((Doc))"},
		Renderer:  stubRenderer{},
	}
	if objects != nil {
		cfg.Objects = objects
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	return a
}

func testUser(t *testing.T, a *App) domain.User {
	t.Helper()
	user, _, err := a.SignUp(context.Background(), "user@example.com", "longenough1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return user
}

func TestDocumentLifecycleWithArchive(t *testing.T) {
	objects := newFakeObjectStore()
	a := newTestApp(t, objects)
	user := testUser(t, a)
	ctx := context.Background()

	content := strings.Repeat("sentence about the uploaded document. ", 50)
	d, err := a.GenerateFromDocument(ctx, user, "report.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("generate from document: %v", err)
	}
	if d.SourceKey == "" {
		t.Fatalf("record should carry a storage key")
	}
	if _, ok := objects.objects[d.SourceKey]; !ok {
		t.Fatalf("source document should be archived under %q", d.SourceKey)
	}

	url, err := a.SourceDownloadURL(ctx, user, d.ID)
	if err != nil {
		t.Fatalf("source url: %v", err)
	}
	if !strings.Contains(url, d.SourceKey) {
		t.Fatalf("url %q should reference the stored key", url)
	}

	if err := a.DeleteDiagram(ctx, user, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(objects.objects) != 0 {
		t.Fatalf("delete must remove the archived document, %d left", len(objects.objects))
	}
}

func TestDocumentArchiveFailureAborts(t *testing.T) {
	objects := newFakeObjectStore()
	objects.putErr = fmt.Errorf("bucket unavailable")
	a := newTestApp(t, objects)
	user := testUser(t, a)

	content := strings.Repeat("sentence about the uploaded document. ", 50)
	if _, err := a.GenerateFromDocument(context.Background(), user, "report.txt", strings.NewReader(content)); err == nil {
		t.Fatalf("archive failure must abort generation")
	}
	records, err := a.ListDiagrams(context.Background(), user, "", domain.KindAll)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("no record should be saved on archive failure: %v", records)
	}
}

func TestDocumentRejectionCleansUpArchive(t *testing.T) {
	objects := newFakeObjectStore()
	a := newTestApp(t, objects)
	user := testUser(t, a)

	// Too little text: the pipeline rejects the document after the upload
	// has been archived, so the object must be removed again.
	if _, err := a.GenerateFromDocument(context.Background(), user, "tiny.txt", strings.NewReader("short")); err == nil {
		t.Fatalf("expected rejection for short document")
	}
	if len(objects.objects) != 0 {
		t.Fatalf("rejected upload must not stay archived, %d left", len(objects.objects))
	}
}

func TestSourceDownloadURLWithoutObjects(t *testing.T) {
	a := newTestApp(t, nil)
	user := testUser(t, a)

	content := strings.Repeat("sentence about the uploaded document. ", 50)
	d, err := a.GenerateFromDocument(context.Background(), user, "report.txt", strings.NewReader(content))
	if err != nil {
		t.Fatalf("generate without object store: %v", err)
	}
	if d.SourceKey != "" {
		t.Fatalf("no storage key expected without an object store")
	}
	if _, err := a.SourceDownloadURL(context.Background(), user, d.ID); !errors.Is(err, ErrNoSourceFile) {
		t.Fatalf("expected ErrNoSourceFile, got %v", err)
	}
}
