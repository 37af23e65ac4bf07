package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diagramai/internal/app"
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

type stubRenderer struct {
	err error
}

func (r *stubRenderer) Render(context.Context, domain.DiagramKind, string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	return []byte("<svg/>"), nil
}

func newTestServer(t *testing.T, gen *stubGenerator, rend *stubRenderer) *httptest.Server {
	t.Helper()
	sessions, err := store.NewJWTSessionStore("test-secret-0123456789", time.Hour, store.JWTOptions{})
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	a, err := app.New(app.Config{
		Store:     store.NewMemoryStore(),
		Sessions:  sessions,
		Generator: gen,
		Renderer:  rend,
	})
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	s, err := New(Config{App: a})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var fields map[string]json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&fields)
	return resp, fields
}

func signup(t *testing.T, base, email string) string {
	t.Helper()
	resp, fields := doJSON(t, http.MethodPost, base+"/api/auth/signup", "",
		map[string]string{"email": email, "password": "longenough1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}
	var token string
	if err := json.Unmarshal(fields["token"], &token); err != nil || token == "" {
		t.Fatalf("signup token: %q %v", token, err)
	}
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "flowchart TD\n    A --> B"}, &stubRenderer{})
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "flowchart TD\n    A --> B"}, &stubRenderer{})

	signup(t, srv.URL, "user@example.com")

	// Duplicate email conflicts.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "",
		map[string]string{"email": "user@example.com", "password": "longenough1"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d", resp.StatusCode)
	}

	// Weak password rejected.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/signup", "",
		map[string]string{"email": "other@example.com", "password": "short"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("weak password status = %d", resp.StatusCode)
	}

	// Wrong credentials.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "",
		map[string]string{"email": "user@example.com", "password": "wrongpassword"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", resp.StatusCode)
	}

	// Login works and the token authenticates /api/users/me.
	resp, fields := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "",
		map[string]string{"email": "user@example.com", "password": "longenough1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var loginToken string
	json.Unmarshal(fields["token"], &loginToken)

	resp, fields = doJSON(t, http.MethodGet, srv.URL+"/api/users/me", loginToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var email string
	json.Unmarshal(fields["email"], &email)
	if email != "user@example.com" {
		t.Fatalf("me email = %q", email)
	}

	// No token, bad token.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/users/me", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated me status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/users/me", "garbage", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token me status = %d", resp.StatusCode)
	}
}

func TestGenerateListRenderDelete(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "flowchart TD\n    A --> B"}, &stubRenderer{})
	token := signup(t, srv.URL, "user@example.com")

	// Generate from prompt.
	resp, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams", token,
		map[string]string{"prompt": "Explain photosynthesis", "kind": "flowchart"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate status = %d", resp.StatusCode)
	}
	var id, title, description string
	json.Unmarshal(fields["id"], &id)
	json.Unmarshal(fields["title"], &title)
	json.Unmarshal(fields["description"], &description)
	if id == "" || title != "Explain photosynthesis" {
		t.Fatalf("generated record: id=%q title=%q", id, title)
	}
	if !strings.HasPrefix(description, "flowchart") {
		t.Fatalf("description = %q", description)
	}

	// Empty prompt is a validation error.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/diagrams", token,
		map[string]string{"prompt": "  ", "kind": "flowchart"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty prompt status = %d", resp.StatusCode)
	}

	// List with and without filters.
	resp, fields = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var records []domain.Diagram
	json.Unmarshal(fields["diagrams"], &records)
	if len(records) != 1 || records[0].ID != id {
		t.Fatalf("list = %v", records)
	}
	resp, fields = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams?search=photo&kind=flowchart", token, nil)
	json.Unmarshal(fields["diagrams"], &records)
	if len(records) != 1 {
		t.Fatalf("filtered list = %v", records)
	}
	resp, fields = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams?search=nomatch", token, nil)
	json.Unmarshal(fields["diagrams"], &records)
	if len(records) != 0 {
		t.Fatalf("non-matching search should hide records: %v", records)
	}

	// Get by id.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	// Render.
	resp, fields = doJSON(t, http.MethodPost, srv.URL+"/api/diagrams/"+id+"/render", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render status = %d", resp.StatusCode)
	}
	var state string
	json.Unmarshal(fields["state"], &state)
	if state != "rendered" {
		t.Fatalf("render state = %q", state)
	}

	// Delete, then the record is gone.
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/diagrams/"+id, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams/"+id, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/diagrams/"+id, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("double delete status = %d", resp.StatusCode)
	}
}

func TestGenerateSurvivesGeneratorOutage(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{err: errors.New("model down")}, &stubRenderer{})
	token := signup(t, srv.URL, "user@example.com")

	resp, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams", token,
		map[string]string{"prompt": "Outage case", "kind": "mindmap"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generation must degrade, not fail: status = %d", resp.StatusCode)
	}
	var description string
	json.Unmarshal(fields["description"], &description)
	if description == "" {
		t.Fatalf("fallback description must be non-empty")
	}
}

func TestRenderFallbackWhenRendererFails(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "flowchart TD\n    A --> B"}, &stubRenderer{err: errors.New("kroki down")})
	token := signup(t, srv.URL, "user@example.com")

	_, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams", token,
		map[string]string{"prompt": "Broken render", "kind": "flowchart"})
	var id string
	json.Unmarshal(fields["id"], &id)

	resp, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams/"+id+"/render", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("render must answer 200 even when the renderer is down: %d", resp.StatusCode)
	}
	var state, artifact string
	json.Unmarshal(fields["state"], &state)
	json.Unmarshal(fields["artifact"], &artifact)
	if state != "error-displayed" {
		t.Fatalf("state = %q", state)
	}
	if !strings.Contains(artifact, "<pre>") {
		t.Fatalf("artifact should carry the escaped source: %q", artifact)
	}
}

func TestDatasetGenerate(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "pie title Data\n    \"Jan\" : 10"}, &stubRenderer{})
	token := signup(t, srv.URL, "user@example.com")

	body := map[string]any{
		"rows": []map[string]string{
			{"month": "Jan", "value": "10"},
			{"month": "Feb", "value": "bad"},
		},
		"xColumn": "month",
		"yColumn": "value",
		"kind":    "pie",
	}
	resp, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams/from-dataset", token, body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("dataset generate status = %d", resp.StatusCode)
	}
	var snapshot []domain.DataPoint
	json.Unmarshal(fields["datasetSnapshot"], &snapshot)
	if len(snapshot) != 1 || snapshot[0].X != "Jan" {
		t.Fatalf("snapshot = %v", snapshot)
	}

	// All rows unusable.
	body["rows"] = []map[string]string{{"month": "Jan", "value": "x"}}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/diagrams/from-dataset", token, body)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unusable rows status = %d", resp.StatusCode)
	}
}

func uploadDocument(t *testing.T, url, token, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fmt.Fprint(fw, content)
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, url+"/api/diagrams/from-document", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	return resp
}

func TestDocumentGenerate(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "mindmap\n  root((Doc))"}, &stubRenderer{})
	token := signup(t, srv.URL, "user@example.com")

	long := strings.Repeat("meaningful document sentence. ", 50)
	resp := uploadDocument(t, srv.URL, token, "notes.txt", long)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("document generate status = %d", resp.StatusCode)
	}
	var d domain.Diagram
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Kind != domain.KindMindmap || d.SourceFilename != "notes.txt" {
		t.Fatalf("record = %+v", d)
	}

	// Too little text.
	resp = uploadDocument(t, srv.URL, token, "tiny.txt", "short")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("short document status = %d", resp.StatusCode)
	}

	// Disallowed extension.
	resp = uploadDocument(t, srv.URL, token, "malware.exe", long)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("disallowed extension status = %d", resp.StatusCode)
	}
}

func TestSourceDownloadWithoutArchive(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "flowchart TD\n    A --> B"}, &stubRenderer{})
	token := signup(t, srv.URL, "user@example.com")

	_, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams", token,
		map[string]string{"prompt": "No upload here", "kind": "flowchart"})
	var id string
	json.Unmarshal(fields["id"], &id)

	// Prompt-generated diagrams have no archived source document.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/diagrams/"+id+"/source", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("source without archive status = %d", resp.StatusCode)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	srv := newTestServer(t, &stubGenerator{response: "flowchart TD\n    A --> B"}, &stubRenderer{})
	alice := signup(t, srv.URL, "alice@example.com")
	bob := signup(t, srv.URL, "bob@example.com")

	_, fields := doJSON(t, http.MethodPost, srv.URL+"/api/diagrams", alice,
		map[string]string{"prompt": "Private diagram", "kind": "flowchart"})
	var id string
	json.Unmarshal(fields["id"], &id)

	// Another user cannot see, render, or delete it.
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/diagrams/"+id, bob, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign get status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/diagrams/"+id, bob, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign delete status = %d", resp.StatusCode)
	}
	resp, fields = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams", bob, nil)
	var records []domain.Diagram
	json.Unmarshal(fields["diagrams"], &records)
	if len(records) != 0 {
		t.Fatalf("foreign list = %v", records)
	}

	// The owner still has it.
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/diagrams/"+id, alice, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner get status = %d", resp.StatusCode)
	}
}

func TestSplitDiagramPath(t *testing.T) {
	cases := []struct {
		path, id, action string
		ok               bool
	}{
		{"/api/diagrams/dg_1", "dg_1", "", true},
		{"/api/diagrams/dg_1/render", "dg_1", "render", true},
		{"/api/diagrams/", "", "", false},
		{"/api/diagrams/dg_1/render/extra", "", "", false},
	}
	for _, c := range cases {
		id, action, ok := splitDiagramPath(c.path)
		if id != c.id || action != c.action || ok != c.ok {
			t.Fatalf("splitDiagramPath(%q) = %q %q %v", c.path, id, action, ok)
		}
	}
}
