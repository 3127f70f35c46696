package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"legalflow/internal/appointment"
	"legalflow/internal/auth"
	"legalflow/internal/casefile"
	"legalflow/internal/document"
	"legalflow/internal/message"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	tokens, err := auth.NewTokenService("test-secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(auth.NewInMemory(), tokens)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	blobs, err := document.NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	docSvc, err := document.NewService(document.NewInMemory(), blobs, authSvc)
	if err != nil {
		t.Fatalf("document service: %v", err)
	}
	caseSvc, err := casefile.NewService(casefile.NewInMemory())
	if err != nil {
		t.Fatalf("case service: %v", err)
	}
	apptSvc, err := appointment.NewService(appointment.NewInMemory())
	if err != nil {
		t.Fatalf("appointment service: %v", err)
	}
	msgSvc, err := message.NewService(message.NewInMemory(), authSvc)
	if err != nil {
		t.Fatalf("message service: %v", err)
	}

	api := New(Config{
		ReadyProbe:   ReadyProbe{},
		Version:      "test",
		Auth:         authSvc,
		Documents:    docSvc,
		Cases:        caseSvc,
		Appointments: apptSvc,
		Messages:     msgSvc,
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u := c.baseURL + path
	if params != nil {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) upload(path, filename, contentType, content string, fields map[string]string, headers map[string]string) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	h["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(h)
	if err != nil {
		c.t.Fatalf("create part: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		c.t.Fatalf("write part: %v", err)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("close multipart: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("upload request: %v", err)
	}
	return resp
}

func (c *apiClient) register(email, role string, extra map[string]any) (string, string) {
	c.t.Helper()
	body := map[string]any{
		"email":      email,
		"password":   "sekret1",
		"first_name": "Test",
		"last_name":  "User",
		"role":       role,
	}
	for k, v := range extra {
		body[k] = v
	}
	resp := c.post("/v1/auth/register", body, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		c.t.Fatalf("register %s: status %d: %s", email, resp.StatusCode, raw)
	}
	var payload struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode register response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatal("empty token issued")
	}
	return payload.User.ID, payload.Token
}

func bearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)

	_, token := api.register("lawyer@example.com", "lawyer", map[string]any{"bar_number": "BAR-100"})

	// Login with the same credentials.
	resp := api.post("/v1/auth/login", map[string]any{
		"email":    "lawyer@example.com",
		"password": "sekret1",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	login := decode[map[string]any](t, resp)
	if login["token"] == "" {
		t.Fatal("login returned no token")
	}

	// Wrong password is a 400, indistinguishable from an unknown account.
	// 401 stays reserved for missing or invalid session tokens.
	resp = api.post("/v1/auth/login", map[string]any{
		"email":    "lawyer@example.com",
		"password": "wrong",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("wrong password status: %d, want 400", resp.StatusCode)
	}
	badLogin := decode[map[string]any](t, resp)
	if badLogin["error"] != "invalid email or password" {
		t.Fatalf("wrong password body: %v", badLogin)
	}
	resp = api.post("/v1/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "sekret1",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown account status: %d, want 400", resp.StatusCode)
	}
	badLogin2 := decode[map[string]any](t, resp)
	if badLogin2["error"] != badLogin["error"] {
		t.Fatalf("unknown account body %v differs from wrong password body %v", badLogin2, badLogin)
	}

	// Duplicate registration conflicts.
	resp = api.post("/v1/auth/register", map[string]any{
		"email":      "lawyer@example.com",
		"password":   "sekret1",
		"first_name": "Dup",
		"last_name":  "User",
		"role":       "lawyer",
		"bar_number": "BAR-200",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status: %d", resp.StatusCode)
	}

	// /me returns the profile.
	resp = api.get("/v1/auth/me", nil, bearerHeader(token))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status: %d", resp.StatusCode)
	}
	me := decode[map[string]any](t, resp)
	if me["user"] == nil {
		t.Fatal("me response missing user")
	}
	if me["profile"] == nil {
		t.Fatal("me response missing lawyer profile")
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/v1/documents", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatal("expected error message")
	}

	resp = api.get("/v1/documents", nil, bearerHeader("not-a-jwt"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", resp.StatusCode)
	}
}

func TestDocumentShareAndSignFlow(t *testing.T) {
	api := newTestAPI(t)
	_, lawyerToken := api.register("owner@example.com", "lawyer", map[string]any{"bar_number": "BAR-1"})
	clientID, clientToken := api.register("client@example.com", "client", nil)

	// Upload as the lawyer.
	resp := api.upload("/v1/documents", "contract.txt", "text/plain", "engagement letter body",
		map[string]string{"name": "Engagement letter", "category": "contract"},
		bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("upload status %d: %s", resp.StatusCode, raw)
	}
	doc := decode[map[string]any](t, resp)
	docID := doc["id"].(string)

	// The client cannot see it yet.
	resp = api.get("/v1/documents/"+docID, nil, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unshared read: expected 403, got %d", resp.StatusCode)
	}

	// Share with view permission.
	resp = api.post("/v1/documents/"+docID+"/share", map[string]any{
		"user_id":    clientID,
		"permission": "view",
	}, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("share status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Now readable, still not editable.
	resp = api.get("/v1/documents/"+docID, nil, bearerHeader(clientToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("shared read status: %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = api.do(http.MethodPatch, "/v1/documents/"+docID, map[string]any{
		"description": "client edit",
	}, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("view-only edit: expected 403, got %d", resp.StatusCode)
	}

	// The client may not re-share someone else's document.
	resp = api.post("/v1/documents/"+docID+"/share", map[string]any{
		"user_id":    clientID,
		"permission": "edit",
	}, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("non-owner share: expected 403, got %d", resp.StatusCode)
	}

	// Request a signature, then sign as the client.
	resp = api.post("/v1/documents/"+docID+"/signatures", map[string]any{
		"user_id": clientID,
	}, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signature request status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/v1/documents/"+docID+"/sign", nil, bearerHeader(clientToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sign status: %d", resp.StatusCode)
	}
	signed := decode[map[string]any](t, resp)
	sigs := signed["signatures"].([]any)
	if len(sigs) != 1 {
		t.Fatalf("expected 1 signature entry, got %d", len(sigs))
	}
	entry := sigs[0].(map[string]any)
	if entry["status"] != "signed" {
		t.Fatalf("signature status = %v, want signed", entry["status"])
	}

	// Download round-trips the stored bytes.
	resp = api.get("/v1/documents/"+docID+"/download", nil, bearerHeader(clientToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status: %d", resp.StatusCode)
	}
	content, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(content) != "engagement letter body" {
		t.Fatalf("downloaded content = %q", content)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "contract.txt") {
		t.Fatalf("content disposition = %q", cd)
	}
}

func TestDocumentUploadRejectsDisallowedType(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.register("uploader@example.com", "lawyer", map[string]any{"bar_number": "BAR-2"})

	// An HTML payload sniffs as text/html, which is not on the allowlist.
	resp := api.upload("/v1/documents", "page.html", "text/html",
		"<!DOCTYPE html><html><body>nope</body></html>", nil, bearerHeader(token))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", resp.StatusCode)
	}
}

func TestCaseLifecycle(t *testing.T) {
	api := newTestAPI(t)
	lawyerID, lawyerToken := api.register("counsel@example.com", "lawyer", map[string]any{"bar_number": "BAR-3"})
	clientID, clientToken := api.register("matter@example.com", "client", nil)

	resp := api.post("/v1/cases", map[string]any{
		"title":      "Shareholder dispute",
		"client_id":  clientID,
		"lawyer_ids": []string{lawyerID},
		"category":   "commercial",
	}, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("create case status %d: %s", resp.StatusCode, raw)
	}
	c := decode[map[string]any](t, resp)
	caseID := c["id"].(string)
	ref := c["reference"].(string)
	if len(ref) != 9 || ref[4] != '-' {
		t.Fatalf("reference %q not in YYMM-NNNN form", ref)
	}

	// Clients cannot open cases, but can read their own.
	resp = api.post("/v1/cases", map[string]any{
		"title":     "Self-filed",
		"client_id": clientID,
		"category":  "civil",
	}, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client create case: expected 403, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/cases/"+caseID, nil, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("client read own case: %d", resp.StatusCode)
	}

	// Add a note, then close.
	resp = api.post("/v1/cases/"+caseID+"/notes", map[string]any{
		"content": "retainer signed",
	}, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add note status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.do(http.MethodPatch, "/v1/cases/"+caseID, map[string]any{
		"status": "closed",
	}, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close case status: %d", resp.StatusCode)
	}
	closed := decode[map[string]any](t, resp)
	if closed["closed_date"] == nil {
		t.Fatal("closed case missing closed_date")
	}
}

func TestAppointmentBookingFlow(t *testing.T) {
	api := newTestAPI(t)
	lawyerID, lawyerToken := api.register("cal@example.com", "lawyer", map[string]any{"bar_number": "BAR-4"})
	clientID, clientToken := api.register("visitor@example.com", "client", nil)

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)
	body := map[string]any{
		"title":     "Initial consultation",
		"lawyer_id": lawyerID,
		"client_id": clientID,
		"starts_at": start.Format(time.RFC3339),
		"ends_at":   start.Add(time.Hour).Format(time.RFC3339),
	}
	resp := api.post("/v1/appointments", body, bearerHeader(clientToken))
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("create appointment status %d: %s", resp.StatusCode, raw)
	}
	appt := decode[map[string]any](t, resp)
	apptID := appt["id"].(string)

	// Double booking the same lawyer fails.
	resp = api.post("/v1/appointments", body, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("double booking: expected 400, got %d", resp.StatusCode)
	}

	// The lawyer confirms.
	resp = api.do(http.MethodPut, "/v1/appointments/"+apptID+"/status", map[string]any{
		"status": "confirmed",
	}, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status: %d", resp.StatusCode)
	}
	confirmed := decode[map[string]any](t, resp)
	if confirmed["status"] != "confirmed" {
		t.Fatalf("status = %v", confirmed["status"])
	}
}

func TestMessagingFlow(t *testing.T) {
	api := newTestAPI(t)
	lawyerID, lawyerToken := api.register("inbox@example.com", "lawyer", map[string]any{"bar_number": "BAR-5"})
	_, clientToken := api.register("writer@example.com", "client", nil)

	resp := api.post("/v1/messages", map[string]any{
		"recipient_id": lawyerID,
		"subject":      "Question",
		"body":         "When is the hearing?",
	}, bearerHeader(clientToken))
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("send status %d: %s", resp.StatusCode, raw)
	}
	m := decode[map[string]any](t, resp)
	msgID := m["id"].(string)

	resp = api.get("/v1/messages/unread", nil, bearerHeader(lawyerToken))
	unread := decode[map[string]any](t, resp)
	if unread["unread"] != float64(1) {
		t.Fatalf("unread = %v, want 1", unread["unread"])
	}

	// Sender cannot mark the message read.
	resp = api.post("/v1/messages/"+msgID+"/read", nil, bearerHeader(clientToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("sender mark-read: expected 403, got %d", resp.StatusCode)
	}

	resp = api.post("/v1/messages/"+msgID+"/read", nil, bearerHeader(lawyerToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read status: %d", resp.StatusCode)
	}
	read := decode[map[string]any](t, resp)
	if read["read_at"] == nil {
		t.Fatal("read_at not set")
	}

	resp = api.get("/v1/messages", nil, bearerHeader(lawyerToken))
	convos := decode[map[string]any](t, resp)
	if convos["total"] != float64(1) {
		t.Fatalf("conversations = %v, want 1", convos["total"])
	}
}

func TestUserAdministration(t *testing.T) {
	api := newTestAPI(t)
	_, adminToken := api.register("root@example.com", "admin", nil)
	targetID, targetToken := api.register("victim@example.com", "client", nil)

	// Only staff may list users.
	resp := api.get("/v1/users", nil, bearerHeader(targetToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("client list users: expected 403, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/users", nil, bearerHeader(adminToken))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list users: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Deactivate the client.
	resp = api.do(http.MethodPut, "/v1/users/"+targetID+"/status", map[string]any{
		"active": false,
	}, bearerHeader(adminToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deactivate status: %d", resp.StatusCode)
	}

	// Login is blocked, but the already-issued token keeps working.
	resp = api.post("/v1/auth/login", map[string]any{
		"email":    "victim@example.com",
		"password": "sekret1",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("disabled login: expected 403, got %d", resp.StatusCode)
	}
	resp = api.get("/v1/auth/me", nil, bearerHeader(targetToken))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("existing token after deactivation: %d", resp.StatusCode)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	api := newTestAPI(t)
	api.register("forgetful@example.com", "client", nil)

	// The HTTP endpoint never returns the token; unknown emails get the
	// same answer.
	resp := api.post("/v1/auth/password/forgot", map[string]any{
		"email": "forgetful@example.com",
	}, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("forgot status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if _, leaked := body["token"]; leaked {
		t.Fatal("reset token leaked in response")
	}
	resp = api.post("/v1/auth/password/forgot", map[string]any{
		"email": "nobody@example.com",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("unknown email forgot status: %d", resp.StatusCode)
	}

	// A made-up token is rejected.
	resp = api.post("/v1/auth/password/reset", map[string]any{
		"token":    "bogus",
		"password": "newsekret",
	}, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bogus reset status: %d", resp.StatusCode)
	}
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}
	health := decode[map[string]any](t, resp)
	if health["status"] != "ok" {
		t.Fatalf("health status = %v", health["status"])
	}

	resp = api.get("/readyz", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status: %d", resp.StatusCode)
	}

	resp = api.get("/v1/info", nil, nil)
	info := decode[map[string]any](t, resp)
	if info["name"] != "legalflow-api" {
		t.Fatalf("info name = %v", info["name"])
	}
}
