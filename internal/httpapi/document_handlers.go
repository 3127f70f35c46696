package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"legalflow/internal/audit"
	"legalflow/internal/auth"
	"legalflow/internal/document"
	"legalflow/internal/policy"
)

const maxUploadBytes = 10 << 20 // 10 MiB per file

// allowedUploadTypes is the MIME allowlist for document uploads.
var allowedUploadTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"image/jpeg": true,
	"image/png":  true,
	"text/plain": true,
}

type updateDocumentRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
}

type shareDocumentRequest struct {
	UserID     string `json:"user_id"`
	Permission string `json:"permission"`
}

type signatureRequest struct {
	UserID string `json:"user_id"`
}

func actorFrom(p auth.Principal) policy.Actor {
	return policy.Actor{ID: p.UserID, Role: p.Role}
}

func (a *API) handleDocumentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.uploadDocument(w, r)
	case http.MethodGet:
		a.listDocuments(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDocumentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/documents/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	docID := parts[0]

	switch {
	case len(parts) == 1:
		a.documentByID(w, r, docID)
	case len(parts) == 2 && parts[1] == "download":
		a.downloadDocument(w, r, docID)
	case len(parts) == 2 && parts[1] == "share":
		a.shareDocument(w, r, docID)
	case len(parts) == 2 && parts[1] == "signatures":
		a.requestSignature(w, r, docID)
	case len(parts) == 2 && parts[1] == "sign":
		a.signDocument(w, r, docID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) uploadDocument(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	if header.Size > maxUploadBytes {
		writeError(w, r, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}

	contentType := sniffContentType(file, header.Header.Get("Content-Type"))
	if !allowedUploadTypes[contentType] {
		writeError(w, r, http.StatusUnsupportedMediaType, fmt.Sprintf("file type %s not allowed", contentType))
		return
	}

	doc, err := a.documents.Upload(r.Context(), actorFrom(p), document.UploadInput{
		Name:         r.FormValue("name"),
		OriginalName: header.Filename,
		Description:  r.FormValue("description"),
		ContentType:  contentType,
		Category:     r.FormValue("category"),
		Tags:         splitCommaList(r.FormValue("tags")),
		CaseID:       r.FormValue("case_id"),
		Content:      file,
	})
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "document.upload", map[string]any{
		"document_id": doc.ID,
		"size":        doc.FileSize,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/documents/%s", doc.ID))
	writeJSON(w, http.StatusCreated, doc)
}

// sniffContentType trusts the file bytes over the declared header.
func sniffContentType(file io.ReadSeeker, declared string) string {
	buf := make([]byte, 512)
	n, _ := file.Read(buf)
	_, _ = file.Seek(0, io.SeekStart)
	sniffed := http.DetectContentType(buf[:n])
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	// DetectContentType cannot tell office formats apart from zip; fall
	// back to the declared type for those.
	if sniffed == "application/zip" || sniffed == "application/octet-stream" {
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = declared[:i]
		}
		return strings.TrimSpace(declared)
	}
	return sniffed
}

func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *API) listDocuments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := document.Filter{
		CaseID:   q.Get("case_id"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    queryInt(r, "limit", 0),
		Offset:   queryInt(r, "offset", 0),
	}
	docs, total, err := a.documents.List(r.Context(), actorFrom(p), f)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*document.Document{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{Items: docs, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (a *API) documentByID(w http.ResponseWriter, r *http.Request, docID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		doc, err := a.documents.Get(r.Context(), actorFrom(p), docID)
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodPut, http.MethodPatch:
		var req updateDocumentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		doc, err := a.documents.Update(r.Context(), actorFrom(p), docID, document.UpdateInput{
			Name:        req.Name,
			Description: req.Description,
			Category:    req.Category,
			Tags:        req.Tags,
		})
		if err != nil {
			handleDocumentError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "document.update", map[string]any{"document_id": docID})
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := a.documents.Delete(r.Context(), actorFrom(p), docID); err != nil {
			handleDocumentError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "document.delete", map[string]any{"document_id": docID})
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) downloadDocument(w http.ResponseWriter, r *http.Request, docID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	doc, rc, err := a.documents.Download(r.Context(), actorFrom(p), docID)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", doc.FileType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", doc.FileSize))
	_, _ = io.Copy(w, rc)
}

func (a *API) shareDocument(w http.ResponseWriter, r *http.Request, docID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req shareDocumentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	level, err := policy.ParseLevel(req.Permission)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.documents.Share(r.Context(), actorFrom(p), docID, req.UserID, level)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "document.share", map[string]any{
		"document_id":    docID,
		"target_user_id": req.UserID,
		"permission":     string(level),
	})
	writeJSON(w, http.StatusOK, doc)
}

func (a *API) requestSignature(w http.ResponseWriter, r *http.Request, docID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req signatureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := a.documents.RequestSignature(r.Context(), actorFrom(p), docID, req.UserID)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "document.signature.request", map[string]any{
		"document_id": docID,
		"signer_id":   req.UserID,
	})
	writeJSON(w, http.StatusCreated, doc)
}

func (a *API) signDocument(w http.ResponseWriter, r *http.Request, docID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	doc, err := a.documents.Sign(r.Context(), actorFrom(p), docID)
	if err != nil {
		handleDocumentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "document.sign", map[string]any{
		"document_id": docID,
	})
	writeJSON(w, http.StatusOK, doc)
}
