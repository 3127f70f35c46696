package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"legalflow/internal/audit"
	"legalflow/internal/casefile"
)

type createCaseRequest struct {
	Title       string   `json:"title"`
	ClientID    string   `json:"client_id"`
	LawyerIDs   []string `json:"lawyer_ids"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Category    string   `json:"category"`
}

type updateCaseRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status"`
	Priority    *string  `json:"priority"`
	Category    *string  `json:"category"`
	LawyerIDs   []string `json:"lawyer_ids"`
}

type caseNoteRequest struct {
	Content string `json:"content"`
}

type caseDeadlineRequest struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

func (a *API) handleCasesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createCase(w, r)
	case http.MethodGet:
		a.listCases(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCaseResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/cases/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	caseID := parts[0]

	switch {
	case len(parts) == 1:
		a.caseByID(w, r, caseID)
	case len(parts) == 2 && parts[1] == "notes":
		a.addCaseNote(w, r, caseID)
	case len(parts) == 2 && parts[1] == "deadlines":
		a.addCaseDeadline(w, r, caseID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createCase(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createCaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.cases.Create(r.Context(), p, casefile.CreateInput{
		Title:       req.Title,
		ClientID:    req.ClientID,
		LawyerIDs:   req.LawyerIDs,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
	})
	if err != nil {
		handleCaseError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "case.create", map[string]any{
		"case_id":   c.ID,
		"reference": c.Reference,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/cases/%s", c.ID))
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) listCases(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	f := casefile.Filter{
		Status: casefile.Status(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	cases, total, err := a.cases.List(r.Context(), p, f)
	if err != nil {
		handleCaseError(w, r, err)
		return
	}
	if cases == nil {
		cases = []*casefile.Case{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{Items: cases, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (a *API) caseByID(w http.ResponseWriter, r *http.Request, caseID string) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := a.cases.Get(r.Context(), p, caseID)
		if err != nil {
			handleCaseError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case http.MethodPut, http.MethodPatch:
		var req updateCaseRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.cases.Update(r.Context(), p, caseID, casefile.UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			Category:    req.Category,
			LawyerIDs:   req.LawyerIDs,
		})
		if err != nil {
			handleCaseError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "case.update", map[string]any{"case_id": caseID})
		writeJSON(w, http.StatusOK, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodPatch)
	}
}

func (a *API) addCaseNote(w http.ResponseWriter, r *http.Request, caseID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req caseNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.cases.AddNote(r.Context(), p, caseID, req.Content)
	if err != nil {
		handleCaseError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "case.note.add", map[string]any{"case_id": caseID})
	writeJSON(w, http.StatusCreated, c)
}

func (a *API) addCaseDeadline(w http.ResponseWriter, r *http.Request, caseID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req caseDeadlineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.cases.AddDeadline(r.Context(), p, caseID, req.Title, req.Date)
	if err != nil {
		handleCaseError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "case.deadline.add", map[string]any{"case_id": caseID})
	writeJSON(w, http.StatusCreated, c)
}
