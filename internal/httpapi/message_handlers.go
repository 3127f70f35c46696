package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"legalflow/internal/audit"
	"legalflow/internal/message"
)

type sendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	CaseID      string `json:"case_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

func (a *API) handleMessagesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.sendMessage(w, r)
	case http.MethodGet:
		a.listConversations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMessageResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/messages/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1 && parts[0] == "unread":
		a.unreadCount(w, r)
	case len(parts) == 2 && parts[0] == "thread":
		a.messageThread(w, r, parts[1])
	case len(parts) == 1:
		a.messageByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "read":
		a.markMessageRead(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.messages.Send(r.Context(), p, message.SendInput{
		RecipientID: req.RecipientID,
		CaseID:      req.CaseID,
		Subject:     req.Subject,
		Body:        req.Body,
	})
	if err != nil {
		handleMessageError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "message.send", map[string]any{
		"message_id":   m.ID,
		"recipient_id": m.RecipientID,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/messages/%s", m.ID))
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) listConversations(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	convos, err := a.messages.Conversations(r.Context(), p)
	if err != nil {
		handleMessageError(w, r, err)
		return
	}
	if convos == nil {
		convos = []*message.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": convos, "total": len(convos)})
}

func (a *API) unreadCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	n, err := a.messages.UnreadCount(r.Context(), p)
	if err != nil {
		handleMessageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"unread": n})
}

func (a *API) messageThread(w http.ResponseWriter, r *http.Request, peerID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)
	msgs, total, err := a.messages.Thread(r.Context(), p, peerID, limit, offset)
	if err != nil {
		handleMessageError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []*message.Message{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{Items: msgs, Total: total, Limit: limit, Offset: offset})
}

func (a *API) messageByID(w http.ResponseWriter, r *http.Request, msgID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	m, err := a.messages.Get(r.Context(), p, msgID)
	if err != nil {
		handleMessageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *API) markMessageRead(w http.ResponseWriter, r *http.Request, msgID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	m, err := a.messages.MarkRead(r.Context(), p, msgID)
	if err != nil {
		handleMessageError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
