package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"legalflow/internal/appointment"
	"legalflow/internal/audit"
)

type createAppointmentRequest struct {
	Title    string    `json:"title"`
	LawyerID string    `json:"lawyer_id"`
	ClientID string    `json:"client_id"`
	CaseID   string    `json:"case_id"`
	Kind     string    `json:"kind"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Location string    `json:"location"`
	Notes    string    `json:"notes"`
}

type rescheduleRequest struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type appointmentStatusRequest struct {
	Status string `json:"status"`
}

func (a *API) handleAppointmentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAppointment(w, r)
	case http.MethodGet:
		a.listAppointments(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAppointmentResource(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/appointments/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	apptID := parts[0]

	switch {
	case len(parts) == 1:
		a.appointmentByID(w, r, apptID)
	case len(parts) == 2 && parts[1] == "reschedule":
		a.rescheduleAppointment(w, r, apptID)
	case len(parts) == 2 && parts[1] == "status":
		a.setAppointmentStatus(w, r, apptID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createAppointment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.appointments.Create(r.Context(), p, appointment.CreateInput{
		Title:    req.Title,
		LawyerID: req.LawyerID,
		ClientID: req.ClientID,
		CaseID:   req.CaseID,
		Kind:     req.Kind,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		handleAppointmentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "appointment.create", map[string]any{
		"appointment_id": appt.ID,
		"lawyer_id":      appt.LawyerID,
	})
	w.Header().Set("Location", fmt.Sprintf("/v1/appointments/%s", appt.ID))
	writeJSON(w, http.StatusCreated, appt)
}

func (a *API) listAppointments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := appointment.Filter{
		CaseID: q.Get("case_id"),
		Status: appointment.Status(q.Get("status")),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			f.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			f.To = t
		}
	}
	appts, total, err := a.appointments.List(r.Context(), p, f)
	if err != nil {
		handleAppointmentError(w, r, err)
		return
	}
	if appts == nil {
		appts = []*appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, listEnvelope{Items: appts, Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (a *API) appointmentByID(w http.ResponseWriter, r *http.Request, apptID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	appt, err := a.appointments.Get(r.Context(), p, apptID)
	if err != nil {
		handleAppointmentError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) rescheduleAppointment(w http.ResponseWriter, r *http.Request, apptID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.appointments.Reschedule(r.Context(), p, apptID, req.StartsAt, req.EndsAt)
	if err != nil {
		handleAppointmentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "appointment.reschedule", map[string]any{
		"appointment_id": apptID,
	})
	writeJSON(w, http.StatusOK, appt)
}

func (a *API) setAppointmentStatus(w http.ResponseWriter, r *http.Request, apptID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req appointmentStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	status, err := appointment.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.appointments.SetStatus(r.Context(), p, apptID, status)
	if err != nil {
		handleAppointmentError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "appointment.status.update", map[string]any{
		"appointment_id": apptID,
		"status":         string(status),
	})
	writeJSON(w, http.StatusOK, appt)
}
