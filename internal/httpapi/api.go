package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"legalflow/internal/appointment"
	"legalflow/internal/auth"
	"legalflow/internal/casefile"
	"legalflow/internal/document"
	"legalflow/internal/message"
	"legalflow/internal/obs"
)

// ReadyProbe reports readiness, typically a database ping.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer. It translates requests into service calls and
// service errors into status codes; all authorization lives below it.
type API struct {
	mux          *http.ServeMux
	readyProbe   ReadyProbe
	version      string
	auth         *auth.Service
	documents    *document.Service
	cases        *casefile.Service
	appointments *appointment.Service
	messages     *message.Service

	rateBurst  int
	ratePerSec int
}

// Config carries the services the API serves.
type Config struct {
	ReadyProbe   ReadyProbe
	Version      string
	Auth         *auth.Service
	Documents    *document.Service
	Cases        *casefile.Service
	Appointments *appointment.Service
	Messages     *message.Service
}

func New(cfg Config) *API {
	a := &API{
		mux:          http.NewServeMux(),
		readyProbe:   cfg.ReadyProbe,
		version:      cfg.Version,
		auth:         cfg.Auth,
		documents:    cfg.Documents,
		cases:        cfg.Cases,
		appointments: cfg.Appointments,
		messages:     cfg.Messages,
		rateBurst:    50,
		ratePerSec:   25,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.HandleFunc("/v1/auth/password/forgot", a.handleForgotPassword)
	a.mux.HandleFunc("/v1/auth/password/reset", a.handleResetPassword)

	// users
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// documents
	a.mux.HandleFunc("/v1/documents", a.handleDocumentsCollection)
	a.mux.HandleFunc("/v1/documents/", a.handleDocumentResource)

	// cases
	a.mux.HandleFunc("/v1/cases", a.handleCasesCollection)
	a.mux.HandleFunc("/v1/cases/", a.handleCaseResource)

	// appointments
	a.mux.HandleFunc("/v1/appointments", a.handleAppointmentsCollection)
	a.mux.HandleFunc("/v1/appointments/", a.handleAppointmentResource)

	// messages
	a.mux.HandleFunc("/v1/messages", a.handleMessagesCollection)
	a.mux.HandleFunc("/v1/messages/", a.handleMessageResource)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux. Uploads go
// through multipart with their own limit, so the global body cap stays
// above it.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = MaxBodyBytes(h, 12<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "legalflow-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "legalflow-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
