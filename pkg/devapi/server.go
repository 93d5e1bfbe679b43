// Package devapi is a local stand-in for the upstream REST API. It speaks the same
// envelope, pagination, transition and auth conventions and can inject faults, so the
// resilient read layer can be exercised end to end.
package devapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-tripdesk/components/tripdesk"
	"github.com/goliatone/go-tripdesk/pkg/fixtures"
)

// Config configures the dev API.
type Config struct {
	Prefix   string
	Secret   string
	TokenTTL time.Duration
	Accounts []Account
	Latency  time.Duration
	FailRate float64
	Data     *fixtures.Set
	Logger   *slog.Logger
	Now      func() time.Time
}

// Server is an http.Handler serving the dev API.
type Server struct {
	router chi.Router
	issuer *Issuer
	faults *Faults
	tables map[tripdesk.ResourceKind]table
	logger *slog.Logger
	prefix string
}

type claimsKey struct{}

// New builds the server. A nil Data seeds the embedded fixtures.
func New(cfg Config) (*Server, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "/api"
	}
	if cfg.Secret == "" {
		cfg.Secret = "tripdesk-dev-secret"
	}
	if len(cfg.Accounts) == 0 {
		cfg.Accounts = DefaultAccounts()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Data == nil {
		set, err := fixtures.Default()
		if err != nil {
			return nil, err
		}
		cfg.Data = set
	}
	s := &Server{
		issuer: NewIssuer(cfg.Secret, cfg.TokenTTL, cfg.Accounts, cfg.Now),
		faults: newFaults(cfg.Latency, cfg.FailRate),
		tables: seedTables(cfg.Data, tripdesk.NewJSONSchemaValidator(nil), cfg.Now),
		logger: cfg.Logger,
		prefix: "/" + strings.Trim(cfg.Prefix, "/"),
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Faults exposes runtime fault injection.
func (s *Server) Faults() *Faults { return s.faults }

// Issuer exposes token issuing, e.g. to mint tokens in tests.
func (s *Server) Issuer() *Issuer { return s.issuer }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.requestLog)

	r.Route(s.prefix, func(r chi.Router) {
		r.Use(s.faults.Middleware)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)
			r.Post("/auth/logout", s.logout)
			r.Route("/{kind}", func(r chi.Router) {
				r.Get("/", s.list)
				r.Post("/", s.create)
				r.Get("/{id}", s.get)
				r.Put("/{id}", s.update)
				r.Patch("/{id}", s.update)
				r.Post("/{id}", s.update)
				r.Delete("/{id}", s.remove)
				r.Put("/{id}/status", s.setStatus)
				r.Post("/{id}/{action}", s.transition)
			})
		})
	})

	r.Route("/_admin", func(r chi.Router) {
		r.Put("/faults", s.setFault)
		r.Delete("/faults", s.clearFaults)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("devapi: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeEnvelope(w, http.StatusUnauthorized, "Unauthenticated.", nil, nil)
			return
		}
		claims, err := s.issuer.Verify(strings.TrimSpace(raw))
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, "Unauthenticated.", nil, nil)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	if claims == nil {
		return &Claims{}
	}
	return claims
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string  `json:"token"`
	Account Account `json:"account"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid JSON body", nil, nil)
		return
	}
	token, account, err := s.issuer.Login(req.Email, req.Password)
	if err != nil {
		writeEnvelope(w, http.StatusUnprocessableEntity, "These credentials do not match our records.",
			map[string][]string{"email": {"invalid credentials"}}, nil)
		return
	}
	writeEnvelope(w, http.StatusOK, "Logged in", nil, loginResponse{Token: token, Account: account})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.issuer.Revoke(claimsFrom(r.Context()).ID)
	writeEnvelope(w, http.StatusOK, "Logged out", nil, nil)
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) (table, bool) {
	kind, ok := tripdesk.ParseKind(chi.URLParam(r, "kind"))
	if ok {
		if t, found := s.tables[kind]; found {
			return t, true
		}
	}
	writeEnvelope(w, http.StatusNotFound, "unknown resource", nil, nil)
	return nil, false
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	filter := tripdesk.FilterFromQuery(r.URL.Query().Get)
	writeEnvelope(w, http.StatusOK, "OK", nil, t.list(filter, claimsFrom(r.Context()).OwnerID))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	rec, err := t.get(chi.URLParam(r, "id"), claimsFrom(r.Context()).OwnerID)
	respond(w, http.StatusOK, rec, err)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	payload, err := readPayload(r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	rec, err := t.create(payload, claimsFrom(r.Context()).OwnerID)
	respond(w, http.StatusCreated, rec, err)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	payload, err := readPayload(r)
	if err != nil {
		respond(w, 0, nil, err)
		return
	}
	rec, err := t.update(chi.URLParam(r, "id"), claimsFrom(r.Context()).OwnerID, payload)
	respond(w, http.StatusOK, rec, err)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	err := t.remove(chi.URLParam(r, "id"), claimsFrom(r.Context()).OwnerID)
	respond(w, http.StatusOK, nil, err)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	action, ok := tripdesk.ParseAction(chi.URLParam(r, "action"))
	if !ok {
		writeEnvelope(w, http.StatusNotFound, "unknown action", nil, nil)
		return
	}
	rec, err := t.transition(chi.URLParam(r, "id"), claimsFrom(r.Context()).OwnerID, action)
	respond(w, http.StatusOK, rec, err)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := s.table(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		writeEnvelope(w, http.StatusUnprocessableEntity, "The given data was invalid.",
			map[string][]string{"status": {"required"}}, nil)
		return
	}
	rec, err := t.setStatus(chi.URLParam(r, "id"), claimsFrom(r.Context()).OwnerID, tripdesk.Status(body.Status))
	respond(w, http.StatusOK, rec, err)
}

func (s *Server) setFault(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Path     string   `json:"path"`
		Latency  string   `json:"latency"`
		FailRate *float64 `json:"fail_rate"`
		Fault
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, http.StatusBadRequest, "invalid JSON body", nil, nil)
		return
	}
	if body.Latency != "" {
		d, err := time.ParseDuration(body.Latency)
		if err != nil || d < 0 {
			writeEnvelope(w, http.StatusUnprocessableEntity, "invalid latency", nil, nil)
			return
		}
		s.faults.SetLatency(d)
	}
	if body.FailRate != nil {
		if *body.FailRate < 0 || *body.FailRate > 1 {
			writeEnvelope(w, http.StatusUnprocessableEntity, "fail_rate must be between 0 and 1", nil, nil)
			return
		}
		s.faults.SetFailRate(*body.FailRate)
	}
	if body.Path != "" {
		s.faults.Set(body.Path, body.Fault)
	}
	writeEnvelope(w, http.StatusOK, "OK", nil, nil)
}

func (s *Server) clearFaults(w http.ResponseWriter, _ *http.Request) {
	s.faults.Clear()
	s.faults.SetLatency(0)
	s.faults.SetFailRate(0)
	writeEnvelope(w, http.StatusOK, "OK", nil, nil)
}

// readPayload accepts JSON or multipart bodies. Multipart fields named name[i] are
// collected into arrays; numeric and boolean text is coerced.
func readPayload(r *http.Request) (map[string]any, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			return nil, fail(http.StatusBadRequest, "invalid multipart body")
		}
		out := map[string]any{}
		for key, values := range r.MultipartForm.Value {
			if len(values) == 0 {
				continue
			}
			if name, ok := arrayField(key); ok {
				list, _ := out[name].([]any)
				out[name] = append(list, coerce(values[0]))
				continue
			}
			out[key] = coerce(values[0])
		}
		for key, files := range r.MultipartForm.File {
			name, ok := arrayField(key)
			if !ok {
				name = key
			}
			for _, fh := range files {
				list, _ := out[name].([]any)
				out[name] = append(list, "/uploads/"+fh.Filename)
			}
		}
		return out, nil
	}
	var out map[string]any
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		return nil, fail(http.StatusBadRequest, "invalid JSON body")
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func arrayField(key string) (string, bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return "", false
	}
	if _, err := strconv.Atoi(key[open+1 : len(key)-1]); err != nil {
		return "", false
	}
	return key[:open], true
}

func coerce(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

func respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		var herr *httpError
		if errors.As(err, &herr) {
			writeEnvelope(w, herr.status, herr.message, herr.fields, nil)
			return
		}
		writeEnvelope(w, http.StatusInternalServerError, err.Error(), nil, nil)
		return
	}
	writeEnvelope(w, status, http.StatusText(status), nil, data)
}

func writeEnvelope(w http.ResponseWriter, status int, message string, fields map[string][]string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{
		"status":  status < 300,
		"code":    status,
		"message": message,
		"data":    data,
	}
	if len(fields) > 0 {
		body["errors"] = fields
	}
	_ = json.NewEncoder(w).Encode(body)
}
