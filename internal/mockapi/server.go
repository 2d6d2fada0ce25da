// Package mockapi implements a fixture-backed stand-in for the remote
// equipment analytics service. It exists so the client can be exercised
// end to end without the real backend: uploads return canned summaries,
// nothing is parsed or persisted beyond process memory.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chemviz/chemviz/internal/api"
)

type account struct {
	id       int64
	password string
	email    string
}

// Server holds the in-memory fixture state.
type Server struct {
	log *zap.Logger
	now func() time.Time

	mu       sync.Mutex
	users    map[string]*account
	tokens   map[string]string // token -> username
	sessions map[string][]api.Session
	nextUser int64
	nextSess int64
}

// New creates a Server pre-seeded with a demo/demo account and its
// canned upload history. logger may be nil.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		log:      logger,
		now:      time.Now,
		users:    make(map[string]*account),
		tokens:   make(map[string]string),
		sessions: make(map[string][]api.Session),
		nextUser: 1,
		nextSess: 100,
	}
	s.users["demo"] = &account{id: s.nextUser, password: "demo", email: "demo@example.com"}
	s.nextUser++
	s.sessions["demo"] = seedSessions(s.now())
	return s
}

// Router builds the HTTP handler serving the mock API surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogging(s.log))

	// Public endpoints
	r.Post("/api-token-auth/", s.handleTokenAuth)
	r.Post("/api/users/register/", s.handleRegister)
	r.Post("/api/password-reset/", s.handlePasswordReset)

	// Protected group: requires a valid bearer token
	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.lookupToken))
		r.Get("/api/users/0/", s.handleProfile)
		r.Get("/api/sessions/history/", s.handleHistory)
		r.Post("/api/sessions/upload_csv/", s.handleUpload)
		r.Post("/api/sessions/{id}/generate_report/", s.handleReport)
	})

	return r
}

func (s *Server) lookupToken(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.tokens[token]
	return username, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleTokenAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.users[req.Username]
	if !ok || acct.password != req.Password {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token := uuid.NewString()
	s.tokens[token] = req.Username
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Username]; exists {
		writeError(w, http.StatusBadRequest, "Username already exists")
		return
	}
	acct := &account{id: s.nextUser, password: req.Password, email: req.Email}
	s.nextUser++
	s.users[req.Username] = acct
	s.sessions[req.Username] = nil

	writeJSON(w, http.StatusCreated, map[string]any{"id": acct.id, "username": req.Username})
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	username := usernameFromContext(r.Context())

	s.mu.Lock()
	acct := s.users[username]
	s.mu.Unlock()
	if acct == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, api.User{ID: acct.id, Username: username, Email: acct.email})
}

const historyLimit = 5

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	username := usernameFromContext(r.Context())

	s.mu.Lock()
	sessions := s.sessions[username]
	if len(sessions) > historyLimit {
		sessions = sessions[:historyLimit]
	}
	out := make([]api.Session, len(sessions))
	copy(out, sessions)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	username := usernameFromContext(r.Context())

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is not a CSV file", header.Filename))
		return
	}

	s.mu.Lock()
	id := strconv.FormatInt(s.nextSess, 10)
	s.nextSess++
	session := uploadFixture(id, header.Filename, s.now())
	s.sessions[username] = append([]api.Session{session}, s.sessions[username]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	username := usernameFromContext(r.Context())
	sessionID := chi.URLParam(r, "id")

	var req struct {
		Format string `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	format := api.ReportFormat(req.Format)
	if !format.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", req.Format))
		return
	}

	s.mu.Lock()
	var session *api.Session
	for i := range s.sessions[username] {
		if s.sessions[username][i].ID == sessionID {
			session = &s.sessions[username][i]
			break
		}
	}
	s.mu.Unlock()
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	blob, contentType, err := renderReport(*session, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

// renderReport produces the report payload for a format. The PDF
// rendering is a stub document; the real service owns report layout.
func renderReport(session api.Session, format api.ReportFormat) ([]byte, string, error) {
	switch format {
	case api.ReportJSON:
		blob, err := json.MarshalIndent(session, "", "  ")
		return blob, "application/json", err
	case api.ReportCSV:
		var b strings.Builder
		b.WriteString("category,count\n")
		for _, e := range session.Distribution {
			fmt.Fprintf(&b, "%s,%d\n", e.Category, e.Count)
		}
		return []byte(b.String()), "text/csv", nil
	case api.ReportPDF:
		body := fmt.Sprintf("%%PDF-1.4\n%% chemviz report for %s (%d items)\n%%%%EOF\n",
			session.FileName, session.TotalCount)
		return []byte(body), "application/pdf", nil
	}
	return nil, "", fmt.Errorf("unsupported format %q", format)
}
