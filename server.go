package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-health-certificates/certificate"
	"go-health-certificates/models"
	"go-health-certificates/storage"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_CERT_NOT_FOUND = "certificate not found"
const ERR_CERT_RESOLVE = "failed to resolve certificate"
const ERR_CERT_DELETE = "failed to delete certificate"
const ERR_CERT_LIST = "failed to list certificates"
const ERR_INVALID_CREDENTIALS = "invalid username or password"
const ERR_TOKEN_CREATION = "failed to create session token"
const ERR_QR_RENDER = "failed to render QR code"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	adapter       *storage.StoreAdapter
	builder       *certificate.Builder
	resolver      *certificate.Resolver
	tokenCreator  *AdminTokenCreator
	qrGenerator   QRGenerator
	adminUsername string
	adminPassword string
}

type SpaHandler struct {
	staticPath string
	indexPath  string
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

// ServeHTTP inspects the URL path to locate a file within the static dir
// on the SPA handler. If a file is found, it will be served. If not, the
// file located at the index path on the SPA handler will be served. This
// is suitable behavior for serving an SPA (single page application).
// https://github.com/gorilla/mux?tab=readme-ov-file#serving-single-page-applications
func (h SpaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Debug("SPA handler serving request", "path", r.URL.Path)
	// Join internally call path.Clean to prevent directory traversal
	path := filepath.Join(h.staticPath, r.URL.Path)
	// check whether a file exists or is a directory at the given path
	fi, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && fi.IsDir()) {
		// file does not exist or path is a directory, serve index.html
		slog.Debug("Serving index.html for path", "path", r.URL.Path)
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	if err != nil {
		// if we got an error (that wasn't that the file doesn't exist) stating the
		// file, return a 500 internal server error and stop
		slog.Error("Error stating file", "path", path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	// otherwise, use http.FileServer to serve the static file
	slog.Debug("Serving static file", "path", path)
	http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/login", func(w http.ResponseWriter, r *http.Request) {
		handleLogin(state, w, r)
	})
	router.HandleFunc("/api/certificates", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleCreateCertificate(state, w, r)
		case http.MethodGet:
			handleListCertificates(state, w, r)
		default:
			respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		}
	})
	router.HandleFunc("/api/certificates/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handleGetCertificate(state, w, r)
		case http.MethodDelete:
			handleDeleteCertificate(state, w, r)
		default:
			respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		}
	})
	router.HandleFunc("/api/certificates/{id}/qr", func(w http.ResponseWriter, r *http.Request) {
		handleCertificateQR(state, w, r)
	}).Methods(http.MethodGet)
	router.HandleFunc("/api/statistics", func(w http.ResponseWriter, r *http.Request) {
		handleStatistics(state, w, r)
	}).Methods(http.MethodGet)

	slog.Debug("Registered all API routes")

	spa := SpaHandler{staticPath: "../frontend/build", indexPath: "index.html"}
	router.PathPrefix("/").Handler(spa)

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type CertificateResponse struct {
	Certificate models.CertificateRecord `json:"certificate"`
	// Status re-derived from the expiry date at request time; the
	// persisted certificate.status is the creation-time snapshot.
	CurrentStatus models.Status `json:"current_status"`
	ShareableLink string        `json:"shareable_link"`
}

type CertificateListResponse struct {
	Certificates []storage.StoredRecord `json:"certificates"`
	Statistics   models.Statistics      `json:"statistics"`
}

func handleLogin(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received admin login request")

	var request LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode login request", err)
		return
	}

	// Single shared credential pair, checked by direct string equality.
	if request.Username != state.adminUsername || request.Password != state.adminPassword {
		respondWithErr(w, http.StatusUnauthorized, ERR_INVALID_CREDENTIALS, "admin login rejected", nil)
		return
	}

	token, err := state.tokenCreator.CreateAdminJwt(request.Username, time.Now())
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_TOKEN_CREATION, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, LoginResponse{Token: token}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Admin login succeeded", "username", request.Username)
}

func handleCreateCertificate(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	claims, ok := requireAdmin(state, w, r)
	if !ok {
		return
	}

	slog.Info("Received request to create certificate")

	var form models.CertificateForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode certificate form", err)
		return
	}

	record, link, err := state.builder.Build(r.Context(), form, time.Now(), claims.Subject)
	var validationErr *certificate.ValidationError
	var encodingErr *certificate.EncodingError
	if errors.As(err, &validationErr) {
		respondWithErr(w, http.StatusBadRequest, validationErr.Error(), "certificate form validation failed", err)
		return
	}
	if errors.As(err, &encodingErr) {
		respondWithErr(w, http.StatusBadRequest, "could not process the uploaded photo", "photo encoding failed", err)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to build certificate", err)
		return
	}

	response := CertificateResponse{
		Certificate:   record,
		CurrentStatus: record.Status,
		ShareableLink: link,
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Certificate created successfully", "certificate_id", record.Identifier)
}

func handleGetCertificate(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	id := mux.Vars(r)["id"]
	slog.Info("Received request to resolve certificate", "certificate_id", id)

	record, err := state.resolver.Resolve(r.Context(), id)
	if errors.Is(err, certificate.ErrNotFound) {
		respondWithErr(w, http.StatusNotFound, ERR_CERT_NOT_FOUND, "certificate not found", err)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_CERT_RESOLVE, err)
		return
	}

	response := CertificateResponse{
		Certificate:   record,
		CurrentStatus: certificate.DeriveStatus(record.ExpiryDate, time.Now()),
		ShareableLink: state.builder.ShareableLink(record.Identifier),
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Certificate resolved successfully", "certificate_id", id)
}

func handleListCertificates(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if _, ok := requireAdmin(state, w, r); !ok {
		return
	}

	slog.Info("Received request to list certificates")

	now := time.Now()
	records, err := state.resolver.ListAll(r.Context(), now)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_CERT_LIST, err)
		return
	}

	// The aggregate statistics record is recomputed and overwritten on
	// every list load; write failures are absorbed by the adapter.
	stats := certificate.ComputeStatistics(records, now)
	state.adapter.PutStats(r.Context(), stats)

	if query := r.URL.Query().Get("q"); query != "" {
		records = certificate.Filter(records, query)
	}

	response := CertificateListResponse{
		Certificates: records,
		Statistics:   stats,
	}
	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Certificates listed successfully", "count", len(records))
}

func handleDeleteCertificate(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if _, ok := requireAdmin(state, w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	slog.Info("Received request to delete certificate", "certificate_id", id)

	if err := state.adapter.DeleteById(r.Context(), id); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ERR_CERT_DELETE, ERR_CERT_DELETE, err)
		return
	}

	// Keep the mirror from diverging further.
	if err := state.adapter.RemoveFromMirror(id); err != nil {
		slog.Warn("Failed to remove certificate from local mirror", "certificate_id", id, "error", err)
	}

	if err := writeJSON(w, http.StatusOK, map[string]bool{"deleted": true}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Certificate deleted successfully", "certificate_id", id)
}

func handleCertificateQR(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	id := mux.Vars(r)["id"]
	slog.Debug("Rendering QR code", "certificate_id", id)

	image, err := state.qrGenerator.Generate(state.builder.ShareableLink(id))
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ERR_QR_RENDER, ERR_QR_RENDER, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write(image); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

func handleStatistics(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if _, ok := requireAdmin(state, w, r); !ok {
		return
	}

	slog.Debug("Received request for statistics")

	now := time.Now()
	records, err := state.resolver.ListAll(r.Context(), now)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_CERT_LIST, err)
		return
	}

	stats := certificate.ComputeStatistics(records, now)
	state.adapter.PutStats(r.Context(), stats)

	if err := writeJSON(w, http.StatusOK, stats); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}
}

// -----------------------------------------------------------------------------------

// requireAdmin verifies the Bearer session token on admin-only endpoints.
func requireAdmin(state *ServerState, w http.ResponseWriter, r *http.Request) (*jwt.RegisteredClaims, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		respondWithErr(w, http.StatusUnauthorized, "missing session token", "request without bearer token", nil)
		return nil, false
	}

	claims, err := state.tokenCreator.ParseAdminJwt(token)
	if err != nil {
		respondWithErr(w, http.StatusUnauthorized, "invalid session token", "session token rejected", err)
		return nil, false
	}
	return claims, true
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}

}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
