// Package api serves the read and admin HTTP façade over the materialized
// schema store.
package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rmax-ai/schemabuilder/pkg/engine"
	"github.com/rmax-ai/schemabuilder/pkg/graph"
	"github.com/rmax-ai/schemabuilder/pkg/logger"
	"github.com/rmax-ai/schemabuilder/pkg/mapping"
	"github.com/rmax-ai/schemabuilder/pkg/reports"
	"github.com/rmax-ai/schemabuilder/pkg/store"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// Interfaces for dependencies to enable mocking

type StoreInterface interface {
	ListSchemas(ctx context.Context, filter store.SchemaFilter) (*store.SchemaPage, error)
	GetSchema(ctx context.Context, id int64) (*store.Schema, error)
	UpdateSchema(ctx context.Context, id int64, patch store.SchemaPatch) (*store.Schema, error)
	ListProperties(ctx context.Context, filter store.PropertyFilter) (*store.PropertyPage, error)
	FindPropertyByName(ctx context.Context, name string) (*store.Property, error)
	Stats(ctx context.Context) (store.Stats, error)
}

type PipelineInterface interface {
	Run(ctx context.Context) (engine.RunReport, error)
	LastRun() (engine.RunReport, bool)
}

type GuardInterface interface {
	Name() string
	IsSet(ctx context.Context) (bool, error)
	Clear(ctx context.Context) error
}

// Server encapsulates the HTTP API server
type Server struct {
	store      StoreInterface
	server     *http.Server
	pipeline   PipelineInterface
	guard      GuardInterface
	projection *graph.Projection
	vocab      graph.Vocabulary
	log        *logger.Logger

	// sha256 of the admin bearer token; admin routes are disabled when empty
	adminTokenHash []byte

	// TLS Config
	tlsCertFile string
	tlsKeyFile  string
}

// NewServer creates a new API server instance
func NewServer(st StoreInterface, addr string, log *logger.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store: st,
		vocab: graph.SchemaOrg,
		log:   logger.OrNop(log).Named("api"),
	}

	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/schemas", s.handleSchemas)
	mux.HandleFunc("/v1/schemas/{id}", s.handleSchema)
	mux.HandleFunc("/v1/schemas/{id}/mapping", s.handleSchemaMapping)
	mux.HandleFunc("/v1/properties", s.handleProperties)
	mux.HandleFunc("/v1/graph", s.handleGraph)
	mux.HandleFunc("/v1/reports", s.handleReports)
	mux.HandleFunc("/v1/admin/run", s.withAdmin(s.handleAdminRun))
	mux.HandleFunc("/v1/admin/guard", s.withAdmin(s.handleAdminGuard))

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := s.withLogging(s.withRecovery(withSecureHeaders(mux)))

	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// SetPipeline enables POST /v1/admin/run and last-run reporting
func (s *Server) SetPipeline(p PipelineInterface) {
	s.pipeline = p
}

// SetGuard enables the run guard admin endpoint
func (s *Server) SetGuard(g GuardInterface) {
	s.guard = g
}

// SetProjection exposes the built patterns on /v1/graph
func (s *Server) SetProjection(p *graph.Projection) {
	s.projection = p
}

// SetVocabulary sets the vocabulary used for labels and default types
func (s *Server) SetVocabulary(v graph.Vocabulary) {
	s.vocab = v.WithDefaults()
}

// SetAdminToken sets the bearer token accepted by admin routes
func (s *Server) SetAdminToken(token string) {
	if token == "" {
		s.adminTokenHash = nil
		return
	}
	s.adminTokenHash = hashToken(token)
}

// SetTLS configures the server to use TLS
func (s *Server) SetTLS(certFile, keyFile string) {
	s.tlsCertFile = certFile
	s.tlsKeyFile = keyFile
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	if s.tlsCertFile != "" && s.tlsKeyFile != "" {
		s.log.Info("server_starting_tls", "addr", s.server.Addr)
		if err := s.server.ListenAndServeTLS(s.tlsCertFile, s.tlsKeyFile); err != http.ErrServerClosed {
			return err
		}
	} else {
		s.log.Info("server_starting", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("server_stopping")
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness plus store counts and the last pipeline run.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	resp := HealthResponse{Status: "ok"}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.log.Error("health_stats_failed", "trace_id", getTraceID(r.Context()), "error", err)
		resp.Status = "degraded"
	}
	resp.Schemas = stats.Schemas
	resp.Properties = stats.Properties

	if s.guard != nil {
		if set, err := s.guard.IsSet(r.Context()); err == nil {
			resp.GuardSet = &set
		}
	}
	if s.pipeline != nil {
		if last, ok := s.pipeline.LastRun(); ok {
			resp.LastRun = &last
		}
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

// handleSchemas lists schemas with filtering and paging.
func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := store.SchemaFilter{
		Search:  q.Get("search"),
		OrderBy: q.Get("orderby"),
		Order:   q.Get("order"),
	}

	if v := q.Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, `{"error":"invalid_enabled"}`, http.StatusBadRequest)
			return
		}
		filter.Enabled = &b
	}

	var err error
	if filter.Page, err = intParam(q.Get("page"), 1); err != nil || filter.Page < 1 {
		http.Error(w, `{"error":"invalid_page"}`, http.StatusBadRequest)
		return
	}
	if filter.PerPage, err = intParam(q.Get("per_page"), store.DefaultPerPage); err != nil || filter.PerPage < 1 || filter.PerPage > store.MaxPerPage {
		http.Error(w, `{"error":"invalid_per_page"}`, http.StatusBadRequest)
		return
	}

	page, err := s.store.ListSchemas(r.Context(), filter)
	if err != nil {
		if errors.Is(err, store.ErrInvalidFilter) {
			http.Error(w, fmt.Sprintf(`{"error":"invalid_filter","details":%q}`, err.Error()), http.StatusBadRequest)
			return
		}
		s.log.Error("list_schemas_failed", "trace_id", getTraceID(r.Context()), "error", err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	items := make([]SchemaResponse, 0, len(page.Items))
	for _, sc := range page.Items {
		items = append(items, toSchemaResponse(sc))
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	w.Header().Set("X-Total-Pages", strconv.Itoa(page.TotalPages))
	s.writeJSON(w, r, http.StatusOK, items)
}

// handleSchema serves GET and PATCH for a single schema.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	id, ok := schemaID(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		sc, err := s.store.GetSchema(r.Context(), id)
		if err != nil {
			s.storeError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, toSchemaResponse(*sc))

	case http.MethodPatch:
		var req SchemaPatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
			return
		}
		if req.Enabled == nil && req.Mapping == nil {
			http.Error(w, `{"error":"empty_patch"}`, http.StatusBadRequest)
			return
		}
		if req.Mapping != nil {
			m, err := mapping.Parse(*req.Mapping)
			if err != nil {
				http.Error(w, `{"error":"invalid_mapping"}`, http.StatusBadRequest)
				return
			}
			normalized := m.Encode()
			req.Mapping = &normalized
		}

		sc, err := s.store.UpdateSchema(r.Context(), id, store.SchemaPatch{Enabled: req.Enabled, Mapping: req.Mapping})
		if err != nil {
			s.storeError(w, r, err)
			return
		}
		s.log.Info("schema_updated", "trace_id", getTraceID(r.Context()), "schema_id", id)
		s.writeJSON(w, r, http.StatusOK, toSchemaResponse(*sc))

	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleSchemaMapping maps one of the schema's properties to one of its allowed types.
func (s *Server) handleSchemaMapping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	id, ok := schemaID(w, r)
	if !ok {
		return
	}

	var req MappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}
	if req.Property == "" {
		http.Error(w, `{"error":"missing_property"}`, http.StatusBadRequest)
		return
	}

	sc, err := s.store.GetSchema(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	prop, err := s.store.FindPropertyByName(r.Context(), req.Property)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, `{"error":"property_not_found"}`, http.StatusNotFound)
			return
		}
		s.storeError(w, r, err)
		return
	}
	if !containsID(sc.PropertyIDs, prop.ID) {
		http.Error(w, `{"error":"property_not_in_schema"}`, http.StatusBadRequest)
		return
	}

	updated, err := mapping.Update(sc.Mapping, prop.Name, req.Type, prop.AllowedTypes())
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrInvalidType):
			http.Error(w, `{"error":"invalid_type"}`, http.StatusBadRequest)
		default:
			http.Error(w, `{"error":"invalid_mapping"}`, http.StatusBadRequest)
		}
		return
	}

	sc, err = s.store.UpdateSchema(r.Context(), id, store.SchemaPatch{Mapping: &updated})
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.log.Info("mapping_updated", "trace_id", getTraceID(r.Context()), "schema_id", id, "property", prop.Name, "type", req.Type)
	s.writeJSON(w, r, http.StatusOK, toSchemaResponse(*sc))
}

// handleProperties lists properties, optionally restricted to an id subset.
func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	filter := store.PropertyFilter{Search: q.Get("search")}

	if inc := q.Get("include"); inc != "" {
		for _, part := range strings.Split(inc, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				http.Error(w, `{"error":"invalid_include"}`, http.StatusBadRequest)
				return
			}
			filter.Include = append(filter.Include, id)
		}
	}

	var err error
	if filter.Page, err = intParam(q.Get("page"), 1); err != nil || filter.Page < 1 {
		http.Error(w, `{"error":"invalid_page"}`, http.StatusBadRequest)
		return
	}
	if filter.PerPage, err = intParam(q.Get("per_page"), store.DefaultPerPage); err != nil || filter.PerPage < 1 || filter.PerPage > store.MaxPerPage {
		http.Error(w, `{"error":"invalid_per_page"}`, http.StatusBadRequest)
		return
	}

	page, err := s.store.ListProperties(r.Context(), filter)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	items := make([]PropertyResponse, 0, len(page.Items))
	for _, p := range page.Items {
		allowed := p.AllowedTypes()
		if allowed == nil {
			allowed = []string{}
		}
		def, _ := s.vocab.SimplestDataType(allowed)
		items = append(items, PropertyResponse{
			ID:           p.ID,
			Name:         p.Name,
			IRI:          p.IRI,
			AllowedTypes: allowed,
			DefaultType:  def,
		})
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	w.Header().Set("X-Total-Pages", strconv.Itoa(page.TotalPages))
	s.writeJSON(w, r, http.StatusOK, items)
}

// handleGraph returns the pattern summary, or one entry with ?id=.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	// Nothing is built until the first successful fetch.
	if s.projection == nil || s.projection.Patterns() == nil {
		w.Header().Set("Retry-After", "1")
		http.Error(w, `{"error":"graph_not_available"}`, http.StatusServiceUnavailable)
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		entry, ok := s.projection.Lookup(id)
		if !ok {
			http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
			return
		}
		s.writeJSON(w, r, http.StatusOK, entry)
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.projection.Summary())
}

// handleReports generates and streams reports.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	reportType := reports.ReportType(q.Get("type"))
	if reportType == "" {
		http.Error(w, `{"error":"missing_type"}`, http.StatusBadRequest)
		return
	}
	format := reports.ReportFormat(q.Get("format"))
	if format == "" {
		format = reports.ReportFormatCSV
	}
	if format != reports.ReportFormatCSV && format != reports.ReportFormatJSON {
		http.Error(w, `{"error":"invalid_format"}`, http.StatusBadRequest)
		return
	}

	params := reports.ReportParams{Format: format, Search: q.Get("search")}
	if v := q.Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, `{"error":"invalid_enabled"}`, http.StatusBadRequest)
			return
		}
		params.Enabled = &b
	}

	gen, err := reports.NewReportGenerator(reportType, s.store, s.vocab)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid_report_type","details":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		s.log.Error("failed_to_generate_report", "trace_id", getTraceID(r.Context()), "error", err)
		http.Error(w, `{"error":"report_generation_failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", reports.ContentType(format))
	filename := fmt.Sprintf("report_%s_%d.%s", reportType, time.Now().Unix(), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	if _, err := io.Copy(w, reader); err != nil {
		s.log.Error("failed_to_stream_report", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

// handleAdminRun runs one pipeline cycle synchronously.
func (s *Server) handleAdminRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	if s.pipeline == nil {
		http.Error(w, `{"error":"pipeline_not_configured"}`, http.StatusServiceUnavailable)
		return
	}

	report, err := s.pipeline.Run(r.Context())
	if err != nil {
		s.log.Warn("admin_run_failed", "trace_id", getTraceID(r.Context()), "outcome", report.Outcome, "error", err)
		s.writeJSON(w, r, http.StatusBadGateway, report)
		return
	}
	s.writeJSON(w, r, http.StatusOK, report)
}

// handleAdminGuard reports (GET) or clears (DELETE) the run guard.
func (s *Server) handleAdminGuard(w http.ResponseWriter, r *http.Request) {
	if s.guard == nil {
		http.Error(w, `{"error":"guard_not_configured"}`, http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		if err := s.guard.Clear(r.Context()); err != nil {
			s.storeError(w, r, err)
			return
		}
		s.log.Info("guard_cleared", "trace_id", getTraceID(r.Context()), "guard", s.guard.Name())
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	set, err := s.guard.IsSet(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, GuardResponse{Name: s.guard.Name(), Set: set})
}

func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	s.log.Error("store_error", "trace_id", getTraceID(r.Context()), "path", r.URL.Path, "error", err)
	http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed_to_encode_response", "trace_id", getTraceID(r.Context()), "error", err)
	}
}

func toSchemaResponse(sc store.Schema) SchemaResponse {
	ids := sc.PropertyIDs
	if ids == nil {
		ids = []int64{}
	}
	return SchemaResponse{
		ID:          sc.ID,
		Title:       sc.Title,
		Label:       graph.HumanTitle(sc.Title),
		Description: sc.Description,
		Enabled:     sc.Enabled,
		Mapping:     sc.Mapping,
		PropertyIDs: ids,
		CreatedAt:   sc.CreatedAt,
	}
}

func schemaID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, `{"error":"invalid_schema_id"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Middleware: Admin bearer token
func (s *Server) withAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.adminTokenHash) == 0 {
			http.Error(w, `{"error":"forbidden","reason":"admin_disabled"}`, http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, `{"error":"unauthorized","reason":"missing_token"}`, http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, `{"error":"unauthorized","reason":"invalid_token_format"}`, http.StatusUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare(hashToken(parts[1]), s.adminTokenHash) != 1 {
			http.Error(w, `{"error":"unauthorized","reason":"invalid_token"}`, http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// Middleware: Panic Recovery
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic_recovered", "error", fmt.Sprint(err), "path", r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		s.log.Info("http_request",
			"trace_id", traceID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func hashToken(token string) []byte {
	hash := sha256.Sum256([]byte(token))
	return hash[:]
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:;")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-XSS-Protection", "1; mode=block")

		next.ServeHTTP(w, r)
	})
}
