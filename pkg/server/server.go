// Package server exposes editing sessions over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	"github.com/sirupsen/logrus"

	"github.com/operator-framework/csv-editor/pkg/catalog"
	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor"
	"github.com/operator-framework/csv-editor/pkg/editor/rows"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/feature"
	"github.com/operator-framework/csv-editor/pkg/manifests"
	"github.com/operator-framework/csv-editor/pkg/metrics"
	"github.com/operator-framework/csv-editor/pkg/validation"
)

// maxBodySize caps request bodies, manifest uploads included.
const maxBodySize = 8 << 20

// errBadRequest marks errors caused by the request content.
var errBadRequest = errors.New("bad request")

type badRequest struct {
	err error
}

func (e badRequest) Error() string        { return e.err.Error() }
func (e badRequest) Unwrap() error        { return e.err }
func (e badRequest) Is(target error) bool { return target == errBadRequest }

// API serves the editor endpoints.
type API struct {
	store    *Store
	importer *manifests.Importer
	logger   logrus.FieldLogger
	router   chi.Router
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithStore shares a session store.
func WithStore(store *Store) Option {
	return func(a *API) {
		a.store = store
	}
}

// NewAPI builds the router.
func NewAPI(options ...Option) *API {
	a := &API{logger: logrus.StandardLogger()}
	for _, opt := range options {
		opt(a)
	}
	if a.store == nil {
		a.store = NewStore(a.logger)
	}
	a.importer = manifests.NewImporter(manifests.WithLogger(a.logger))
	a.setupRouter()
	return a
}

// Store returns the session store.
func (a *API) Store() *Store {
	return a.store
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) setupRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.loggingMiddleware)

	r.Get("/api/openapi.json", a.handleOpenAPI)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/catalogs", a.handleListCatalogs)
		r.Get("/catalogs/{catalog}", a.handleGetCatalog)

		r.Get("/sessions", a.handleListSessions)
		r.Post("/sessions", a.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", a.withSession(a.handleGetSession))
			r.Delete("/", a.handleDeleteSession)
			r.Post("/reset", a.withSession(a.handleReset))

			r.Get("/operator", a.withSession(a.handleGetOperator))
			r.Put("/operator", a.withSession(a.handlePutOperator))
			r.Patch("/operator", a.withSession(a.handlePatchOperator))
			r.Get("/preview", a.withSession(a.handlePreview))
			r.Get("/summary", a.withSession(a.handleSummary))
			r.Get("/validate", a.withSession(a.handleValidate))
			r.Post("/manifests", a.withSession(a.handleManifests))

			r.Post("/sections/{section}/enter", a.withSession(a.handleEnter))
			r.Post("/sections/{section}/apply", a.withSession(a.handleApply))
			r.Post("/sections/{section}/exit", a.withSession(a.handleExit))

			r.Put("/metadata", a.withSession(a.handleMetadataField))
			r.Get("/metadata/errors", a.withSession(a.handleMetadataErrors))

			r.Put("/deployments", a.withSession(a.handlePutDeployments))
			r.Put("/install-modes/{mode}", a.withSession(a.handlePutInstallMode))

			r.Get("/crds/{section}", a.withSession(a.handleListCRDs))
			r.Get("/crds/{section}/{name}", a.withSession(a.handleGetCRD))
			r.Put("/crds/{section}/{name}", a.withSession(a.handlePutCRDField))
			r.Delete("/crds/{section}/{name}", a.withSession(a.handleDeleteCRD))
			r.Get("/crds/{section}/{name}/template", a.withSession(a.handleGetTemplate))
			r.Put("/crds/{section}/{name}/template", a.withSession(a.handlePutTemplate))

			r.Post("/permissions/{section}/{serviceAccount}", a.withSession(a.handleAddServiceAccount))
			r.Delete("/permissions/{section}/{serviceAccount}", a.withSession(a.handleRemoveServiceAccount))
			r.Put("/permissions/{section}/{serviceAccount}/rules", a.withSession(a.handlePutRules))
		})
	})
	a.router = r
}

func (a *API) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
			"request":  middleware.GetReqID(r.Context()),
		}).Debug("request served")
	})
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

// withSession resolves the session of the request and holds its lock for
// the duration of the handler.
func (a *API) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := a.store.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			a.writeError(w, err)
			return
		}
		s.Lock()
		defer s.Unlock()
		h(w, r, s)
	}
}

func (a *API) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.WithError(err).Warn("error writing response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, editor.ErrCRDNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, editor.ErrNotCRDSection):
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		a.logger.WithError(err).Error("request failed")
	}
	a.writeJSON(w, code, errorResponse{Error: err.Error()})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		return badRequest{err}
	}
	return nil
}

func sectionParam(r *http.Request) (status.Section, error) {
	section, err := status.ParseSection(chi.URLParam(r, "section"))
	if err != nil {
		return "", badRequest{err}
	}
	return section, nil
}

// SessionView is the JSON form of a session.
type SessionView struct {
	ID            string                           `json:"id"`
	Operator      *csv.Document                    `json:"operator"`
	FormErrors    validation.Errors                `json:"formErrors"`
	SectionStatus map[status.Section]status.Status `json:"sectionStatus"`
	Valid         bool                             `json:"valid"`
}

func viewOf(s *Session) SessionView {
	st := s.State()
	return SessionView{
		ID:            st.ID(),
		Operator:      st.Operator(),
		FormErrors:    st.FormErrors(),
		SectionStatus: st.SectionStatuses(),
		Valid:         st.Valid(),
	}
}

func (a *API) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, catalog.All())
}

func (a *API) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	c, ok := catalog.Lookup(chi.URLParam(r, "catalog"))
	if !ok {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown catalog"})
		return
	}
	a.writeJSON(w, http.StatusOK, c)
}

func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.IDs())
}

func (a *API) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := a.store.Create()
	s.Lock()
	defer s.Unlock()
	a.writeJSON(w, http.StatusCreated, viewOf(s))
}

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request, s *Session) {
	a.writeJSON(w, http.StatusOK, viewOf(s))
}

func (a *API) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Delete(chi.URLParam(r, "sessionID")); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request, s *Session) {
	s.Reset()
	a.writeJSON(w, http.StatusOK, viewOf(s))
}

func (a *API) handleGetOperator(w http.ResponseWriter, r *http.Request, s *Session) {
	a.writeJSON(w, http.StatusOK, s.State().Operator())
}

func (a *API) handlePutOperator(w http.ResponseWriter, r *http.Request, s *Session) {
	doc := csv.New()
	if err := decodeBody(r, doc); err != nil {
		a.writeError(w, err)
		return
	}
	s.Replace(doc)
	a.writeJSON(w, http.StatusOK, viewOf(s))
}

func (a *API) handlePatchOperator(w http.ResponseWriter, r *http.Request, s *Session) {
	if !feature.Gate.Enabled(feature.JSONPatch) {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: "json patches are disabled"})
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	patch, err := jsonpatch.DecodePatch(body)
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	current, err := s.State().Operator().MarshalJSON()
	if err != nil {
		a.writeError(w, err)
		return
	}
	patched, err := patch.Apply(current)
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	doc := csv.New()
	if err := doc.UnmarshalJSON(patched); err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	s.Replace(doc)
	a.writeJSON(w, http.StatusOK, viewOf(s))
}

func (a *API) handlePreview(w http.ResponseWriter, r *http.Request, s *Session) {
	out, err := s.State().YAML()
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request, s *Session) {
	sum, err := s.State().Summary()
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	a.writeJSON(w, http.StatusOK, sum)
}

// ValidateResponse lists the failing fields of a document.
type ValidateResponse struct {
	Valid    bool                 `json:"valid"`
	Failures []validation.Failure `json:"failures"`
}

func (a *API) handleValidate(w http.ResponseWriter, r *http.Request, s *Session) {
	start := time.Now()
	resp := ValidateResponse{Valid: s.State().Valid(), Failures: s.State().Failures()}
	if resp.Failures == nil {
		resp.Failures = []validation.Failure{}
	}
	if resp.Valid {
		metrics.RegisterValidationSuccess(time.Since(start))
	} else {
		metrics.RegisterValidationFailure(time.Since(start))
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleManifests(w http.ResponseWriter, r *http.Request, s *Session) {
	if !feature.Gate.Enabled(feature.ManifestUpload) {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Error: "manifest upload is disabled"})
		return
	}
	doc, report, err := a.importer.Import(s.State().Operator(), io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	s.Replace(doc)
	a.writeJSON(w, http.StatusOK, report)
}

// StatusResponse carries a section status.
type StatusResponse struct {
	Section    status.Section `json:"section"`
	Status     status.Status  `json:"status"`
	RolledBack bool           `json:"rolledBack,omitempty"`
}

func (a *API) handleEnter(w http.ResponseWriter, r *http.Request, s *Session) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	st, err := s.Enter(section)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: section, Status: st})
}

func (a *API) handleApply(w http.ResponseWriter, r *http.Request, s *Session) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	st, err := s.Apply(section)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: section, Status: st})
}

func (a *API) handleExit(w http.ResponseWriter, r *http.Request, s *Session) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	rolledBack := s.Exit(section)
	a.writeJSON(w, http.StatusOK, StatusResponse{
		Section:    section,
		Status:     s.State().SectionStatus(section),
		RolledBack: rolledBack,
	})
}

// FieldUpdate sets one field. Commit false keeps the change on the page's
// working copy.
type FieldUpdate struct {
	Path   string      `json:"path"`
	Value  interface{} `json:"value"`
	Commit *bool       `json:"commit,omitempty"`
}

func (a *API) handleMetadataField(w http.ResponseWriter, r *http.Request, s *Session) {
	var req FieldUpdate
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	p := s.Metadata()
	if err := p.Update(req.Path, req.Value); err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	st := p.Status()
	if req.Commit == nil || *req.Commit {
		st = p.Commit(req.Path)
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: status.Metadata, Status: st})
}

func (a *API) handleMetadataErrors(w http.ResponseWriter, r *http.Request, s *Session) {
	a.writeJSON(w, http.StatusOK, s.Metadata().VisibleErrors())
}

func (a *API) handlePutDeployments(w http.ResponseWriter, r *http.Request, s *Session) {
	var deployments []interface{}
	if err := decodeBody(r, &deployments); err != nil {
		a.writeError(w, err)
		return
	}
	st, err := s.Deployments().Update(deployments)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: status.Deployments, Status: st})
}

// SupportedRequest toggles an install mode.
type SupportedRequest struct {
	Supported bool `json:"supported"`
}

func (a *API) handlePutInstallMode(w http.ResponseWriter, r *http.Request, s *Session) {
	var req SupportedRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	mode := operatorsv1alpha1.InstallModeType(chi.URLParam(r, "mode"))
	st, err := s.InstallModes().SetSupported(mode, req.Supported)
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: status.InstallModes, Status: st})
}

func (a *API) handleListCRDs(w http.ResponseWriter, r *http.Request, s *Session) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if _, err := editor.CRDList(section); err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, s.State().CRDNames(section))
}

// CRDView is the JSON form of a CRD page.
type CRDView struct {
	Name      string                 `json:"name"`
	CRD       map[string]interface{} `json:"crd"`
	FocusName bool                   `json:"focusName"`
	Template  TemplateView           `json:"template"`
}

// TemplateView is the JSON form of the example editor.
type TemplateView struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (a *API) crdPage(w http.ResponseWriter, r *http.Request, s *Session) (*editor.CRDPage, bool) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return nil, false
	}
	p, err := s.CRD(section, chi.URLParam(r, "name"))
	if err != nil {
		a.writeError(w, err)
		return nil, false
	}
	return p, true
}

func crdView(p *editor.CRDPage) (CRDView, error) {
	crd, err := p.CRD()
	if err != nil {
		return CRDView{}, err
	}
	t := p.Template()
	return CRDView{
		Name:      p.Name(),
		CRD:       crd,
		FocusName: p.FocusName(),
		Template:  TemplateView{Kind: t.Kind(), Text: t.Text(), Error: t.Error()},
	}, nil
}

func (a *API) handleGetCRD(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.crdPage(w, r, s)
	if !ok {
		return
	}
	view, err := crdView(p)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handlePutCRDField(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.crdPage(w, r, s)
	if !ok {
		return
	}
	var req FieldUpdate
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, err)
		return
	}
	from := p.Name()
	if _, err := p.Update(req.Path, req.Value); err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	if p.Name() != from {
		s.rekeyCRD(p.Section(), from, p)
	}
	view, err := crdView(p)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, view)
}

func (a *API) handleDeleteCRD(w http.ResponseWriter, r *http.Request, s *Session) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")
	if err := s.State().RemoveCRD(section, name); err != nil {
		a.writeError(w, err)
		return
	}
	delete(s.crds, crdKey{section, name})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleGetTemplate(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.crdPage(w, r, s)
	if !ok {
		return
	}
	t := p.Template()
	a.writeJSON(w, http.StatusOK, TemplateView{Kind: t.Kind(), Text: t.Text(), Error: t.Error()})
}

func (a *API) handlePutTemplate(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.crdPage(w, r, s)
	if !ok {
		return
	}
	text, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	code := http.StatusOK
	if !p.ChangeTemplate(string(text)) {
		code = http.StatusUnprocessableEntity
	}
	t := p.Template()
	a.writeJSON(w, code, TemplateView{Kind: t.Kind(), Text: t.Text(), Error: t.Error()})
}

func (a *API) permissionsPage(w http.ResponseWriter, r *http.Request, s *Session) (*editor.PermissionsPage, bool) {
	section, err := sectionParam(r)
	if err != nil {
		a.writeError(w, err)
		return nil, false
	}
	p, err := s.Permissions(section)
	if err != nil {
		a.writeError(w, badRequest{err})
		return nil, false
	}
	return p, true
}

func (a *API) handleAddServiceAccount(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.permissionsPage(w, r, s)
	if !ok {
		return
	}
	st, err := p.AddServiceAccount(chi.URLParam(r, "serviceAccount"))
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	a.writeJSON(w, http.StatusCreated, StatusResponse{Section: p.Section(), Status: st})
}

func (a *API) handleRemoveServiceAccount(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.permissionsPage(w, r, s)
	if !ok {
		return
	}
	st, err := p.RemoveServiceAccount(chi.URLParam(r, "serviceAccount"))
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: p.Section(), Status: st})
}

func (a *API) handlePutRules(w http.ResponseWriter, r *http.Request, s *Session) {
	p, ok := a.permissionsPage(w, r, s)
	if !ok {
		return
	}
	var ruleRows []*rows.RuleRow
	if err := decodeBody(r, &ruleRows); err != nil {
		a.writeError(w, err)
		return
	}
	for i, row := range ruleRows {
		if row == nil {
			a.writeError(w, badRequest{fmt.Errorf("rule %d is null", i)})
			return
		}
	}
	st, err := p.UpdateRules(chi.URLParam(r, "serviceAccount"), ruleRows)
	if err != nil {
		a.writeError(w, badRequest{err})
		return
	}
	a.writeJSON(w, http.StatusOK, StatusResponse{Section: p.Section(), Status: st})
}
