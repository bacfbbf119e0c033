package server

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/operator-framework/csv-editor/pkg/csv"
	"github.com/operator-framework/csv-editor/pkg/editor"
	"github.com/operator-framework/csv-editor/pkg/editor/status"
	"github.com/operator-framework/csv-editor/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// Session is one editing session. Its lock serialises every request that
// touches the state or its open pages.
type Session struct {
	sync.Mutex

	state *editor.State

	metadata     *editor.MetadataPage
	deployments  *editor.DeploymentsPage
	installModes *editor.InstallModesPage
	permissions  map[status.Section]*editor.PermissionsPage
	crds         map[crdKey]*editor.CRDPage
}

type crdKey struct {
	section status.Section
	name    string
}

func newSession(state *editor.State) *Session {
	return &Session{
		state:       state,
		permissions: map[status.Section]*editor.PermissionsPage{},
		crds:        map[crdKey]*editor.CRDPage{},
	}
}

// State returns the editing state.
func (s *Session) State() *editor.State {
	return s.state
}

// Metadata returns the open metadata page, entering it when needed.
func (s *Session) Metadata() *editor.MetadataPage {
	if s.metadata == nil {
		s.metadata = s.state.EnterMetadata()
	}
	s.metadata.Sync()
	return s.metadata
}

// Deployments returns the open deployments page.
func (s *Session) Deployments() *editor.DeploymentsPage {
	if s.deployments == nil {
		s.deployments = s.state.EnterDeployments()
	}
	return s.deployments
}

// InstallModes returns the open install modes page.
func (s *Session) InstallModes() *editor.InstallModesPage {
	if s.installModes == nil {
		s.installModes = s.state.EnterInstallModes()
	}
	return s.installModes
}

// Permissions returns the open permissions page of section.
func (s *Session) Permissions(section status.Section) (*editor.PermissionsPage, error) {
	if p, ok := s.permissions[section]; ok {
		return p, nil
	}
	p, err := s.state.EnterPermissions(section)
	if err != nil {
		return nil, err
	}
	s.permissions[section] = p
	return p, nil
}

// CRD returns the open page of a CRD. A renamed CRD is re-keyed.
func (s *Session) CRD(section status.Section, name string) (*editor.CRDPage, error) {
	key := crdKey{section, name}
	if p, ok := s.crds[key]; ok {
		return p, nil
	}
	p, err := s.state.EnterCRD(section, name)
	if err != nil {
		return nil, err
	}
	s.crds[key] = p
	return p, nil
}

func (s *Session) rekeyCRD(section status.Section, from string, p *editor.CRDPage) {
	delete(s.crds, crdKey{section, from})
	s.crds[crdKey{section, p.Name()}] = p
}

// Enter opens the page of section and returns its status.
func (s *Session) Enter(section status.Section) (status.Status, error) {
	switch section {
	case status.Metadata:
		return s.Metadata().Status(), nil
	case status.Deployments:
		return s.Deployments().Status(), nil
	case status.InstallModes:
		return s.InstallModes().Status(), nil
	case status.Permissions, status.ClusterPermissions:
		p, err := s.Permissions(section)
		if err != nil {
			return "", err
		}
		return p.Status(), nil
	}
	// CRD sections are entered per CRD.
	return s.state.SectionStatus(section), nil
}

// Apply validates the open page of section and marks it complete when it
// has no errors.
func (s *Session) Apply(section status.Section) (status.Status, error) {
	switch section {
	case status.Metadata:
		return s.Metadata().Apply(), nil
	case status.Deployments:
		return s.Deployments().Apply(), nil
	case status.InstallModes:
		return s.InstallModes().Apply(), nil
	case status.Permissions, status.ClusterPermissions:
		p, err := s.Permissions(section)
		if err != nil {
			return "", err
		}
		return p.Apply(), nil
	}
	return s.state.ApplyCRDs(section)
}

// Exit closes every open page of section and reports whether its status
// was rolled back.
func (s *Session) Exit(section status.Section) bool {
	rolledBack := false
	exit := func(p interface{ Exit() bool }) {
		if p.Exit() {
			rolledBack = true
		}
	}
	switch section {
	case status.Metadata:
		if s.metadata != nil {
			exit(s.metadata)
			s.metadata = nil
		}
	case status.Deployments:
		if s.deployments != nil {
			exit(s.deployments)
			s.deployments = nil
		}
	case status.InstallModes:
		if s.installModes != nil {
			exit(s.installModes)
			s.installModes = nil
		}
	case status.Permissions, status.ClusterPermissions:
		if p, ok := s.permissions[section]; ok {
			exit(p)
			delete(s.permissions, section)
		}
	default:
		for key, p := range s.crds {
			if key.section == section {
				exit(p)
				delete(s.crds, key)
			}
		}
	}
	return rolledBack
}

// Replace stores doc as the session document. Pages that cache parts of
// the old document are dropped; their sections keep their status.
func (s *Session) Replace(doc *csv.Document) {
	s.state.SetOperator(doc)
	s.permissions = map[status.Section]*editor.PermissionsPage{}
	s.crds = map[crdKey]*editor.CRDPage{}
}

// Reset closes every page and empties the state.
func (s *Session) Reset() {
	s.metadata, s.deployments, s.installModes = nil, nil, nil
	s.permissions = map[status.Section]*editor.PermissionsPage{}
	s.crds = map[crdKey]*editor.CRDPage{}
	s.state.Reset()
}

// Store keeps sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   logrus.FieldLogger
	metrics  metrics.MetricsProvider
}

// NewStore returns an empty store.
func NewStore(logger logrus.FieldLogger) *Store {
	s := &Store{sessions: map[string]*Session{}, logger: logger}
	s.metrics = metrics.NewMetricsSessions(s)
	return s
}

// Create opens a session with a fresh id.
func (s *Store) Create() *Session {
	id := uuid.New().String()
	session := newSession(editor.NewState(editor.WithID(id), editor.WithLogger(s.logger)))

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.handleMetrics()
	s.logger.WithField("session", id).Info("session created")
	return session
}

// Get returns a session by id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete drops a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	metrics.DeleteSessionMetrics(id)
	s.handleMetrics()
	s.logger.WithField("session", id).Info("session deleted")
	return nil
}

// IDs lists the session ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len implements metrics.SessionCounter.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) handleMetrics() {
	if err := s.metrics.HandleMetrics(); err != nil {
		s.logger.WithError(err).Warn("error updating session metrics")
	}
}
