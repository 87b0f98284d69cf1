// Package session implements the application shell the activation
// controller works for: it owns the current study document and collects
// the diagnostics surfaced to the user.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"modulehost/internal/clock"
	"modulehost/pkg/module"
)

var (
	ErrDocumentOpen      = errors.New("a study is already open")
	ErrNoDocument        = errors.New("no study is open")
	ErrPendingOperations = errors.New("modules have operations that cannot be aborted")
)

// DefaultDiagnostics is the number of surfaced diagnostics kept in memory.
const DefaultDiagnostics = 50

// Study is the document modules connect to.
type Study struct {
	id      string
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
}

// ID returns the study identifier.
func (s *Study) ID() string {
	return s.id
}

// MarshalJSON includes the identifier.
func (s *Study) MarshalJSON() ([]byte, error) {
	type study Study
	return json.Marshal(struct {
		ID string `json:"id"`
		study
	}{ID: s.id, study: study(*s)})
}

// Diagnostic is a message surfaced to the user.
type Diagnostic struct {
	Time    time.Time `json:"time"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
}

// DocumentListener is notified before a study is closed. The activation
// controller implements it.
type DocumentListener interface {
	AbortAllOperations() bool
	ActivateModule(name string) error
	DocumentClosed(doc module.Document)
}

// Session holds the current study and the diagnostics log.
type Session struct {
	logger *zap.Logger
	clock  clock.Clock

	mu          sync.RWMutex
	current     *Study
	listener    DocumentListener
	diagnostics []Diagnostic
	limit       int
}

// New creates a session with no open study.
func New(logger *zap.Logger, c clock.Clock) *Session {
	if c == nil {
		c = clock.Real{}
	}
	return &Session{
		logger: logger.Named("session"),
		clock:  c,
		limit:  DefaultDiagnostics,
	}
}

// SetListener sets the listener notified on study close.
func (s *Session) SetListener(l DocumentListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// CurrentDocument returns the open study, or nil.
func (s *Session) CurrentDocument() module.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	return s.current
}

// Study returns the open study, or nil.
func (s *Session) Study() *Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// OpenDocument creates a new study and makes it current.
func (s *Session) OpenDocument(name string) (*Study, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return nil, ErrDocumentOpen
	}
	if name == "" {
		name = "Study1"
	}
	s.current = &Study{
		id:      uuid.NewString(),
		Name:    name,
		Created: s.clock.Now(),
	}
	s.logger.Info("Study opened",
		zap.String("id", s.current.id),
		zap.String("name", name))
	return s.current, nil
}

// CloseDocument closes the current study. Unless force is set, the close
// is refused while a module has operations it cannot abort. The active
// module is deactivated and every loaded module is told about the close.
func (s *Session) CloseDocument(force bool) error {
	s.mu.RLock()
	study, listener := s.current, s.listener
	s.mu.RUnlock()

	if study == nil {
		return ErrNoDocument
	}

	if listener != nil {
		if !listener.AbortAllOperations() && !force {
			return ErrPendingOperations
		}
		if err := listener.ActivateModule(""); err != nil {
			return fmt.Errorf("deactivate module before closing study: %w", err)
		}
		listener.DocumentClosed(study)
	}

	s.mu.Lock()
	if s.current == study {
		s.current = nil
	}
	s.mu.Unlock()

	s.logger.Info("Study closed", zap.String("id", study.id), zap.Bool("forced", force))
	return nil
}

// SurfaceError records a diagnostic and logs it.
func (s *Session) SurfaceError(title, message string) {
	d := Diagnostic{Time: s.clock.Now(), Title: title, Message: message}

	s.mu.Lock()
	s.diagnostics = append(s.diagnostics, d)
	if len(s.diagnostics) > s.limit {
		s.diagnostics = s.diagnostics[len(s.diagnostics)-s.limit:]
	}
	s.mu.Unlock()

	s.logger.Error(message, zap.String("title", title))
}

// Diagnostics returns the retained diagnostics, oldest first.
func (s *Session) Diagnostics() []Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]Diagnostic, len(s.diagnostics))
	copy(result, s.diagnostics)
	return result
}
