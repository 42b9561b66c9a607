package engine

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ValidationResult reports whether an engine can provision stores right now
type ValidationResult struct {
	Valid bool
	Error string
}

// Engine describes how to parameterize the deployment chart for one
// e-commerce stack. Implementations are stateless; fresh credentials are
// generated on every Values call.
type Engine interface {
	// Name returns the engine tag used in store records and API requests
	Name() string

	// ChartPath returns the chart the deployer installs for this engine
	ChartPath() string

	// Values builds the chart values for a store. Keys use Helm dotted
	// notation (e.g. "mariadb.auth.rootPassword").
	Values(storeID string) (map[string]string, error)

	// URLs computes the public store and admin URLs for a store
	URLs(storeID string) (storeURL, adminURL string)

	// Validate reports whether the engine is available for provisioning
	Validate() ValidationResult
}

// Registry resolves engine tags to implementations. Engines are registered
// once at startup; lookups are read-only afterwards.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry creates an empty engine registry
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine under its name
func (r *Registry) Register(e Engine) {
	r.engines[e.Name()] = e
}

// Get resolves an engine by tag
func (r *Registry) Get(name string) (Engine, error) {
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("unknown engine: %s", name)
	}
	return e, nil
}

// Known reports whether a tag names a registered engine
func (r *Registry) Known(name string) bool {
	_, ok := r.engines[name]
	return ok
}

// Names returns the registered engine tags, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStoreID generates a store identity of the form store-<8 hex chars>.
// The id doubles as the namespace and the release name.
func NewStoreID() string {
	return "store-" + uuid.NewString()[:8]
}

// generatePassword draws length characters from a cryptographically secure
// source, base64url-encoded so the result is safe in chart values and URLs.
func generatePassword(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(buf)
	return encoded[:length], nil
}
