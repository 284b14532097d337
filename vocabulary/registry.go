// Package vocabulary provides the unit of measure code registry used for
// validating message attribute units against the UCUM (Unified Code for
// Units of Measure) vocabulary.
//
// The registry is built once at startup from an embedded code table and
// injected wherever unit validation is needed. A Confirmer can be attached
// to accept codes missing from the table; codes it confirms are added to
// the registry so the confirmation happens at most once per code.
package vocabulary

import (
	_ "embed"
	"encoding/csv"
	"log/slog"
	"strings"
	"sync"

	"github.com/simcesplatform/simulation-tools/errors"
)

//go:embed unitcodes.csv
var unitCodeTable string

// Confirmer decides whether a unit code absent from the preloaded table is
// nevertheless a valid UCUM code. Implementations typically call an
// external validator service.
type Confirmer interface {
	Confirm(code string) (description string, ok bool)
}

// UnitRegistry holds the known unit codes and their descriptions.
// Safe for concurrent use.
type UnitRegistry struct {
	mu        sync.RWMutex
	codes     map[string]string
	confirmer Confirmer
	logger    *slog.Logger
}

// Option configures a UnitRegistry.
type Option func(*UnitRegistry)

// WithConfirmer attaches an external validator for unknown codes.
func WithConfirmer(c Confirmer) Option {
	return func(r *UnitRegistry) {
		r.confirmer = c
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *UnitRegistry) {
		r.logger = logger
	}
}

// NewUnitRegistry builds a registry from the embedded unit code table.
func NewUnitRegistry(opts ...Option) (*UnitRegistry, error) {
	r := &UnitRegistry{
		codes:  make(map[string]string),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	reader := csv.NewReader(strings.NewReader(unitCodeTable))
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapFatal(err, "UnitRegistry", "NewUnitRegistry", "read unit code table")
	}
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			// Header row and malformed rows are skipped.
			continue
		}
		r.codes[record[0]] = record[1]
	}

	r.logger.Debug("unit code registry loaded", "codes", len(r.codes))
	return r, nil
}

// IsValid reports whether the code is a known unit of measure. Unknown
// codes are offered to the attached Confirmer; confirmed codes are added
// to the registry.
func (r *UnitRegistry) IsValid(code string) bool {
	if code == "" {
		return false
	}

	r.mu.RLock()
	_, known := r.codes[code]
	confirmer := r.confirmer
	r.mu.RUnlock()
	if known {
		return true
	}
	if confirmer == nil {
		return false
	}

	description, ok := confirmer.Confirm(code)
	if !ok {
		return false
	}

	r.mu.Lock()
	r.codes[code] = description
	r.mu.Unlock()
	r.logger.Debug("unit code confirmed by external validator", "code", code)
	return true
}

// Description returns the description for the given unit code.
// The second return value is false when the code is not in the registry.
func (r *UnitRegistry) Description(code string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	description, ok := r.codes[code]
	return description, ok
}

// Len returns the number of registered unit codes.
func (r *UnitRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}
