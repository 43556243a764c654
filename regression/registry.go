package regression

import (
	"sort"
	"sync"

	"github.com/bioforge/organclock/core/model"
	"github.com/bioforge/organclock/pkg/errors"
)

// NonlinearFactory builds a nonlinear regressor from boosting parameters.
type NonlinearFactory func(params GBParams) (model.Regressor, error)

var (
	backendMu sync.RWMutex
	backends  = map[string]NonlinearFactory{}

	// optionalBackends names backends that exist in the ecosystem but
	// require an external provider to be linked in.
	optionalBackends = map[string]string{
		"xgboost":  "register an XGBoost provider to enable this backend",
		"lightgbm": "register a LightGBM provider to enable this backend",
	}
)

func init() {
	RegisterNonlinear("hist_gb", func(params GBParams) (model.Regressor, error) {
		return NewGradientBoosting(params), nil
	})
}

// RegisterNonlinear installs a factory for a named nonlinear backend.
// Registering a name again replaces the previous factory, so external
// providers can claim an optional backend at init time.
func RegisterNonlinear(name string, factory NonlinearFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backends[name] = factory
}

// NewNonlinear builds a regressor for the named backend. A known-but-
// unregistered backend yields a MissingDependencyError naming what would
// provide it; an unknown name is a validation failure.
func NewNonlinear(name string, params GBParams) (model.Regressor, error) {
	backendMu.RLock()
	factory, ok := backends[name]
	backendMu.RUnlock()
	if ok {
		return factory(params)
	}
	if hint, optional := optionalBackends[name]; optional {
		return nil, errors.NewMissingDependencyError(name, hint)
	}
	return nil, errors.NewValidationError("backend", "unknown nonlinear backend", name)
}

// NonlinearBackends lists the currently registered backend names, sorted.
func NonlinearBackends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
