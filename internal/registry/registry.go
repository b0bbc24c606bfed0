package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/inference-gateway/internal/core/domain"
)

// Registry is the in-memory catalog of backend models, keyed by model name
// with every registered version kept newest-first. Registration and health
// sweeps are the only writers; resolution and listing run concurrently
// under the read lock.
type Registry struct {
	mu     sync.RWMutex
	models map[string][]domain.ModelInfo
}

func New() *Registry {
	return &Registry{
		models: make(map[string][]domain.ModelInfo),
	}
}

// Register inserts a model version under its name, keeping versions ordered
// newest-first. Registering an existing (name, version) pair replaces it.
func (r *Registry) Register(m domain.ModelInfo) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if m.HealthStatus == "" {
		m.HealthStatus = domain.HealthUnknown
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	versions := r.models[m.Name]
	for i, existing := range versions {
		if existing.Version == m.Version {
			versions[i] = m
			return nil
		}
	}

	versions = append(versions, m)
	sort.SliceStable(versions, func(i, j int) bool {
		return compareVersions(versions[i].Version, versions[j].Version) > 0
	})
	r.models[m.Name] = versions
	return nil
}

// Resolve returns the model for (name, version). Version "latest" selects
// the newest registered version of the name.
func (r *Registry) Resolve(name, ver string) (domain.ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions, ok := r.models[name]
	if !ok || len(versions) == 0 {
		return domain.ModelInfo{}, fmt.Errorf("resolve %q: %w", name, domain.ErrModelNotFound)
	}

	if ver == "" || ver == "latest" {
		return versions[0], nil
	}

	for _, m := range versions {
		if m.Version == ver {
			return m, nil
		}
	}
	return domain.ModelInfo{}, fmt.Errorf("resolve %q version %q: %w", name, ver, domain.ErrModelNotFound)
}

// List flattens the registry into a stable, client-facing slice ordered by
// name and then newest version first.
func (r *Registry) List() []domain.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []domain.ModelInfo
	for _, name := range names {
		out = append(out, r.models[name]...)
	}
	return out
}

// HealthSummary aggregates per-model health for the gateway health endpoint.
type HealthSummary struct {
	Total     int `json:"total"`
	Healthy   int `json:"healthy"`
	Degraded  int `json:"degraded"`
	Unhealthy int `json:"unhealthy"`
	Unknown   int `json:"unknown"`
}

func (r *Registry) HealthSummary() HealthSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s HealthSummary
	for _, versions := range r.models {
		for _, m := range versions {
			s.Total++
			switch m.HealthStatus {
			case domain.HealthHealthy:
				s.Healthy++
			case domain.HealthDegraded:
				s.Degraded++
			case domain.HealthUnhealthy:
				s.Unhealthy++
			default:
				s.Unknown++
			}
		}
	}
	return s
}

// SetHealth records a probe outcome for one model version.
func (r *Registry) SetHealth(name, ver string, status domain.HealthStatus, checkedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.models[name] {
		if m.Version == ver {
			r.models[name][i].HealthStatus = status
			r.models[name][i].LastHealthCheck = checkedAt
			return
		}
	}
}

// Export returns a deep copy of the catalog for snapshot persistence.
func (r *Registry) Export() map[string][]domain.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]domain.ModelInfo, len(r.models))
	for name, versions := range r.models {
		out[name] = append([]domain.ModelInfo(nil), versions...)
	}
	return out
}

// compareVersions orders version strings semantically when both parse as
// semver (so "v10" sorts above "v2"); otherwise it falls back to plain
// string comparison for free-form version labels.
func compareVersions(a, b string) int {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return strings.Compare(a, b)
}
