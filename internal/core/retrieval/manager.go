package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/core/ports"
)

// DefaultTopK matches the configuration default.
const DefaultTopK = 5

// Factory constructs one named retriever adapter. Construction may fail
// (backend client dial, missing credentials); the manager degrades to the
// noop retriever in that case.
type Factory func() (ports.Retriever, error)

// Config is the retrieval slice of the service configuration.
type Config struct {
	Retrievers       []string
	Weights          []float64
	TopK             int
	RRFC             int
	ContextHierarchy bool
	BaseRatio        float64
}

// Manager owns the configured retriever composition and exposes Retrieve to
// the rest of the pipeline. The adapter registry is an explicit name→factory
// map built once in bootstrap; lookup failure is only discoverable against
// live config, so it degrades instead of failing fast.
type Manager struct {
	retriever ports.Retriever
	logger    *slog.Logger
}

// NewManager resolves the configured retriever names against the factory
// registry. Exactly one name uses the adapter directly; several are wrapped
// in an Ensemble; context-hierarchy wraps the result in a Hierarchical.
// A weights/retrievers length mismatch is caller-correctable before any
// query runs and fails fast. Unknown names and failing constructors fall
// back to the noop retriever.
func NewManager(cfg Config, factories map[string]Factory, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if len(cfg.Weights) > 0 && len(cfg.Weights) != len(cfg.Retrievers) {
		return nil, domain.WrapError(domain.ErrWeightsMismatch, "new manager",
			errLengths(len(cfg.Weights), len(cfg.Retrievers)))
	}

	members := make([]ports.Retriever, 0, len(cfg.Retrievers))
	for _, name := range cfg.Retrievers {
		factory, ok := factories[name]
		if !ok {
			logger.Warn("unknown retriever, falling back to default", "retriever", name)
			members = append(members, Noop{})
			continue
		}
		r, err := factory()
		if err != nil {
			logger.Warn("retriever construction failed, falling back to default",
				"retriever", name,
				"error", err,
			)
			members = append(members, Noop{})
			continue
		}
		members = append(members, r)
	}

	var selected ports.Retriever
	switch len(members) {
	case 0:
		logger.Warn("no retrievers configured, using default")
		selected = Noop{}
	case 1:
		selected = members[0]
	default:
		var weights []float64
		if len(cfg.Weights) > 0 {
			weights = cfg.Weights
		} else {
			logger.Warn("no weights for ensemble retriever, using equal weights")
		}
		ensemble, err := NewEnsemble(members, weights, cfg.TopK, cfg.RRFC, logger)
		if err != nil {
			return nil, err
		}
		selected = ensemble
	}

	if cfg.ContextHierarchy {
		selected = NewHierarchical(selected, cfg.TopK, cfg.BaseRatio, logger)
	}

	logger.Info("retriever configured", "retriever", selected.Name(), "top_k", cfg.TopK)
	return &Manager{retriever: selected, logger: logger}, nil
}

// Retriever exposes the composed retriever, mainly for tests.
func (m *Manager) Retriever() ports.Retriever { return m.retriever }

// Retrieve runs the composed retriever. Failures are logged and surface as
// an empty chunk list; downstream the generator produces an "I don't know"
// style answer rather than the pipeline erroring out.
func (m *Manager) Retrieve(ctx context.Context, queries domain.QueryBundle, filter domain.Filter) []domain.Chunk {
	if queries.IsEmpty() {
		return nil
	}
	chunks, err := m.retriever.Retrieve(ctx, queries, filter)
	if err != nil {
		m.logger.Warn("retrieval failed", "retriever", m.retriever.Name(), "error", err)
		return nil
	}
	return chunks
}

func errLengths(weights, retrievers int) error {
	return fmt.Errorf("got %d weights for %d retrievers", weights, retrievers)
}
