package cluster

import (
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/pkg/errors"
)

// Embedder projects a feature matrix into a low-dimensional embedding.
type Embedder interface {
	Embed(X *mat.Dense, nComponents int, seed int64) (*mat.Dense, error)
}

var (
	embedderMu sync.RWMutex
	embedders  = map[string]Embedder{}
)

// RegisterEmbedder installs a named embedding backend. An external UMAP
// provider claims the "umap" name at init time.
func RegisterEmbedder(name string, e Embedder) {
	embedderMu.Lock()
	defer embedderMu.Unlock()
	embedders[name] = e
}

// ApplyUMAP embeds X with a registered UMAP backend. Without a provider
// the call fails with a MissingDependencyError telling the caller what to
// register; PCA remains the always-available embedding.
func ApplyUMAP(X *mat.Dense, nComponents int, seed int64) (*mat.Dense, error) {
	embedderMu.RLock()
	e, ok := embedders["umap"]
	embedderMu.RUnlock()
	if !ok {
		return nil, errors.NewMissingDependencyError("umap",
			"register a UMAP embedder with cluster.RegisterEmbedder, or use ApplyPCA")
	}
	return e.Embed(X, nComponents, seed)
}
