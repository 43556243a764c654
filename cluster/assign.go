package cluster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/bioforge/organclock/dataset"
	"github.com/bioforge/organclock/pkg/errors"
	"github.com/bioforge/organclock/pkg/log"
)

// GapClusterColumn is the label column AssignGapClusters writes.
const GapClusterColumn = "GAP_CLUSTER"

// AssignGapClusters clusters individuals on their organ age-gap profile
// and writes the labels back into the table. Only rows with a complete
// gap profile are clustered; incomplete rows receive the NotClustered
// sentinel, which is distinct from DBSCAN's Noise label. Returns the
// clustering result over the complete rows.
func AssignGapClusters(f *dataset.Frame, gapCols []string, method string, opts Options) (*Result, error) {
	if len(gapCols) == 0 {
		return nil, errors.NewValueError("AssignGapClusters", "no gap columns given")
	}

	keep, err := f.CompleteRows(gapCols...)
	if err != nil {
		return nil, err
	}
	complete, err := f.Filter(keep)
	if err != nil {
		return nil, err
	}
	if complete.NumRows() == 0 {
		return nil, errors.NewValueError("AssignGapClusters", "no rows with a complete gap profile")
	}

	X, err := complete.Matrix(gapCols...)
	if err != nil {
		return nil, err
	}

	result, err := PerformClustering(X, method, opts)
	if err != nil {
		return nil, err
	}

	labels := make([]float64, f.NumRows())
	pos := 0
	for i := range labels {
		if keep[i] {
			labels[i] = float64(result.Labels[pos])
			pos++
		} else {
			labels[i] = NotClustered
		}
	}
	if err := f.SetColumn(GapClusterColumn, labels); err != nil {
		return nil, err
	}

	log.With("cluster").Info().
		Str("method", method).
		Int("clustered", complete.NumRows()).
		Int("excluded", f.NumRows()-complete.NumRows()).
		Msg("gap clusters assigned")
	return result, nil
}

// Profile summarizes one cluster.
type Profile struct {
	Cluster  int                `json:"cluster"`
	Size     int                `json:"size"`
	MeanAge  float64            `json:"mean_age"`
	MeanGaps map[string]float64 `json:"mean_gaps"`
}

// ClusterCharacteristics computes per-cluster size, mean age and mean gap
// per organ. NotClustered rows are excluded; DBSCAN noise appears as its
// own group so outliers stay visible.
func ClusterCharacteristics(f *dataset.Frame, clusterCol, ageCol string, gapCols []string) ([]Profile, error) {
	labels, err := f.Column(clusterCol)
	if err != nil {
		return nil, err
	}
	age, err := f.Column(ageCol)
	if err != nil {
		return nil, err
	}

	gaps := make(map[string]*dataset.Column, len(gapCols))
	for _, gc := range gapCols {
		c, err := f.Column(gc)
		if err != nil {
			return nil, err
		}
		gaps[gc] = c
	}

	type acc struct {
		size    int
		ageSum  float64
		gapSums map[string]float64
	}
	byCluster := map[int]*acc{}
	for i := 0; i < f.NumRows(); i++ {
		label := int(labels.Values[i])
		if label == NotClustered {
			continue
		}
		a, ok := byCluster[label]
		if !ok {
			a = &acc{gapSums: map[string]float64{}}
			byCluster[label] = a
		}
		a.size++
		if !math.IsNaN(age.Values[i]) {
			a.ageSum += age.Values[i]
		}
		for _, gc := range gapCols {
			if v := gaps[gc].Values[i]; !math.IsNaN(v) {
				a.gapSums[gc] += v
			}
		}
	}

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	profiles := make([]Profile, 0, len(ids))
	for _, id := range ids {
		a := byCluster[id]
		p := Profile{Cluster: id, Size: a.size, MeanAge: a.ageSum / float64(a.size), MeanGaps: map[string]float64{}}
		for _, gc := range gapCols {
			p.MeanGaps[gc] = a.gapSums[gc] / float64(a.size)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// EmbeddingFrame packages a 2-D embedding with its cluster labels for
// plotting.
type EmbeddingFrame struct {
	X, Y   []float64
	Labels []int
}

// BuildEmbeddingFrame flattens a two-column embedding and label vector.
func BuildEmbeddingFrame(embedding *mat.Dense, labels []int) (*EmbeddingFrame, error) {
	n, c := embedding.Dims()
	if c < 2 {
		return nil, errors.NewValueError("BuildEmbeddingFrame", "embedding needs at least two components")
	}
	if len(labels) != n {
		return nil, errors.NewDimensionError("BuildEmbeddingFrame", n, len(labels), 0)
	}
	out := &EmbeddingFrame{X: make([]float64, n), Y: make([]float64, n), Labels: append([]int(nil), labels...)}
	for i := 0; i < n; i++ {
		out.X[i] = embedding.At(i, 0)
		out.Y[i] = embedding.At(i, 1)
	}
	return out, nil
}
