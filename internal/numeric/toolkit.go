package numeric

// Smoother is a local polynomial regression filter.
type Smoother interface {
	Smooth(values []float64, window, order int) ([]float64, error)
	SmoothCircular(values []float64, window, order int) ([]float64, error)
}

// Decomposer splits a series into trend, seasonal and residual parts.
type Decomposer interface {
	Decompose(values []float64, period int) (Components, error)
}

// Clusterer groups equal-length vectors.
type Clusterer interface {
	Cluster(vectors [][]float64, k int) ([]Cluster, error)
}

// Toolkit is the set of optional numerical routines available to a run. It is
// resolved once at construction; a nil member means the capability is absent
// and the stages that need it skip their optional step.
type Toolkit struct {
	Smoother   Smoother
	Decomposer Decomposer
	Clusterer  Clusterer
}

// DefaultToolkit returns a toolkit with every capability available.
func DefaultToolkit() Toolkit {
	return Toolkit{
		Smoother:   SavitzkyGolay{},
		Decomposer: ClassicalDecomposer{},
		Clusterer:  KMeans{Iterations: 100, Seed: 42},
	}
}

// Capabilities lists the available optional routines, for logging.
func (t Toolkit) Capabilities() []string {
	var caps []string
	if t.Smoother != nil {
		caps = append(caps, "smoothing")
	}
	if t.Decomposer != nil {
		caps = append(caps, "decomposition")
	}
	if t.Clusterer != nil {
		caps = append(caps, "clustering")
	}
	return caps
}
