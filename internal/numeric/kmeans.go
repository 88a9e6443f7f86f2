package numeric

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Cluster is one group of vectors with its centroid and member indices.
type Cluster struct {
	Centroid []float64
	Members  []int
}

// KMeans clusters equal-length vectors with k-means++ seeding and Lloyd iterations.
type KMeans struct {
	Iterations int
	Seed       uint64
}

func (km KMeans) Cluster(vectors [][]float64, k int) ([]Cluster, error) {
	if k < 1 {
		return nil, fmt.Errorf("kmeans: k must be positive, got %d", k)
	}
	if len(vectors) < k {
		return nil, fmt.Errorf("kmeans: %d vectors for %d clusters", len(vectors), k)
	}
	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("kmeans: vector %d has length %d, want %d", i, len(v), dim)
		}
	}
	iterations := km.Iterations
	if iterations <= 0 {
		iterations = 100
	}

	rng := rand.New(rand.NewPCG(km.Seed, 0))
	centroids := seedCentroids(vectors, k, rng)
	assign := make([]int, len(vectors))
	for i := range assign {
		assign[i] = -1
	}

	for it := 0; it < iterations; it++ {
		changed := false
		for i, v := range vectors {
			best := nearest(centroids, v)
			if best != assign[i] {
				assign[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, v := range vectors {
			floats.Add(next[assign[i]], v)
			counts[assign[i]]++
		}
		for c := range next {
			if counts[c] == 0 {
				// Re-seed an empty cluster at the point farthest from its centroid.
				far := farthest(vectors, centroids, assign)
				copy(next[c], vectors[far])
				assign[far] = c
				continue
			}
			floats.Scale(1/float64(counts[c]), next[c])
		}
		centroids = next
	}

	clusters := make([]Cluster, k)
	for c := range clusters {
		clusters[c].Centroid = centroids[c]
	}
	for i, c := range assign {
		clusters[c].Members = append(clusters[c].Members, i)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return len(clusters[i].Members) > len(clusters[j].Members)
	})
	return clusters, nil
}

func seedCentroids(vectors [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := vectors[rng.IntN(len(vectors))]
	centroids = append(centroids, append([]float64(nil), first...))

	dist := make([]float64, len(vectors))
	for len(centroids) < k {
		var total float64
		for i, v := range vectors {
			d := floats.Distance(v, centroids[nearest(centroids, v)], 2)
			dist[i] = d * d
			total += dist[i]
		}
		pick := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					pick = i
					break
				}
			}
		} else {
			pick = rng.IntN(len(vectors))
		}
		centroids = append(centroids, append([]float64(nil), vectors[pick]...))
	}
	return centroids
}

func nearest(centroids [][]float64, v []float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(v, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func farthest(vectors, centroids [][]float64, assign []int) int {
	far, farDist := 0, -1.0
	for i, v := range vectors {
		if assign[i] < 0 {
			continue
		}
		if d := floats.Distance(v, centroids[assign[i]], 2); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}
