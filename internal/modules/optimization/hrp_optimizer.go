package optimization

import (
	"fmt"
	"math"

	"github.com/aristath/frontier/internal/domain"
	"github.com/aristath/frontier/pkg/formulas"
)

type hrpLinkage string

const (
	hrpLinkageSingle   hrpLinkage = "single"
	hrpLinkageComplete hrpLinkage = "complete"
	hrpLinkageAverage  hrpLinkage = "average"
)

// HRPOptions configures hierarchical clustering
type HRPOptions struct {
	Linkage hrpLinkage
}

func defaultHRPOptions() HRPOptions {
	return HRPOptions{Linkage: hrpLinkageSingle}
}

// HRPOptimizer performs Hierarchical Risk Parity allocation. Unlike the
// mean-variance solver it needs no expected returns and no numerical
// optimizer: weights come from the covariance structure alone.
type HRPOptimizer struct{}

// NewHRPOptimizer creates a new HRP optimizer.
func NewHRPOptimizer() *HRPOptimizer {
	return &HRPOptimizer{}
}

type hrpClusterNode struct {
	left    *hrpClusterNode
	right   *hrpClusterNode
	leaves  []int
	minLeaf int
}

// Optimize allocates weights by Hierarchical Risk Parity:
// 1) Correlation from covariance
// 2) Distance: d_ij = sqrt(2 * (1 - ρ_ij))
// 3) Agglomerative clustering (single linkage, deterministic tie-break)
// 4) Quasi-diagonalization (leaf order from the dendrogram)
// 5) Recursive bisection with inverse-variance cluster allocation
func (hrp *HRPOptimizer) Optimize(m *MomentEstimates) (map[string]float64, error) {
	return hrp.OptimizeWithOptions(m, defaultHRPOptions())
}

func (hrp *HRPOptimizer) OptimizeWithOptions(m *MomentEstimates, opts HRPOptions) (map[string]float64, error) {
	tickers := m.Tickers
	cov := m.CovMatrix

	if len(tickers) == 0 {
		return nil, domain.NewValidationError("no assets provided")
	}
	if len(tickers) == 1 {
		return map[string]float64{tickers[0]: 1.0}, nil
	}

	if len(cov) != len(tickers) {
		return nil, domain.NewValidationError("covariance size %d does not match %d assets", len(cov), len(tickers))
	}
	for i := range cov {
		if len(cov[i]) != len(tickers) {
			return nil, domain.NewValidationError("covariance matrix is not square")
		}
	}

	corr, err := formulas.CorrelationMatrixFromCovariance(cov)
	if err != nil {
		return nil, fmt.Errorf("failed to derive correlation matrix: %w", err)
	}

	dist := formulas.CorrelationToDistance(corr)

	linkage := opts.Linkage
	if linkage == "" {
		linkage = hrpLinkageSingle
	}

	root := hrp.buildDendrogram(dist, linkage)
	order := hrp.quasiDiagonalOrder(root)
	if len(order) != len(tickers) {
		return nil, fmt.Errorf("invalid cluster order length %d", len(order))
	}

	weights := make([]float64, len(tickers))
	for i := range weights {
		weights[i] = 1.0
	}
	hrp.recursiveBisectionAllocate(weights, cov, order)

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("invalid weight sum: %v", sum)
	}

	result := make(map[string]float64, len(tickers))
	for i, ticker := range tickers {
		result[ticker] = weights[i] / sum
	}

	return result, nil
}

func (hrp *HRPOptimizer) buildDendrogram(dist [][]float64, linkage hrpLinkage) *hrpClusterNode {
	n := len(dist)
	clusters := make([]*hrpClusterNode, 0, n)
	for i := 0; i < n; i++ {
		clusters = append(clusters, &hrpClusterNode{
			leaves:  []int{i},
			minLeaf: i,
		})
	}

	for len(clusters) > 1 {
		bestI := 0
		bestJ := 1
		bestD := hrp.clusterDistance(dist, clusters[0], clusters[1], linkage)

		for i := 0; i < len(clusters); i++ {
			for j := i + 1; j < len(clusters); j++ {
				d := hrp.clusterDistance(dist, clusters[i], clusters[j], linkage)
				if d < bestD || (d == bestD && hrp.clusterPairLess(clusters[i], clusters[j], clusters[bestI], clusters[bestJ])) {
					bestD = d
					bestI = i
					bestJ = j
				}
			}
		}

		a := clusters[bestI]
		b := clusters[bestJ]
		left := a
		right := b
		if right.minLeaf < left.minLeaf {
			left, right = right, left
		}

		mergedLeaves := make([]int, 0, len(a.leaves)+len(b.leaves))
		mergedLeaves = append(mergedLeaves, a.leaves...)
		mergedLeaves = append(mergedLeaves, b.leaves...)
		minLeaf := left.minLeaf
		if right.minLeaf < minLeaf {
			minLeaf = right.minLeaf
		}

		merged := &hrpClusterNode{
			left:    left,
			right:   right,
			leaves:  mergedLeaves,
			minLeaf: minLeaf,
		}

		next := make([]*hrpClusterNode, 0, len(clusters)-1)
		for k := 0; k < len(clusters); k++ {
			if k == bestI || k == bestJ {
				continue
			}
			next = append(next, clusters[k])
		}
		next = append(next, merged)
		clusters = next
	}

	return clusters[0]
}

// clusterPairLess breaks distance ties by (minLeaf, second minLeaf)
func (hrp *HRPOptimizer) clusterPairLess(a1, b1, a2, b2 *hrpClusterNode) bool {
	x1, y1 := a1.minLeaf, b1.minLeaf
	if y1 < x1 {
		x1, y1 = y1, x1
	}
	x2, y2 := a2.minLeaf, b2.minLeaf
	if y2 < x2 {
		x2, y2 = y2, x2
	}
	if x1 != x2 {
		return x1 < x2
	}
	return y1 < y2
}

func (hrp *HRPOptimizer) clusterDistance(dist [][]float64, a, b *hrpClusterNode, linkage hrpLinkage) float64 {
	switch linkage {
	case hrpLinkageComplete:
		best := 0.0
		first := true
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				d := dist[i][j]
				if first || d > best {
					best = d
					first = false
				}
			}
		}
		return best
	case hrpLinkageAverage:
		sum := 0.0
		count := 0
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				sum += dist[i][j]
				count++
			}
		}
		if count == 0 {
			return math.Inf(1)
		}
		return sum / float64(count)
	case hrpLinkageSingle:
		fallthrough
	default:
		best := math.Inf(1)
		for _, i := range a.leaves {
			for _, j := range b.leaves {
				d := dist[i][j]
				if d < best {
					best = d
				}
			}
		}
		return best
	}
}

func (hrp *HRPOptimizer) quasiDiagonalOrder(node *hrpClusterNode) []int {
	if node == nil {
		return nil
	}
	if node.left == nil && node.right == nil {
		return []int{node.leaves[0]}
	}
	left := hrp.quasiDiagonalOrder(node.left)
	right := hrp.quasiDiagonalOrder(node.right)
	out := make([]int, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func (hrp *HRPOptimizer) recursiveBisectionAllocate(weights []float64, cov [][]float64, order []int) {
	if len(order) <= 1 {
		return
	}
	split := len(order) / 2
	left := order[:split]
	right := order[split:]

	vLeft := hrp.clusterVariance(cov, left)
	vRight := hrp.clusterVariance(cov, right)

	alpha := 0.5
	if vLeft+vRight > 0 {
		alpha = 1.0 - (vLeft / (vLeft + vRight))
	}
	alpha = math.Max(0.0, math.Min(1.0, alpha))

	for _, idx := range left {
		weights[idx] *= alpha
	}
	for _, idx := range right {
		weights[idx] *= (1.0 - alpha)
	}

	hrp.recursiveBisectionAllocate(weights, cov, left)
	hrp.recursiveBisectionAllocate(weights, cov, right)
}

func (hrp *HRPOptimizer) clusterVariance(cov [][]float64, idxs []int) float64 {
	if len(idxs) == 0 {
		return 0.0
	}
	if len(idxs) == 1 {
		i := idxs[0]
		return math.Max(cov[i][i], 0.0)
	}

	// Inverse-variance portfolio within the cluster
	eps := 1e-12
	inv := make([]float64, len(idxs))
	sumInv := 0.0
	for k, i := range idxs {
		v := cov[i][i]
		if v < eps {
			v = eps
		}
		inv[k] = 1.0 / v
		sumInv += inv[k]
	}
	if sumInv <= 0 {
		return 0.0
	}
	for k := range inv {
		inv[k] /= sumInv
	}

	variance := 0.0
	for a, i := range idxs {
		for b, j := range idxs {
			variance += inv[a] * cov[i][j] * inv[b]
		}
	}
	return math.Max(variance, 0.0)
}
