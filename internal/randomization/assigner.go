package randomization

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"

	"gametime/internal/logging"
)

// ErrInvalidInput marks rejected group or covariate inputs.
var ErrInvalidInput = errors.New("invalid randomization input")

// Strategy selects the objective minimized among the smallest groups.
type Strategy string

const (
	// StrategyMinVariance minimizes the spread of group means around the
	// pooled mean.
	StrategyMinVariance Strategy = "minvar"
	// StrategyAverage minimizes the candidate group's mean. Kept for
	// reproducing historical assignments only.
	StrategyAverage Strategy = "average"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(value string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(value))); s {
	case "", StrategyMinVariance:
		return StrategyMinVariance, nil
	case StrategyAverage:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q (expected minvar or average)", ErrInvalidInput, value)
	}
}

// Reason explains how a group was chosen.
type Reason string

const (
	ReasonEmptyGroup    Reason = "empty_group"
	ReasonSmallestGroup Reason = "smallest_group"
	ReasonObjective     Reason = "objective"
)

// Decision is the outcome of one assignment. Scores holds the objective of
// each candidate group (NaN for groups that were not candidates) when
// Reason is ReasonObjective.
type Decision struct {
	Group  int
	Reason Reason
	Scores []float64
}

// Assigner picks groups for new subjects. It is safe for sequential use
// only because the random source is not synchronized.
type Assigner struct {
	strategy Strategy
	rng      *rand.Rand
	logger   *slog.Logger
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithStrategy sets the tie-breaking objective.
func WithStrategy(s Strategy) Option {
	return func(a *Assigner) {
		if s != "" {
			a.strategy = s
		}
	}
}

// WithRand sets the random source used to choose among empty groups.
func WithRand(r *rand.Rand) Option {
	return func(a *Assigner) {
		if r != nil {
			a.rng = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assigner) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an Assigner using StrategyMinVariance unless overridden.
func New(opts ...Option) *Assigner {
	a := &Assigner{
		strategy: StrategyMinVariance,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "randomization")
	return a
}

// Assign returns the index of the group that should receive a subject with
// covariate value. groups is not modified.
func (a *Assigner) Assign(groups [][]float64, value float64) (int, error) {
	d, err := a.Decide(groups, value)
	if err != nil {
		return -1, err
	}
	return d.Group, nil
}

// Decide is Assign with the reasoning behind the choice.
func (a *Assigner) Decide(groups [][]float64, value float64) (Decision, error) {
	if err := validate(groups, value); err != nil {
		return Decision{}, err
	}
	if a.strategy == StrategyAverage {
		logging.WarnWithContext(a.logger,
			"Do not use this strategy. It reproduces a flawed legacy assignment rule.",
			"randomization_legacy_strategy",
			logging.Hint("use the minvar strategy for new assignments"),
			logging.Impact("groups are balanced on the lowest mean, not on variance"),
		)
	}
	a.logger.Info("randomizing new subject", logging.Int("groups", len(groups)))

	var empty []int
	for i, g := range groups {
		if len(g) == 0 {
			empty = append(empty, i)
		}
	}
	if len(empty) > 0 {
		return Decision{Group: empty[a.rng.IntN(len(empty))], Reason: ReasonEmptyGroup}, nil
	}

	candidates := smallest(groups)
	if len(candidates) == 1 {
		return Decision{Group: candidates[0], Reason: ReasonSmallestGroup}, nil
	}

	scores := make([]float64, len(groups))
	for i := range scores {
		scores[i] = math.NaN()
	}
	best := -1
	for _, k := range candidates {
		switch a.strategy {
		case StrategyAverage:
			scores[k] = (sum(groups[k]) + value) / float64(len(groups[k])+1)
		default:
			scores[k] = betweenGroupSpread(groups, candidates, k, value)
		}
		if best < 0 || scores[k] < scores[best] {
			best = k
		}
	}
	return Decision{Group: best, Reason: ReasonObjective, Scores: scores}, nil
}

func validate(groups [][]float64, value float64) error {
	if len(groups) == 0 {
		return fmt.Errorf("%w: at least one group is required", ErrInvalidInput)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: covariate value must be finite, got %v", ErrInvalidInput, value)
	}
	for i, g := range groups {
		for _, v := range g {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: group %d contains a non-finite value", ErrInvalidInput, i)
			}
		}
	}
	return nil
}

func smallest(groups [][]float64) []int {
	minSize := len(groups[0])
	for _, g := range groups[1:] {
		minSize = min(minSize, len(g))
	}
	var out []int
	for i, g := range groups {
		if len(g) == minSize {
			out = append(out, i)
		}
	}
	return out
}

// betweenGroupSpread is the unweighted sum of squared deviations of each
// candidate group mean from the pooled mean, with value added to group k.
func betweenGroupSpread(groups [][]float64, candidates []int, k int, value float64) float64 {
	var total float64
	var count int
	means := make([]float64, 0, len(candidates))
	for _, i := range candidates {
		s, n := sum(groups[i]), len(groups[i])
		if i == k {
			s += value
			n++
		}
		total += s
		count += n
		means = append(means, s/float64(n))
	}
	grand := total / float64(count)
	var spread float64
	for _, m := range means {
		spread += (m - grand) * (m - grand)
	}
	return spread
}

func sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}
