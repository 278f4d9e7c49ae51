package generator

import (
	"math"
	"math/rand"
	"sort"

	"github.com/vitebski/bank-dataset-generator/pkg/models"
)

// IntRange samples uniformly from the closed range [Min, Max]
type IntRange struct {
	Min, Max int64
}

func (ir IntRange) Sample(r *rand.Rand) int64 {
	return ir.Min + r.Int63n(ir.Max-ir.Min+1)
}

// Fill samples one value per element of dst
func (ir IntRange) Fill(r *rand.Rand, dst []int64) {
	span := ir.Max - ir.Min + 1
	for i := range dst {
		dst[i] = ir.Min + r.Int63n(span)
	}
}

// CentsRange samples a continuous amount from [Min, Max] rounded to cents
type CentsRange struct {
	Min, Max float64
	lo, hi   models.Cents
}

// NewCentsRange returns the range and whether any cent value lies inside it
func NewCentsRange(min, max float64) (CentsRange, bool) {
	cr := CentsRange{
		Min: min,
		Max: max,
		lo:  models.Cents(math.Ceil(min*100 - 1e-6)),
		hi:  models.Cents(math.Floor(max*100 + 1e-6)),
	}
	return cr, cr.lo <= cr.hi
}

func (cr CentsRange) Sample(r *rand.Rand) models.Cents {
	c := models.Cents(math.Round((cr.Min + r.Float64()*(cr.Max-cr.Min)) * 100))
	// rounding can push the edges off the cent grid of the bounds
	if c < cr.lo {
		return cr.lo
	}
	if c > cr.hi {
		return cr.hi
	}
	return c
}

// Choice picks an index in [0, n), uniformly or by weight
type Choice struct {
	n     int
	cum   []float64
	total float64
}

// NewChoice builds a choice over n items. Empty weights mean uniform.
func NewChoice(n int, weights []float64) Choice {
	if len(weights) == 0 {
		return Choice{n: n}
	}
	cum := make([]float64, len(weights))
	var total float64
	for i, w := range weights {
		total += w
		cum[i] = total
	}
	return Choice{n: n, cum: cum, total: total}
}

func (c Choice) Sample(r *rand.Rand) int {
	if c.cum == nil {
		return r.Intn(c.n)
	}
	u := r.Float64() * c.total
	return sort.Search(len(c.cum), func(i int) bool { return c.cum[i] > u })
}

// Bernoulli returns true with probability P
type Bernoulli struct {
	P float64
}

func (b Bernoulli) Sample(r *rand.Rand) bool {
	return r.Float64() < b.P
}

// DateWindow samples a date from [End-Days, End], both ends included
type DateWindow struct {
	End  models.Date
	Days int
}

func (dw DateWindow) Sample(r *rand.Rand) models.Date {
	return dw.End.AddDays(-r.Intn(dw.Days + 1))
}

// Start is the earliest date the window can produce
func (dw DateWindow) Start() models.Date {
	return dw.End.AddDays(-dw.Days)
}
