package stats

import (
	"fmt"
)

// Ratio is a count based ratio which keeps its numerator and denominator so
// corpus figures can be pooled.  A zero denominator makes the ratio
// undefined rather than an error.
type Ratio struct {
	Num int
	Den int
}

// Value returns the ratio and whether it is defined
func (r Ratio) Value() (float64, bool) {

	if r.Den == 0 {
		return 0, false
	}

	return float64(r.Num) / float64(r.Den), true
}

// Float returns the ratio, 0 when undefined
func (r Ratio) Float() float64 {
	v, _ := r.Value()
	return v
}

// Defined reports whether the denominator is non zero
func (r Ratio) Defined() bool {
	return r.Den != 0
}

// Add returns the pooled sum of both ratios
func (r Ratio) Add(o Ratio) Ratio {
	return Ratio{Num: r.Num + o.Num, Den: r.Den + o.Den}
}

// String formats the ratio as "num / den = value"
func (r Ratio) String() string {
	return fmt.Sprintf("%d / %d = %.4f", r.Num, r.Den, r.Float())
}
