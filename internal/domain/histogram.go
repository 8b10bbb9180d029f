package domain

import (
	"math"
	"sort"
	"strconv"
)

// HistogramBin is a half-open numeric interval [X0, X1) with its sample
// count. The last bin of a histogram also includes X1.
type HistogramBin struct {
	X0    float64
	X1    float64
	Count int
}

// Label renders the bin as "x0-x1".
func (b HistogramBin) Label() string {
	return strconv.FormatFloat(b.X0, 'f', -1, 64) + "-" + strconv.FormatFloat(b.X1, 'f', -1, 64)
}

// BinScott bins values into equal-width intervals with rounded ("nice")
// boundaries. The bin count follows Scott's normal reference rule. Non-finite
// values are ignored. No values produce no bins; identical values produce a
// single zero-width bin.
func BinScott(values []float64) []HistogramBin {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return nil
	}

	x0, x1 := extent(finite)
	if x0 == x1 {
		return []HistogramBin{{X0: x0, X1: x1, Count: len(finite)}}
	}

	n := float64(scottBinCount(finite, x0, x1))
	hi := x1
	x0, x1 = niceDomain(x0, x1, n)
	thresholds := ticks(x0, x1, n)

	step := math.NaN()
	if len(thresholds) > 0 && thresholds[0] <= x0 {
		step = tickIncrement(x0, x1, n)
	}

	// Extend the domain by one step when the last threshold coincides with
	// the maximum, so every bin keeps the same width.
	if len(thresholds) > 0 && thresholds[len(thresholds)-1] >= x1 {
		if hi >= x1 {
			inc := tickIncrement(x0, x1, n)
			if !math.IsInf(inc, 0) && !math.IsNaN(inc) {
				if inc > 0 {
					x1 = (math.Floor(x1/inc) + 1) * inc
				} else if inc < 0 {
					x1 = (math.Ceil(x1*-inc) + 1) / -inc
				}
			}
		} else {
			thresholds = thresholds[:len(thresholds)-1]
		}
	}

	a, b := 0, len(thresholds)
	for a < b && thresholds[a] <= x0 {
		a++
	}
	for b > a && thresholds[b-1] > x1 {
		b--
	}
	thresholds = thresholds[a:b]
	m := len(thresholds)

	bins := make([]HistogramBin, m+1)
	for i := range bins {
		bins[i].X0 = x0
		if i > 0 {
			bins[i].X0 = thresholds[i-1]
		}
		bins[i].X1 = x1
		if i < m {
			bins[i].X1 = thresholds[i]
		}
	}

	finiteStep := !math.IsNaN(step) && !math.IsInf(step, 0)
	for _, x := range finite {
		if x < x0 || x > x1 {
			continue
		}
		var idx int
		switch {
		case finiteStep && step > 0:
			idx = int(math.Floor((x - x0) / step))
		case finiteStep && step < 0:
			j := int(math.Floor((x0 - x) * step))
			idx = j
			if j < m && thresholds[j] <= x {
				idx++
			}
		default:
			idx = sort.Search(m, func(i int) bool { return thresholds[i] > x })
		}
		bins[min(m, idx)].Count++
	}
	return bins
}

func extent(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// scottBinCount is ceil((max-min) * cbrt(n) / (3.49 * sd)), or 1 when the
// sample deviation is zero or undefined.
func scottBinCount(values []float64, lo, hi float64) int {
	d := sampleDeviation(values)
	if len(values) == 0 || d == 0 || math.IsNaN(d) {
		return 1
	}
	return int(math.Ceil((hi - lo) * math.Cbrt(float64(len(values))) / (3.49 * d)))
}

// sampleDeviation is the n-1 standard deviation, computed with Welford's
// method. It is NaN for fewer than two values.
func sampleDeviation(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	var mean, sum float64
	for i, v := range values {
		delta := v - mean
		mean += delta / float64(i+1)
		sum += delta * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

var (
	tickE10 = math.Sqrt(50)
	tickE5  = math.Sqrt(10)
	tickE2  = math.Sqrt(2)
)

// jsRound rounds half up, matching the rounding used by the tick algorithm.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}

// tickSpec returns the first and last tick indices and the increment for
// about count ticks between start and stop. A negative increment means the
// ticks are i / -inc, which keeps small steps exact.
func tickSpec(start, stop, count float64) (i1, i2, inc float64) {
	step := (stop - start) / math.Max(0, count)
	power := math.Floor(math.Log10(step))
	errRatio := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case errRatio >= tickE10:
		factor = 10
	case errRatio >= tickE5:
		factor = 5
	case errRatio >= tickE2:
		factor = 2
	}
	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = jsRound(start * inc)
		i2 = jsRound(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		inc = -inc
	} else {
		inc = math.Pow(10, power) * factor
		i1 = jsRound(start / inc)
		i2 = jsRound(stop / inc)
		if i1*inc < start {
			i1++
		}
		if i2*inc > stop {
			i2--
		}
	}
	if i2 < i1 && 0.5 <= count && count < 2 {
		return tickSpec(start, stop, count*2)
	}
	return i1, i2, inc
}

func tickIncrement(start, stop, count float64) float64 {
	_, _, inc := tickSpec(start, stop, count)
	return inc
}

// ticks returns about count round values between start and stop, inclusive.
// start must not exceed stop.
func ticks(start, stop, count float64) []float64 {
	if !(count > 0) {
		return nil
	}
	if start == stop {
		return []float64{start}
	}
	i1, i2, inc := tickSpec(start, stop, count)
	if !(i2 >= i1) {
		return nil
	}
	n := int(i2-i1) + 1
	out := make([]float64, n)
	for i := range out {
		if inc < 0 {
			out[i] = (i1 + float64(i)) / -inc
		} else {
			out[i] = (i1 + float64(i)) * inc
		}
	}
	return out
}

// niceDomain widens [start, stop] outward to tick boundaries until the
// increment stabilizes.
func niceDomain(start, stop, count float64) (float64, float64) {
	prestep := math.NaN()
	for {
		step := tickIncrement(start, stop, count)
		if step == prestep || step == 0 || math.IsInf(step, 0) || math.IsNaN(step) {
			return start, stop
		}
		if step > 0 {
			start = math.Floor(start/step) * step
			stop = math.Ceil(stop/step) * step
		} else {
			start = math.Ceil(start*step) / step
			stop = math.Floor(stop*step) / step
		}
		prestep = step
	}
}
