package domain

// BinnedEntry is a named numeric total for one layer.
type BinnedEntry struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Aggregate collapses every location's results into per-layer buckets,
// keyed by layer title. Buckets follow first-seen order for categories, bin
// order for histograms and field order for pie charts. Unknown layers get
// an empty bucket list.
func Aggregate(locations []Location, layers []AnalysisLayer) map[string][]BinnedEntry {
	out := make(map[string][]BinnedEntry, len(layers))
	for _, layer := range layers {
		results := resultsFor(locations, layer.Title)
		switch layer.SymbolType {
		case SymbolUniqueValues, SymbolClassBreaksClassified:
			out[layer.Title] = countByValue(results)
		case SymbolClassBreaksUnclassed:
			out[layer.Title] = histogramBuckets(results)
		case SymbolPieChart:
			out[layer.Title] = sumByField(layer, results)
		case SymbolSimple:
			out[layer.Title] = insideOutside(results)
		default:
			out[layer.Title] = []BinnedEntry{}
		}
	}
	return out
}

func resultsFor(locations []Location, title string) []LocationResult {
	var results []LocationResult
	for _, loc := range locations {
		for _, r := range loc.Results {
			if r.SourceLayer == title {
				results = append(results, r)
			}
		}
	}
	return results
}

// orderedCounter accumulates totals by name, remembering first-seen order.
type orderedCounter struct {
	index   map[string]int
	entries []BinnedEntry
}

func newOrderedCounter() *orderedCounter {
	return &orderedCounter{index: make(map[string]int)}
}

func (c *orderedCounter) add(name string, v float64) {
	if i, ok := c.index[name]; ok {
		c.entries[i].Value += v
		return
	}
	c.index[name] = len(c.entries)
	c.entries = append(c.entries, BinnedEntry{Name: name, Value: v})
}

func (c *orderedCounter) result() []BinnedEntry {
	if c.entries == nil {
		return []BinnedEntry{}
	}
	return c.entries
}

func countByValue(results []LocationResult) []BinnedEntry {
	c := newOrderedCounter()
	for _, r := range results {
		for _, a := range r.Attributes {
			c.add(a.Value.String(), 1)
		}
	}
	return c.result()
}

// histogramBuckets bins numeric values. "No data" results are counted into
// a trailing "No data" bucket; other non-numeric values are dropped.
func histogramBuckets(results []LocationResult) []BinnedEntry {
	var values []float64
	noData := 0
	for _, r := range results {
		if r.IsNoData() {
			noData++
			continue
		}
		for _, a := range r.Attributes {
			if v, ok := a.Value.Float(); ok {
				values = append(values, v)
			}
		}
	}

	bins := BinScott(values)
	out := make([]BinnedEntry, 0, len(bins)+1)
	for _, b := range bins {
		out = append(out, BinnedEntry{Name: b.Label(), Value: float64(b.Count)})
	}
	if noData > 0 {
		out = append(out, BinnedEntry{Name: NoData, Value: float64(noData)})
	}
	return out
}

func sumByField(layer AnalysisLayer, results []LocationResult) []BinnedEntry {
	c := newOrderedCounter()
	if r, ok := layer.Renderer.(PieChartRenderer); ok {
		for _, a := range r.Attributes {
			c.add(a.Field, 0)
		}
	}
	for _, r := range results {
		if r.IsNoData() {
			continue
		}
		for _, a := range r.Attributes {
			if v, ok := a.Value.Float(); ok {
				c.add(a.Name, v)
			}
		}
	}
	return c.result()
}

func insideOutside(results []LocationResult) []BinnedEntry {
	var inside, outside float64
	for _, r := range results {
		for _, a := range r.Attributes {
			switch a.ValueLabel {
			case InsideBoundary:
				inside++
			case OutsideBoundary:
				outside++
			}
		}
	}
	return []BinnedEntry{
		{Name: InsideBoundary, Value: inside},
		{Name: OutsideBoundary, Value: outside},
	}
}
