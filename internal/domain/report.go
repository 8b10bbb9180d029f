package domain

import "time"

// AnalysisReport is the complete output of one analysis run.
type AnalysisReport struct {
	ID          string                         `json:"id" yaml:"id"`
	GeneratedAt time.Time                      `json:"generatedAt" yaml:"generatedAt"`
	Layers      []AnalysisLayer                `json:"layers" yaml:"layers"`
	Locations   []Location                     `json:"locations" yaml:"locations"`
	Charts      map[string][]ElementDefinition `json:"charts" yaml:"charts"`
}

// NewReport assembles a report from inspected locations, computing the
// per-layer chart definitions.
func NewReport(id string, locations []Location, layers []AnalysisLayer) AnalysisReport {
	if locations == nil {
		locations = []Location{}
	}
	return AnalysisReport{
		ID:          id,
		GeneratedAt: clock.Now().UTC(),
		Layers:      layers,
		Locations:   locations,
		Charts:      ChartDefinitions(locations, layers),
	}
}
