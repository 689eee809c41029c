// Package schema defines the channel and experiment records shared across peakbase.
package schema

import "time"

// IntegralPair is a user-chosen peak interval on the time axis.
type IntegralPair struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SampleName string  `json:"sample_name,omitempty"`
}

// IntegralResult is the area computed for one matched IntegralPair.
type IntegralResult struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Area       float64 `json:"area"`
	SampleName string  `json:"sample_name"`
}

// Channel is one recorded signal of an experiment plus its annotations.
// A nil derived slice means the field was never computed; an empty non-nil
// slice means it was computed from an empty selection.
type Channel struct {
	ID           string    `json:"id"`
	ExperimentID string    `json:"experiment_id"`
	ChannelName  string    `json:"channel_name"`
	TimeValues   []float64 `json:"time_values"`
	RawValues    []float64 `json:"raw_values"`

	BaselineChosenPoints []float64 `json:"baseline_chosen_points"`
	BaselineSpline       []float64 `json:"baseline_spline"`
	BaselineValues       []float64 `json:"baseline_values"`

	IntegralChosenPairs []IntegralPair   `json:"integral_chosen_pairs"`
	IntegralResults     []IntegralResult `json:"integral_results"`

	LastUpdated time.Time `json:"last_updated"`
}

// HasBaseline reports whether the channel carries baseline-corrected values.
func (c *Channel) HasBaseline() bool {
	return len(c.BaselineValues) > 0
}

// Clone returns a deep copy that preserves the nil/empty distinction of every slice.
func (c Channel) Clone() Channel {
	out := c
	out.TimeValues = cloneFloats(c.TimeValues)
	out.RawValues = cloneFloats(c.RawValues)
	out.BaselineChosenPoints = cloneFloats(c.BaselineChosenPoints)
	out.BaselineSpline = cloneFloats(c.BaselineSpline)
	out.BaselineValues = cloneFloats(c.BaselineValues)
	if c.IntegralChosenPairs != nil {
		out.IntegralChosenPairs = append(make([]IntegralPair, 0, len(c.IntegralChosenPairs)), c.IntegralChosenPairs...)
	}
	if c.IntegralResults != nil {
		out.IntegralResults = append(make([]IntegralResult, 0, len(c.IntegralResults)), c.IntegralResults...)
	}
	return out
}

func cloneFloats(s []float64) []float64 {
	if s == nil {
		return nil
	}
	return append(make([]float64, 0, len(s)), s...)
}

// ChannelEdit is a partial edit request. A nil field leaves that annotation
// set and its derived output untouched; a non-nil empty slice clears it.
type ChannelEdit struct {
	BaselineChosenPoints *[]float64      `json:"baseline_chosen_points,omitempty"`
	IntegralChosenPairs  *[]IntegralPair `json:"integral_chosen_pairs,omitempty"`

	Interpolation InterpolationMethod `json:"interpolation,omitempty"`
	Integration   IntegrationMethod   `json:"integration,omitempty"`
}

// TouchesBaseline reports whether the edit replaces the baseline anchors.
func (e ChannelEdit) TouchesBaseline() bool { return e.BaselineChosenPoints != nil }

// TouchesIntegrals reports whether the edit replaces the integral pairs.
func (e ChannelEdit) TouchesIntegrals() bool { return e.IntegralChosenPairs != nil }

// BaselineUpdate carries a baseline input set together with its derived outputs.
type BaselineUpdate struct {
	ChosenPoints []float64
	Spline       []float64
	Values       []float64
}

// IntegralUpdate carries an integral input set together with its results.
type IntegralUpdate struct {
	ChosenPairs []IntegralPair
	Results     []IntegralResult
}

// ChannelCommit is what a store writes for one edit. Nil sections are left as stored.
type ChannelCommit struct {
	Baseline *BaselineUpdate
	Integral *IntegralUpdate
}

// Empty reports whether the commit changes nothing.
func (c ChannelCommit) Empty() bool {
	return c.Baseline == nil && c.Integral == nil
}

// Apply returns a copy of ch with the commit's sections written over it.
func (c ChannelCommit) Apply(ch Channel) Channel {
	out := ch.Clone()
	if c.Baseline != nil {
		out.BaselineChosenPoints = cloneFloats(c.Baseline.ChosenPoints)
		out.BaselineSpline = cloneFloats(c.Baseline.Spline)
		out.BaselineValues = cloneFloats(c.Baseline.Values)
	}
	if c.Integral != nil {
		out.IntegralChosenPairs = append(make([]IntegralPair, 0, len(c.Integral.ChosenPairs)), c.Integral.ChosenPairs...)
		out.IntegralResults = append(make([]IntegralResult, 0, len(c.Integral.Results)), c.Integral.Results...)
	}
	return out
}

// Experiment is an instrument run that owns a set of channels.
type Experiment struct {
	ID              string     `json:"id"`
	Name            string     `json:"name,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
	Description     string     `json:"description,omitempty"`
	Filename        string     `json:"filename,omitempty"`
	DeviceFilename  string     `json:"device_filename,omitempty"`
	DataSource      string     `json:"data_source,omitempty"`
	InstrumentModel string     `json:"instrument_model,omitempty"`
	InitE           *float64   `json:"init_e,omitempty"`
	SampleInterval  *float64   `json:"sample_interval,omitempty"`
	RunTime         *float64   `json:"run_time,omitempty"`
	QuietTime       *float64   `json:"quiet_time,omitempty"`
	Sensitivity     *float64   `json:"sensitivity,omitempty"`
	Samples         *int       `json:"samples,omitempty"`
	ProjectID       string     `json:"project_id,omitempty"`
	LastUpdated     time.Time  `json:"last_updated"`

	Channels []Channel `json:"channels,omitempty"`
}

// ChannelQtyFilled counts channels that carry baseline-corrected values.
func (e *Experiment) ChannelQtyFilled() int {
	n := 0
	for i := range e.Channels {
		if e.Channels[i].HasBaseline() {
			n++
		}
	}
	return n
}

// ExperimentSummary is a listing row for an experiment.
type ExperimentSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Date             *time.Time `json:"date,omitempty"`
	InstrumentModel  string     `json:"instrument_model,omitempty"`
	ChannelQty       int        `json:"channel_qty"`
	ChannelQtyFilled int        `json:"channel_qty_filled"`
	LastUpdated      time.Time  `json:"last_updated"`
}

// Series is a pair of equal-length coordinate sequences.
type Series struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// ChannelView is a channel prepared for rendering: its annotations and
// results plus downsampled signal series. It is never persisted.
type ChannelView struct {
	ID                   string           `json:"id"`
	ExperimentID         string           `json:"experiment_id"`
	ChannelName          string           `json:"channel_name"`
	Points               int              `json:"points"`
	SampleCount          int              `json:"sample_count"`
	Raw                  Series           `json:"raw"`
	Baseline             Series           `json:"baseline"`
	BaselineChosenPoints []float64        `json:"baseline_chosen_points"`
	IntegralChosenPairs  []IntegralPair   `json:"integral_chosen_pairs"`
	IntegralResults      []IntegralResult `json:"integral_results"`
	LastUpdated          time.Time        `json:"last_updated"`
}

// ExportTable is a rectangular experiment export. Empty cells are "".
type ExportTable struct {
	Kind   ExportKind `json:"kind"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// RecomputeResult reports an experiment-wide recompute.
type RecomputeResult struct {
	ExperimentID string   `json:"experiment_id"`
	Channels     int      `json:"channels"`
	Recomputed   int      `json:"recomputed"`
	Skipped      int      `json:"skipped"`
	Failed       []string `json:"failed,omitempty"`
}
