package calc

import (
	"strconv"

	"github.com/WessleyAI/gridlink/engine/domain"
	"github.com/WessleyAI/gridlink/engine/netmodel"
)

// Kind names a calculation workflow.
type Kind string

const (
	KindLoadFlow      Kind = "loadflow"
	KindStorageSizing Kind = "storage-sizing"
)

// Params are the user settings of one calculation.
type Params interface {
	Kind() Kind
	Marker() string
	Settings() []netmodel.Attr
	// PurgeOverlays reports whether earlier result overlays are removed
	// before extraction.
	PurgeOverlays() bool
	Validate() error
}

// LoadFlowParams configure a conventional power-flow run.
type LoadFlowParams struct {
	Frequency              int     `json:"frequency" yaml:"frequency" validate:"oneof=50 60"`
	Algorithm              string  `json:"algorithm" yaml:"algorithm" validate:"oneof=nr iwamoto_nr bfsw gs fdbx fdxb"`
	CalculateVoltageAngles bool    `json:"calculate_voltage_angles" yaml:"calculate_voltage_angles"`
	Init                   string  `json:"init" yaml:"init" validate:"oneof=auto flat dc results"`
	MaxIteration           int     `json:"max_iteration" yaml:"max_iteration" validate:"gte=0,lte=1000"`
	ToleranceMVA           float64 `json:"tolerance_mva" yaml:"tolerance_mva" validate:"gt=0"`
	EnforceQLims           bool    `json:"enforce_q_lims" yaml:"enforce_q_lims"`
}

// DefaultLoadFlow returns Newton-Raphson settings for a 50 Hz network.
func DefaultLoadFlow() LoadFlowParams {
	return LoadFlowParams{
		Frequency:              50,
		Algorithm:              "nr",
		CalculateVoltageAngles: true,
		Init:                   "auto",
		ToleranceMVA:           1e-8,
	}
}

func (LoadFlowParams) Kind() Kind          { return KindLoadFlow }
func (LoadFlowParams) Marker() string      { return netmodel.MarkerLoadFlow }
func (LoadFlowParams) PurgeOverlays() bool { return true }
func (p LoadFlowParams) Validate() error   { return domain.ValidateStruct(p) }

func (p LoadFlowParams) Settings() []netmodel.Attr {
	iter := "auto"
	if p.MaxIteration > 0 {
		iter = strconv.Itoa(p.MaxIteration)
	}
	return []netmodel.Attr{
		{Name: "frequency", Value: strconv.Itoa(p.Frequency)},
		{Name: "algorithm", Value: p.Algorithm},
		{Name: "calculate_voltage_angles", Value: strconv.FormatBool(p.CalculateVoltageAngles)},
		{Name: "init", Value: p.Init},
		{Name: "max_iteration", Value: iter},
		{Name: "tolerance_mva", Value: formatFloat(p.ToleranceMVA)},
		{Name: "enforce_q_lims", Value: strconv.FormatBool(p.EnforceQLims)},
	}
}

// StorageParams configure a storage-sizing run.
type StorageParams struct {
	Frequency   int     `json:"frequency" yaml:"frequency" validate:"oneof=50 60"`
	HorizonH    int     `json:"horizon_h" yaml:"horizon_h" validate:"gt=0,lte=8760"`
	TimeStepMin int     `json:"time_step_min" yaml:"time_step_min" validate:"oneof=15 30 60"`
	MinSOC      float64 `json:"min_soc_percent" yaml:"min_soc_percent" validate:"gte=0,lte=100"`
	MaxSOC      float64 `json:"max_soc_percent" yaml:"max_soc_percent" validate:"gte=0,lte=100,gtefield=MinSOC"`
	Objective   string  `json:"objective" yaml:"objective" validate:"oneof=peak_shaving self_consumption loss_reduction"`
}

// DefaultStorage returns a one-day peak shaving study at hourly resolution.
func DefaultStorage() StorageParams {
	return StorageParams{
		Frequency:   50,
		HorizonH:    24,
		TimeStepMin: 60,
		MinSOC:      10,
		MaxSOC:      90,
		Objective:   "peak_shaving",
	}
}

func (StorageParams) Kind() Kind          { return KindStorageSizing }
func (StorageParams) Marker() string      { return netmodel.MarkerStorageSizing }
func (StorageParams) PurgeOverlays() bool { return false }
func (p StorageParams) Validate() error   { return domain.ValidateStruct(p) }

func (p StorageParams) Settings() []netmodel.Attr {
	return []netmodel.Attr{
		{Name: "frequency", Value: strconv.Itoa(p.Frequency)},
		{Name: "horizon_h", Value: strconv.Itoa(p.HorizonH)},
		{Name: "time_step_min", Value: strconv.Itoa(p.TimeStepMin)},
		{Name: "min_soc_percent", Value: formatFloat(p.MinSOC)},
		{Name: "max_soc_percent", Value: formatFloat(p.MaxSOC)},
		{Name: "objective", Value: p.Objective},
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
