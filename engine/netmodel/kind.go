// Package netmodel holds the canonical network records handed to the solver
// and assembles them into the ordered payload.
package netmodel

// Kind is a component category. The declaration order is the payload order
// the solver expects.
type Kind int

const (
	KindExternalGrid Kind = iota
	KindGenerator
	KindStaticGenerator
	KindAsymmetricStaticGenerator
	KindBus
	KindTransformer
	KindThreeWindingTransformer
	KindShuntReactor
	KindCapacitor
	KindLoad
	KindAsymmetricLoad
	KindImpedance
	KindWard
	KindExtendedWard
	KindMotor
	KindStorage
	KindSSC
	KindSVC
	KindTCSC
	KindVSC
	KindB2BVSC
	KindDCBus
	KindDCLoad
	KindDCSource
	KindSwitch
	KindDCLine
	KindLine

	kindCount
)

var kindLabels = [kindCount]string{
	KindExternalGrid:              "ExternalGrid",
	KindGenerator:                 "Generator",
	KindStaticGenerator:           "StaticGenerator",
	KindAsymmetricStaticGenerator: "AsymmetricStaticGenerator",
	KindBus:                       "Bus",
	KindTransformer:               "Transformer",
	KindThreeWindingTransformer:   "ThreeWindingTransformer",
	KindShuntReactor:              "ShuntReactor",
	KindCapacitor:                 "Capacitor",
	KindLoad:                      "Load",
	KindAsymmetricLoad:            "AsymmetricLoad",
	KindImpedance:                 "Impedance",
	KindWard:                      "Ward",
	KindExtendedWard:              "ExtendedWard",
	KindMotor:                     "Motor",
	KindStorage:                   "Storage",
	KindSSC:                       "SSC",
	KindSVC:                       "SVC",
	KindTCSC:                      "TCSC",
	KindVSC:                       "VSC",
	KindB2BVSC:                    "B2BVSC",
	KindDCBus:                     "DCBus",
	KindDCLoad:                    "DCLoad",
	KindDCSource:                  "DCSource",
	KindSwitch:                    "Switch",
	KindDCLine:                    "DCLine",
	KindLine:                      "Line",
}

// Label is the type prefix used in record type labels ("Bus" in "Bus3").
func (k Kind) Label() string {
	if k < 0 || k >= kindCount {
		return "Unknown"
	}
	return kindLabels[k]
}

func (k Kind) String() string { return k.Label() }

// Kinds returns every kind in payload order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}
