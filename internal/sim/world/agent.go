package world

import (
	"treg2d/internal/sim/grid"
	"treg2d/internal/sim/schedule"
)

// Species tags every agent. Movement policies and counters are indexed by it.
type Species int

const (
	SpeciesCD4Th Species = iota
	SpeciesCD4Treg
	SpeciesCD8Treg
	SpeciesDC
	SpeciesDCM
	SpeciesMacrophage
	SpeciesNeuron

	NumSpecies
)

var speciesNames = [...]string{"cd4th", "cd4treg", "cd8treg", "dc", "dcm", "cns_macrophage", "neuron"}

func (s Species) String() string {
	if s < 0 || s >= NumSpecies {
		return "unknown"
	}
	return speciesNames[s]
}

// IsTCell reports whether the species runs the shared T cell lifecycle.
func (s Species) IsTCell() bool {
	return s == SpeciesCD4Th || s == SpeciesCD4Treg || s == SpeciesCD8Treg
}

// Cell is the state every agent carries: identity, the kernel it belongs
// to and the compartment it currently occupies.
type Cell struct {
	id      uint64
	species Species
	self    Agent
	sim     *Sim
	comp    *Compartment
	dead    bool
	handle  *schedule.Handle
}

func (c *Cell) ID() uint64                { return c.id }
func (c *Cell) Species() Species          { return c.species }
func (c *Cell) Compartment() *Compartment { return c.comp }
func (c *Cell) Dead() bool                { return c.dead }
func (c *Cell) base() *Cell               { return c }

// Packable is false for everyone but T cells, which override it.
func (c *Cell) Packable() bool { return false }

// Agent is anything that lives in a compartment grid and steps every tick.
type Agent interface {
	grid.Occupant
	schedule.Task
	ID() uint64
	Species() Species
	Dead() bool
	base() *Cell
}

// Peptides is the set of antigens a phagocytosed cell yields.
type Peptides uint8

const (
	PeptideMBP Peptides = 1 << iota
	PeptideFr3
	PeptideCDR12
)

func (p Peptides) Has(q Peptides) bool { return p&q != 0 }

// Marker capabilities. A T cell binds only partners that express the
// complex it is specific for.
type (
	MHCIIMBP interface {
		ExpressingMHCIIMBP() bool
	}
	MHCIIFr3 interface {
		ExpressingMHCIIFr3() bool
	}
	MHCICDR12 interface {
		ExpressingMHCICDR12() bool
	}
	CD200R interface {
		ExpressingCD200R() bool
		ReceiveCD200Signal()
	}
)

// APC is an antigen presenting cell.
type APC interface {
	Agent
	Costimulatory() bool
	Apoptotic() bool
	Phagocytose(now float64, victim Phagocytosable)
}

// Phagocytosable agents can be eaten once apoptotic. BePhagocytosed removes
// the victim; ok is false when it yields nothing presentable.
type Phagocytosable interface {
	Agent
	Apoptotic() bool
	BePhagocytosed(now float64) (pep Peptides, ok bool)
}

// Licensable partners can be upregulated by T cell effector hooks.
type Licensable interface {
	LicenseCostim()
	LicenseQa1()
}

// Mobile agents can be switched stationary by their own state.
type Mobile interface {
	Mobile() bool
}

// primer is an APC whose priming capacity scales binding under CD200.
type primer interface {
	PrimingCapacity() float64
}

type migrator interface {
	migrated(now float64)
}

// Polarization is the cytokine bias of a helper T cell or a dendritic cell.
type Polarization int

const (
	PolarizationNone Polarization = iota
	PolarizationType1
	PolarizationType2
)

func (p Polarization) String() string {
	switch p {
	case PolarizationType1:
		return "type1"
	case PolarizationType2:
		return "type2"
	default:
		return "none"
	}
}
