package world

import (
	"treg2d/internal/sim/field"
	"treg2d/internal/sim/lifecycle"
	"treg2d/internal/sim/mathx"
	"treg2d/internal/sim/simerr"
)

// DendriticCell is the bulky antigen presenting cell of the lymph nodes,
// the spleen and (as a migrating DC) the CNS.
type DendriticCell struct {
	apc

	mbp, fr3, cdr12 bool
	mhcII, qa1      bool
	costim          bool
	cd200r          bool

	awaitingFirst bool
	immunization  bool
	polarization  Polarization
	capacity      float64

	// mig is set for migrating DCs.
	mig *migration
}

type migration struct {
	origin *Compartment
	mobile bool
	stop   lifecycle.Timer
}

func newDendriticCell(s *Sim, c *Compartment, mig *migration) *DendriticCell {
	dc := &DendriticCell{awaitingFirst: true, capacity: 1, mig: mig}
	dc.species = SpeciesDC
	if mig != nil {
		dc.species = SpeciesDCM
	}
	s.add(dc, c)
	dc.immatureEnd.Set(lifecycle.Sample(s.rng, dc.immatureInterval(), s.Now()))
	c.placeRandom(dc)
	return dc
}

// spawnDC is the homeostatic replacement: an immature resident DC.
func spawnDC(s *Sim, c *Compartment) *DendriticCell { return newDendriticCell(s, c, nil) }

// spawnDCM creates an immature migrating DC in c that remembers origin.
func spawnDCM(s *Sim, c, origin *Compartment) *DendriticCell {
	return newDendriticCell(s, c, &migration{origin: origin})
}

func initialImmatureDC(s *Sim, c *Compartment) *DendriticCell {
	dc := spawnDC(s, c)
	dc.scaleTimer(&dc.immatureEnd)
	return dc
}

func initialMatureDC(s *Sim, c *Compartment) *DendriticCell {
	dc := spawnDC(s, c)
	dc.makeMature()
	return dc
}

func initialImmatureDCM(s *Sim, c *Compartment) *DendriticCell {
	dc := spawnDCM(s, c, c)
	dc.scaleTimer(&dc.immatureEnd)
	return dc
}

// migratedDCM is a mature DCM that already left origin for c.
func migratedDCM(s *Sim, c, origin *Compartment) *DendriticCell {
	dc := spawnDCM(s, c, origin)
	dc.makeMature()
	return dc
}

func (dc *DendriticCell) makeMature() {
	dc.immatureEnd.Clear()
	dc.polarization = PolarizationType2
	dc.mhcII = true
	dc.death.Set(lifecycle.Sample(dc.sim.rng, dc.deathInterval(), dc.sim.Now()))
	dc.scaleTimer(&dc.death)
}

// immunizedDC is delivered into the SLO by an immunization. It is never
// replaced when it dies.
func immunizedDC(s *Sim, c *Compartment) *DendriticCell {
	dc := spawnDC(s, c)
	dc.immunization = true
	dc.polarization = PolarizationType1
	dc.mbp = true
	dc.costim = true
	dc.mhcII = true
	dc.immatureEnd.Clear()
	dc.death.Set(lifecycle.Sample(s.rng, dc.deathInterval(), s.Now()))
	return dc
}

func (dc *DendriticCell) Step(now float64) error {
	if dc.dead || dc.apoptotic {
		return nil
	}
	dc.perceive(now)
	dc.engulfApoptoticAPCs(dc, now)
	dc.secrete()
	if dc.immatureEnd.Due(now) {
		dc.immatureEnd.Clear()
		dc.becomeNonImmature(now)
	}
	if dc.death.Due(now) {
		dc.death.Clear()
		dc.becomeApoptotic()
	}
	if m := dc.mig; m != nil && !dc.dead && m.stop.Due(now) {
		m.stop.Clear()
		m.mobile = false
	}
	return nil
}

func (dc *DendriticCell) perceive(now float64) {
	if dc.costim || !dc.expressingMHC() {
		return
	}
	if dc.comp.concentration(field.Type1, dc) < dc.sim.p.DC.Type1RequiredForActivation {
		return
	}
	if dc.polarization == PolarizationNone {
		dc.determinePolarization()
	}
	dc.costim = true
	dc.setDeath(now)
}

func (dc *DendriticCell) determinePolarization() {
	type1 := dc.comp.concentration(field.Type1, dc)
	type2 := dc.comp.concentration(field.Type2, dc)
	if type1+type2 == 0 {
		dc.polarization = PolarizationType2
		return
	}
	inCNS := dc.comp.kind == CNS
	if type2/(type1+type2) >= dc.sim.p.DC.Type2PolarizationRatio {
		dc.polarization = PolarizationType2
		if inCNS {
			dc.sim.counters.cnsDCType2++
		}
		return
	}
	dc.polarization = PolarizationType1
	if inCNS {
		dc.sim.counters.cnsDCType1++
	}
}

func (dc *DendriticCell) becomeNonImmature(now float64) {
	dc.mhcII = true
	dc.cd200r = true
	dc.determinePolarization()
	dc.setDeath(now)
	dc.qa1 = dc.sim.p.Simulation.CD4TregAbrogation
	if dc.mig != nil {
		dc.mig.mobile = true
	}
}

func (dc *DendriticCell) secrete() {
	if dc.polarization != PolarizationType1 {
		return
	}
	if dc.sim.p.DC.CostimRequiredForCytokineSecretion && !dc.costim {
		return
	}
	dc.comp.secrete(field.Type1, dc.sim.p.DC.Type1PerHourImmunized*dc.sim.tick, dc)
}

func (dc *DendriticCell) becomeApoptotic() {
	dc.apoptotic = true
	comp := dc.comp
	class := dc.peptideClass()
	dc.sim.remove(dc)
	switch {
	case dc.mig != nil:
		dc.sim.counters.dcmPeptides[class]++
		spawnDCM(dc.sim, dc.mig.origin, dc.mig.origin)
	case !dc.immunization:
		spawnDC(dc.sim, comp)
	}
}

func (dc *DendriticCell) peptideClass() PeptideClass {
	mbp := dc.ExpressingMHCIIMBP()
	treg := dc.ExpressingMHCICDR12() || dc.ExpressingMHCIIFr3()
	switch {
	case mbp && treg:
		return PeptidesBoth
	case mbp:
		return PeptidesMBPOnly
	case treg:
		return PeptidesTregOnly
	default:
		return PeptidesNone
	}
}

func (dc *DendriticCell) migrated(now float64) {
	if m := dc.mig; m != nil {
		m.stop.Set(now + dc.sim.p.DCM.MovingAfterMigration + (dc.sim.rng.Float64()-0.5)*4)
	}
}

func (dc *DendriticCell) expressingMHC() bool { return dc.mhcII || dc.qa1 }

func (dc *DendriticCell) phagocytosisProbability(mature bool) float64 {
	if mature {
		return dc.sim.p.DC.PhagocytosisMature
	}
	return dc.sim.p.DC.PhagocytosisImmature
}

// present maps phagocytosed peptides onto expression. Under mutually
// exclusive presentation only the first productive event counts.
func (dc *DendriticCell) present(p Peptides) {
	mutual := dc.sim.p.DC.MutualExclusivePeptidePresentation
	if mutual && !dc.awaitingFirst {
		return
	}
	if p.Has(PeptideFr3) {
		dc.fr3 = true
	}
	if p.Has(PeptideCDR12) {
		dc.cdr12 = true
	}
	if p.Has(PeptideMBP) {
		dc.mbp = true
	}
	if mutual && (dc.mbp || dc.fr3 || dc.cdr12) {
		dc.awaitingFirst = false
	}
}

func (dc *DendriticCell) Phagocytose(now float64, victim Phagocytosable) {
	dc.phagocytose(dc, now, victim)
}

func (dc *DendriticCell) Costimulatory() bool        { return dc.costim }
func (dc *DendriticCell) ExpressingMHCIIMBP() bool   { return dc.mbp && dc.mhcII }
func (dc *DendriticCell) ExpressingMHCIIFr3() bool   { return dc.fr3 && dc.mhcII }
func (dc *DendriticCell) ExpressingMHCICDR12() bool  { return dc.cdr12 && dc.qa1 }
func (dc *DendriticCell) ExpressingCD200R() bool     { return dc.cd200r }
func (dc *DendriticCell) PrimingCapacity() float64   { return dc.capacity }
func (dc *DendriticCell) Polarization() Polarization { return dc.polarization }

// Mobile only applies to migrating DCs; resident DCs never move.
func (dc *DendriticCell) Mobile() bool { return dc.mig != nil && dc.mig.mobile }

func (dc *DendriticCell) LicenseCostim() { dc.costim = true }

// LicenseQa1 is granted by CD4Treg cells, which can only bind a DC that
// shows MHC-II:Fr3.
func (dc *DendriticCell) LicenseQa1() {
	if !dc.ExpressingMHCIIFr3() {
		simerr.Violation("dc %d licensed for Qa-1 without MHC-II:Fr3", dc.id)
	}
	dc.qa1 = true
}

func (dc *DendriticCell) ReceiveCD200Signal() {
	cd := dc.sim.p.CD200
	if cd.CytokineSwitching {
		dc.polarization = PolarizationType2
	}
	if cd.GradualReduction {
		dc.capacity = mathx.Clamp01(dc.capacity * cd.PrimingReductionFactor)
	}
}
