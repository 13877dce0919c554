package world

import "math"

// populate seeds the initial population.
func (s *Sim) populate() {
	sp := s.p.Simulation

	for i := 0; i < sp.NumCD4Th; i++ {
		newNaiveCD4Th(s, s.tcellHome())
	}
	if !sp.CD4TregAbrogation {
		for i := 0; i < sp.NumCD4Treg; i++ {
			newNaiveCD4Treg(s, s.tcellHome())
		}
	}
	for i := 0; i < sp.NumCD8Treg; i++ {
		newNaiveCD8Treg(s, s.tcellHome())
	}

	cns := s.comps[CNS]
	for i := 0; i < sp.NumNeurons; i++ {
		spawnNeuron(s, cns)
	}
	for i := 0; i < sp.NumCNSMacrophage; i++ {
		initialMacrophage(s, cns)
	}

	share := s.immatureShare()
	immature := int(float64(sp.NumDC) * share)
	for i := 0; i < immature; i++ {
		initialImmatureDC(s, s.comps[SLO])
		initialImmatureDC(s, s.comps[CLN])
	}
	for i := 0; i < sp.NumDC-immature; i++ {
		initialMatureDC(s, s.comps[SLO])
		initialMatureDC(s, s.comps[CLN])
	}

	for i := 0; i < sp.NumDCCNS; i++ {
		initialImmatureDCM(s, cns)
	}
	if share > 0 {
		total := int(math.Round(float64(sp.NumDCCNS) / share))
		for i := 0; i < total-sp.NumDCCNS; i++ {
			migratedDCM(s, s.comps[CLN], cns)
		}
	}

	spleenDCs := sp.NumDCSpleen
	if sp.Splenectomy {
		spleenDCs = 0
	}
	immature = int(float64(spleenDCs) * share)
	for i := 0; i < immature; i++ {
		initialImmatureDC(s, s.comps[Spleen])
	}
	for i := 0; i < spleenDCs-immature; i++ {
		initialMatureDC(s, s.comps[Spleen])
	}
}

// immatureShare is the steady-state fraction of APCs still immature.
func (s *Sim) immatureShare() float64 {
	a := s.p.APC
	return a.ImmatureDurationMean / (a.ImmatureDurationMean + a.TimeOfDeathMean)
}

// tcellHome picks a uniformly random lymphoid compartment for a seeded T
// cell. The spleen is left out under splenectomy.
func (s *Sim) tcellHome() *Compartment {
	homes := [...]Kind{Circulation, CLN, SLO, Spleen}
	n := len(homes)
	if s.p.Simulation.Splenectomy {
		n--
	}
	return s.comps[homes[s.rng.Intn(n)]]
}
