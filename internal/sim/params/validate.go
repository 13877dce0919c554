package params

import (
	"math"

	"treg2d/internal/sim/simerr"
)

type checker struct {
	err error
}

func (c *checker) fail(cat, field, format string, args ...any) {
	if c.err == nil {
		c.err = simerr.Config(cat, field, format, args...)
	}
}

func (c *checker) positive(cat, field string, v float64) {
	if !(v > 0) || math.IsInf(v, 0) {
		c.fail(cat, field, "must be > 0, got %v", v)
	}
}

func (c *checker) nonNegative(cat, field string, v float64) {
	if !(v >= 0) || math.IsInf(v, 0) {
		c.fail(cat, field, "must be >= 0, got %v", v)
	}
}

func (c *checker) count(cat, field string, v int) {
	if v < 0 {
		c.fail(cat, field, "must be >= 0, got %d", v)
	}
}

func (c *checker) probability(cat, field string, v float64) {
	if !(v >= 0 && v <= 1) {
		c.fail(cat, field, "must be within [0,1], got %v", v)
	}
}

func (c *checker) interval(cat, name string, mean, sd float64) {
	c.positive(cat, name+"_mean", mean)
	c.nonNegative(cat, name+"_sd", sd)
}

func (c *checker) organ(cat string, o Organ) {
	if o.Width <= 0 {
		c.fail(cat, "width", "must be > 0, got %d", o.Width)
	}
	if o.Height <= 0 {
		c.fail(cat, "height", "must be > 0, got %d", o.Height)
	}
	c.positive(cat, "time_to_cross_organ", o.TimeToCross)
}

// Validate runs the semantic checks the schema cannot express. The first
// failure is returned as a *simerr.ConfigurationError.
func (p *Params) Validate() error {
	var c checker

	s := p.Simulation
	c.positive("simulation", "time_slice", s.TimeSlice)
	c.positive("simulation", "observer_interval", s.ObserverInterval)
	if s.PopulationCeiling <= 0 {
		c.fail("simulation", "population_ceiling", "must be > 0, got %d", s.PopulationCeiling)
	}
	if s.Immunize || s.SecondImmunization {
		c.positive("simulation", "immunization_linear_freq", s.ImmunizationLinearFreq)
		c.nonNegative("simulation", "immunization_time", s.ImmunizationTime)
		c.count("simulation", "immunization_linear_initial", s.ImmunizationLinearInitial)
	}
	if s.SecondImmunization {
		c.nonNegative("simulation", "second_immunization_start_time", s.SecondImmunizationStart)
	}
	c.count("simulation", "num_cd4th", s.NumCD4Th)
	c.count("simulation", "num_cd4treg", s.NumCD4Treg)
	c.count("simulation", "num_cd8treg", s.NumCD8Treg)
	c.count("simulation", "num_cns", s.NumNeurons)
	c.count("simulation", "num_cns_macrophage", s.NumCNSMacrophage)
	c.count("simulation", "num_dc", s.NumDC)
	c.count("simulation", "num_dc_cns", s.NumDCCNS)
	c.count("simulation", "num_dc_spleen", s.NumDCSpleen)

	if len(p.Network.Edges) == 0 {
		c.fail("network", "edges", "at least one edge is required")
	}
	for i, e := range p.Network.Edges {
		if e.From == "" || e.To == "" {
			c.fail("network", "edges", "edge %d needs both from and to", i)
		}
	}

	c.positive("molecule", "molecular_halflife", p.Molecule.Halflife)
	c.nonNegative("molecule", "decay_threshold", p.Molecule.DecayThreshold)

	c.organ("circulation", p.Circulation)
	c.organ("cns", p.CNS.Organ)
	c.organ("cln", p.CLN)
	c.organ("slo", p.SLO)
	c.organ("spleen", p.Spleen.Organ)

	t := p.TCell
	c.interval("tcell", "proliferation", t.ProliferationMean, t.ProliferationSD)
	c.interval("tcell", "aicd", t.AICDMean, t.AICDSD)
	c.interval("tcell", "become_effector", t.BecomeEffectorMean, t.BecomeEffectorSD)
	c.interval("tcell", "apoptosis_naive", t.ApoptosisNaiveMean, t.ApoptosisNaiveSD)
	c.interval("tcell", "apoptosis_partial", t.ApoptosisPartialMean, t.ApoptosisPartialSD)
	c.nonNegative("tcell", "cutoff_threshold_for_prolif_when_binding_lost", t.CutoffWhenBindingLost)
	if t.CellsPerGridspace < 1 {
		c.fail("tcell", "cells_per_gridspace", "must be >= 1, got %d", t.CellsPerGridspace)
	}
	c.probability("tcell", "specificity_lower_limit", t.SpecificityLower)
	c.probability("tcell", "specificity_upper_limit", t.SpecificityUpper)
	if t.SpecificityLower > t.SpecificityUpper {
		c.fail("tcell", "specificity_lower_limit", "%v is above the upper limit %v", t.SpecificityLower, t.SpecificityUpper)
	}
	c.nonNegative("tcell", "time_local_activation_effector_for", t.LocalActivationEffectorFor)
	c.nonNegative("tcell", "time_local_activation_delay", t.LocalActivationDelay)

	c.probability("cd4th", "diff00", p.CD4Th.Diff00)
	c.probability("cd4th", "diff08", p.CD4Th.Diff08)
	c.interval("th1_polarization", "mhc_unexpression_delay", p.Th1.MHCUnexpressionDelayMean, p.Th1.MHCUnexpressionDelaySD)
	c.nonNegative("th1_polarization", "type1_secreted_per_hour_when_activated", p.Th1.Type1PerHour)
	c.interval("th2_polarization", "proliferation", p.Th2.ProliferationMean, p.Th2.ProliferationSD)
	c.nonNegative("th2_polarization", "type2_secreted_per_hour_when_activated", p.Th2.Type2PerHour)
	c.nonNegative("cd4treg", "type1_secreted_per_hour_when_activated", p.CD4Treg.Type1PerHour)
	c.nonNegative("cd8treg", "type1_secreted_per_hour_when_activated", p.CD8Treg.Type1PerHour)
	c.probability("cd8treg", "cd8treg_to_cd4th_specificity_drop_off", p.CD8Treg.SpecificityDropOff)

	a := p.APC
	c.interval("apc", "immature_duration", a.ImmatureDurationMean, a.ImmatureDurationSD)
	c.interval("apc", "costim_expression_delay", a.CostimExpressionDelayMean, a.CostimExpressionDelaySD)
	c.interval("apc", "mhc_expression_delay", a.MHCExpressionDelayMean, a.MHCExpressionDelaySD)
	c.interval("apc", "time_of_death", a.TimeOfDeathMean, a.TimeOfDeathSD)
	c.probability("apc", "probability_phagocytosis_to_peptide", a.PhagocytosisToPeptide)

	d := p.DC
	c.probability("dendritic_cell", "phagocytosis_probability_immature", d.PhagocytosisImmature)
	c.probability("dendritic_cell", "phagocytosis_probability_mature", d.PhagocytosisMature)
	c.nonNegative("dendritic_cell", "type1_required_for_activation", d.Type1RequiredForActivation)
	c.nonNegative("dendritic_cell", "type1_secreted_per_hour_immunized", d.Type1PerHourImmunized)
	c.probability("dendritic_cell", "cytokine_type2_polarization_ratio", d.Type2PolarizationRatio)

	c.nonNegative("dendritic_cell_migrates", "length_of_time_moving_following_migration", p.DCM.MovingAfterMigration)

	m := p.Macrophage
	c.probability("cns_macrophage", "phagocytosis_probability_immature", m.PhagocytosisImmature)
	c.probability("cns_macrophage", "phagocytosis_probability_mature", m.PhagocytosisMature)
	c.probability("cns_macrophage", "basal_mbp_expression_probability", m.BasalMBPExpression)
	c.nonNegative("cns_macrophage", "type1_required_for_activation", m.Type1RequiredForActivation)
	c.nonNegative("cns_macrophage", "sda_secreted_per_hour_when_stimulated", m.SDAPerHourWhenStimulated)

	c.nonNegative("cns_cell", "apoptosis_sda_threshold", p.Neuron.ApoptosisSDAThreshold)

	c.probability("cd200", "cd200_priming_capacity_reduction_factor", p.CD200.PrimingReductionFactor)

	return c.err
}
