// Package params is the typed parameter document of a simulation run.
//
// Every category is required; there is no defaults layer. Durations are in
// simulated hours, and every standard deviation follows the convention of
// being configured as twice the true value.
package params

type Params struct {
	Simulation  Simulation  `yaml:"simulation" json:"simulation"`
	Network     Network     `yaml:"network" json:"network"`
	Molecule    Molecule    `yaml:"molecule" json:"molecule"`
	Compartment Compartment `yaml:"compartment" json:"compartment"`

	Circulation Organ       `yaml:"circulation" json:"circulation"`
	CNS         CNSOrgan    `yaml:"cns" json:"cns"`
	CLN         Organ       `yaml:"cln" json:"cln"`
	SLO         Organ       `yaml:"slo" json:"slo"`
	Spleen      SpleenOrgan `yaml:"spleen" json:"spleen"`

	TCell   TCell   `yaml:"tcell" json:"tcell"`
	CD4Th   CD4Th   `yaml:"cd4th" json:"cd4th"`
	Th1     Th1     `yaml:"th1_polarization" json:"th1_polarization"`
	Th2     Th2     `yaml:"th2_polarization" json:"th2_polarization"`
	CD4Treg CD4Treg `yaml:"cd4treg" json:"cd4treg"`
	CD8Treg CD8Treg `yaml:"cd8treg" json:"cd8treg"`

	APC        APC           `yaml:"apc" json:"apc"`
	DC         DendriticCell `yaml:"dendritic_cell" json:"dendritic_cell"`
	DCM        DCMigrates    `yaml:"dendritic_cell_migrates" json:"dendritic_cell_migrates"`
	Macrophage Macrophage    `yaml:"cns_macrophage" json:"cns_macrophage"`
	Neuron     Neuron        `yaml:"cns_cell" json:"cns_cell"`
	CD200      CD200         `yaml:"cd200" json:"cd200"`
}

type Simulation struct {
	TimeSlice float64 `yaml:"time_slice" json:"time_slice"`

	Immunize                   bool    `yaml:"immunize" json:"immunize"`
	ImmunizationTime           float64 `yaml:"immunization_time" json:"immunization_time"`
	ImmunizationLinearFreq     float64 `yaml:"immunization_linear_freq" json:"immunization_linear_freq"`
	ImmunizationLinearInitial  int     `yaml:"immunization_linear_initial" json:"immunization_linear_initial"`
	ImmunizationLinearDC0      float64 `yaml:"immunization_linear_dc0" json:"immunization_linear_dc0"`
	ImmunizationLinearGradient float64 `yaml:"immunization_linear_gradient" json:"immunization_linear_gradient"`
	SecondImmunization         bool    `yaml:"second_immunization" json:"second_immunization"`
	SecondImmunizationStart    float64 `yaml:"second_immunization_start_time" json:"second_immunization_start_time"`

	CD4TregAbrogation bool `yaml:"cd4treg_abrogation" json:"cd4treg_abrogation"`
	Splenectomy       bool `yaml:"splenectomy" json:"splenectomy"`

	NumCD4Th         int `yaml:"num_cd4th" json:"num_cd4th"`
	NumCD4Treg       int `yaml:"num_cd4treg" json:"num_cd4treg"`
	NumCD8Treg       int `yaml:"num_cd8treg" json:"num_cd8treg"`
	NumNeurons       int `yaml:"num_cns" json:"num_cns"`
	NumCNSMacrophage int `yaml:"num_cns_macrophage" json:"num_cns_macrophage"`
	NumDC            int `yaml:"num_dc" json:"num_dc"`
	NumDCCNS         int `yaml:"num_dc_cns" json:"num_dc_cns"`
	NumDCSpleen      int `yaml:"num_dc_spleen" json:"num_dc_spleen"`

	PopulationCeiling int     `yaml:"population_ceiling" json:"population_ceiling"`
	ObserverInterval  float64 `yaml:"observer_interval" json:"observer_interval"`
}

// Network lists the directed migration routes between compartments.
type Network struct {
	Edges []Edge `yaml:"edges" json:"edges"`
}

type Edge struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

type Molecule struct {
	Halflife       float64 `yaml:"molecular_halflife" json:"molecular_halflife"`
	DecayThreshold float64 `yaml:"decay_threshold" json:"decay_threshold"`
}

type Compartment struct {
	// ActivatedTCellsFastTrack makes effector T cells cross lymph nodes in 6h.
	ActivatedTCellsFastTrack bool `yaml:"activated_tcells_fast_track_through_slo" json:"activated_tcells_fast_track_through_slo"`
}

type Organ struct {
	Width       int     `yaml:"width" json:"width"`
	Height      int     `yaml:"height" json:"height"`
	TimeToCross float64 `yaml:"time_to_cross_organ" json:"time_to_cross_organ"`
}

type CNSOrgan struct {
	Organ                  `yaml:",inline"`
	TCellActivatedCanLeave bool `yaml:"tcell_activated_can_leave" json:"tcell_activated_can_leave"`
}

type SpleenOrgan struct {
	Organ                `yaml:",inline"`
	SplenectomyFastTrack bool `yaml:"splenectomy_fast_track" json:"splenectomy_fast_track"`
}

type TCell struct {
	ProliferationMean     float64 `yaml:"proliferation_mean" json:"proliferation_mean"`
	ProliferationSD       float64 `yaml:"proliferation_sd" json:"proliferation_sd"`
	CutoffWhenBindingLost float64 `yaml:"cutoff_threshold_for_prolif_when_binding_lost" json:"cutoff_threshold_for_prolif_when_binding_lost"`
	AICDMean              float64 `yaml:"aicd_mean" json:"aicd_mean"`
	AICDSD                float64 `yaml:"aicd_sd" json:"aicd_sd"`
	BecomeEffectorMean    float64 `yaml:"become_effector_mean" json:"become_effector_mean"`
	BecomeEffectorSD      float64 `yaml:"become_effector_sd" json:"become_effector_sd"`
	ApoptosisNaiveMean    float64 `yaml:"apoptosis_naive_mean" json:"apoptosis_naive_mean"`
	ApoptosisNaiveSD      float64 `yaml:"apoptosis_naive_sd" json:"apoptosis_naive_sd"`
	ApoptosisPartialMean  float64 `yaml:"apoptosis_partial_mean" json:"apoptosis_partial_mean"`
	ApoptosisPartialSD    float64 `yaml:"apoptosis_partial_sd" json:"apoptosis_partial_sd"`

	CellsPerGridspace int  `yaml:"cells_per_gridspace" json:"cells_per_gridspace"`
	SpatialTestEquals bool `yaml:"spatial_test_equals" json:"spatial_test_equals"`

	SpecificityLower float64 `yaml:"specificity_lower_limit" json:"specificity_lower_limit"`
	SpecificityUpper float64 `yaml:"specificity_upper_limit" json:"specificity_upper_limit"`

	LocalActivationEffectorFor float64 `yaml:"time_local_activation_effector_for" json:"time_local_activation_effector_for"`
	LocalActivationDelay       float64 `yaml:"time_local_activation_delay" json:"time_local_activation_delay"`
}

// CD4Th holds the chance of Th1 polarization below and above an 80% local
// type 1 cytokine share.
type CD4Th struct {
	Diff00 float64 `yaml:"diff00" json:"diff00"`
	Diff08 float64 `yaml:"diff08" json:"diff08"`
}

type Th1 struct {
	MHCUnexpressionDelayMean float64 `yaml:"mhc_unexpression_delay_mean" json:"mhc_unexpression_delay_mean"`
	MHCUnexpressionDelaySD   float64 `yaml:"mhc_unexpression_delay_sd" json:"mhc_unexpression_delay_sd"`
	Type1PerHour             float64 `yaml:"type1_secreted_per_hour_when_activated" json:"type1_secreted_per_hour_when_activated"`
}

type Th2 struct {
	ProliferationMean float64 `yaml:"proliferation_mean" json:"proliferation_mean"`
	ProliferationSD   float64 `yaml:"proliferation_sd" json:"proliferation_sd"`
	Type2PerHour      float64 `yaml:"type2_secreted_per_hour_when_activated" json:"type2_secreted_per_hour_when_activated"`
}

type CD4Treg struct {
	Type1PerHour float64 `yaml:"type1_secreted_per_hour_when_activated" json:"type1_secreted_per_hour_when_activated"`
}

type CD8Treg struct {
	Type1PerHour float64 `yaml:"type1_secreted_per_hour_when_activated" json:"type1_secreted_per_hour_when_activated"`
	// SpecificityDropOff scales binding against CD4Th1 cells.
	SpecificityDropOff float64 `yaml:"cd8treg_to_cd4th_specificity_drop_off" json:"cd8treg_to_cd4th_specificity_drop_off"`
}

type APC struct {
	ImmatureDurationMean      float64 `yaml:"immature_duration_mean" json:"immature_duration_mean"`
	ImmatureDurationSD        float64 `yaml:"immature_duration_sd" json:"immature_duration_sd"`
	CostimExpressionDelayMean float64 `yaml:"costim_expression_delay_mean" json:"costim_expression_delay_mean"`
	CostimExpressionDelaySD   float64 `yaml:"costim_expression_delay_sd" json:"costim_expression_delay_sd"`
	MHCExpressionDelayMean    float64 `yaml:"mhc_expression_delay_mean" json:"mhc_expression_delay_mean"`
	MHCExpressionDelaySD      float64 `yaml:"mhc_expression_delay_sd" json:"mhc_expression_delay_sd"`
	TimeOfDeathMean           float64 `yaml:"time_of_death_mean" json:"time_of_death_mean"`
	TimeOfDeathSD             float64 `yaml:"time_of_death_sd" json:"time_of_death_sd"`
	PhagocytosisToPeptide     float64 `yaml:"probability_phagocytosis_to_peptide" json:"probability_phagocytosis_to_peptide"`
}

type DendriticCell struct {
	PhagocytosisImmature               float64 `yaml:"phagocytosis_probability_immature" json:"phagocytosis_probability_immature"`
	PhagocytosisMature                 float64 `yaml:"phagocytosis_probability_mature" json:"phagocytosis_probability_mature"`
	Type1RequiredForActivation         float64 `yaml:"type1_required_for_activation" json:"type1_required_for_activation"`
	Type1PerHourImmunized              float64 `yaml:"type1_secreted_per_hour_immunized" json:"type1_secreted_per_hour_immunized"`
	Type2PolarizationRatio             float64 `yaml:"cytokine_type2_polarization_ratio" json:"cytokine_type2_polarization_ratio"`
	MutualExclusivePeptidePresentation bool    `yaml:"mutual_exclusive_peptide_presentation" json:"mutual_exclusive_peptide_presentation"`
	CostimRequiredForCytokineSecretion bool    `yaml:"costim_required_for_cytokine_secretion" json:"costim_required_for_cytokine_secretion"`
}

type DCMigrates struct {
	MovingAfterMigration float64 `yaml:"length_of_time_moving_following_migration" json:"length_of_time_moving_following_migration"`
}

type Macrophage struct {
	PhagocytosisImmature       float64 `yaml:"phagocytosis_probability_immature" json:"phagocytosis_probability_immature"`
	PhagocytosisMature         float64 `yaml:"phagocytosis_probability_mature" json:"phagocytosis_probability_mature"`
	BasalMBPExpression         float64 `yaml:"basal_mbp_expression_probability" json:"basal_mbp_expression_probability"`
	Type1RequiredForActivation float64 `yaml:"type1_required_for_activation" json:"type1_required_for_activation"`
	SDAPerHourWhenStimulated   float64 `yaml:"sda_secreted_per_hour_when_stimulated" json:"sda_secreted_per_hour_when_stimulated"`
}

type Neuron struct {
	ApoptosisSDAThreshold float64 `yaml:"apoptosis_sda_threshold" json:"apoptosis_sda_threshold"`
}

type CD200 struct {
	CytokineSwitching      bool    `yaml:"cd200_cytokine_switching" json:"cd200_cytokine_switching"`
	GradualReduction       bool    `yaml:"cd200_gradual_reduction_priming_capacity" json:"cd200_gradual_reduction_priming_capacity"`
	PrimingReductionFactor float64 `yaml:"cd200_priming_capacity_reduction_factor" json:"cd200_priming_capacity_reduction_factor"`
}

// Active reports whether CD200 negative signalling takes part in binding.
func (c CD200) Active() bool { return c.CytokineSwitching || c.GradualReduction }
