package world

import (
	"sort"

	"treg2d/internal/sim/lifecycle"
)

// PeptideClass buckets what a migrating DC was presenting when it died.
type PeptideClass int

const (
	PeptidesNone PeptideClass = iota
	PeptidesMBPOnly
	PeptidesTregOnly
	PeptidesBoth

	numPeptideClasses
)

var peptideClassNames = [...]string{"none", "mbp_only", "treg_only", "both"}

func (p PeptideClass) String() string {
	if p < 0 || p >= numPeptideClasses {
		return "unknown"
	}
	return peptideClassNames[p]
}

const (
	resultOK      = "ok"
	resultRefused = "refused"
)

type migrationKey struct {
	from, to Kind
	species  Species
	ok       bool
}

// counters are the cumulative run statistics. They only ever grow.
type counters struct {
	priming       [NumSpecies][NumKinds]uint64
	deaths        [lifecycle.NumCauses]uint64
	th1Killed     [NumKinds]uint64
	neuronsKilled uint64
	cnsDCType1    uint64
	cnsDCType2    uint64
	dcmPeptides   [numPeptideClasses]uint64
	migrations    map[migrationKey]uint64
	generated     [NumSpecies]uint64
	immunization  uint64
}

func (c *counters) migration(from, to Kind, s Species, ok bool) {
	if c.migrations == nil {
		c.migrations = map[migrationKey]uint64{}
	}
	c.migrations[migrationKey{from: from, to: to, species: s, ok: ok}]++
}

func (c *counters) death(cause lifecycle.Cause) {
	if cause >= 0 && int(cause) < len(c.deaths) {
		c.deaths[cause]++
	}
}

type PrimingMetric struct {
	Species     string `json:"species"`
	Compartment string `json:"compartment"`
	Count       uint64 `json:"count"`
}

type MigrationMetric struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Species string `json:"species"`
	Result  string `json:"result"`
	Count   uint64 `json:"count"`
}

// CounterSnapshot is a detached copy of the cumulative counters. Zero
// entries are omitted.
type CounterSnapshot struct {
	Priming         []PrimingMetric   `json:"priming"`
	Deaths          map[string]uint64 `json:"deaths"`
	Th1Killed       map[string]uint64 `json:"th1_killed"`
	NeuronsKilled   uint64            `json:"neurons_killed"`
	CNSDCType1      uint64            `json:"cns_dc_type1"`
	CNSDCType2      uint64            `json:"cns_dc_type2"`
	DCMPeptides     map[string]uint64 `json:"dcm_peptides"`
	Migrations      []MigrationMetric `json:"migrations"`
	Generated       map[string]uint64 `json:"generated"`
	ImmunizationDCs uint64            `json:"immunization_dcs"`
}

func (c *counters) snapshot() CounterSnapshot {
	out := CounterSnapshot{
		Deaths:          map[string]uint64{},
		Th1Killed:       map[string]uint64{},
		DCMPeptides:     map[string]uint64{},
		Generated:       map[string]uint64{},
		NeuronsKilled:   c.neuronsKilled,
		CNSDCType1:      c.cnsDCType1,
		CNSDCType2:      c.cnsDCType2,
		ImmunizationDCs: c.immunization,
	}
	for s := Species(0); s < NumSpecies; s++ {
		for k := Kind(0); k < NumKinds; k++ {
			if n := c.priming[s][k]; n > 0 {
				out.Priming = append(out.Priming, PrimingMetric{Species: s.String(), Compartment: k.String(), Count: n})
			}
		}
		if n := c.generated[s]; n > 0 {
			out.Generated[s.String()] = n
		}
	}
	for cause, n := range c.deaths {
		if n > 0 {
			out.Deaths[lifecycle.Cause(cause).String()] = n
		}
	}
	for k, n := range c.th1Killed {
		if n > 0 {
			out.Th1Killed[Kind(k).String()] = n
		}
	}
	for p, n := range c.dcmPeptides {
		if n > 0 {
			out.DCMPeptides[PeptideClass(p).String()] = n
		}
	}
	for k, n := range c.migrations {
		res := resultRefused
		if k.ok {
			res = resultOK
		}
		out.Migrations = append(out.Migrations, MigrationMetric{
			From:    k.from.String(),
			To:      k.to.String(),
			Species: k.species.String(),
			Result:  res,
			Count:   n,
		})
	}
	sort.Slice(out.Migrations, func(i, j int) bool {
		a, b := out.Migrations[i], out.Migrations[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		if a.Species != b.Species {
			return a.Species < b.Species
		}
		return a.Result < b.Result
	})
	return out
}
