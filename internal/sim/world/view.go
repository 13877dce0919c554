package world

import (
	"treg2d/internal/sim/field"
	"treg2d/internal/sim/lifecycle"
)

// View is the read-only face of a Sim handed to observers. Everything it
// returns is a copy.
type View struct {
	s *Sim
}

// AgentInfo is a detached description of one agent.
type AgentInfo struct {
	ID      uint64 `json:"id"`
	Species string `json:"species"`
	// Maturity is only set for T cells.
	Maturity string `json:"maturity,omitempty"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
}

type CompartmentCensus struct {
	Name       string                    `json:"name"`
	Agents     int                       `json:"agents"`
	BySpecies  map[string]int            `json:"by_species"`
	ByMaturity map[string]map[string]int `json:"by_maturity"`
	Fields     map[string]float64        `json:"fields"`
}

// Census is one observation of the whole kernel.
type Census struct {
	Time         float64             `json:"time"`
	Total        int                 `json:"total"`
	Compartments []CompartmentCensus `json:"compartments"`
	Counters     CounterSnapshot     `json:"counters"`
}

func (v View) Time() float64 { return v.s.Now() }
func (v View) Seed() int64   { return v.s.seed }
func (v View) Total() int    { return v.s.Total() }

// Compartments lists the compartment names in kind order.
func (v View) Compartments() []string {
	out := make([]string, 0, NumKinds)
	for k := Kind(0); k < NumKinds; k++ {
		out = append(out, k.String())
	}
	return out
}

func (v View) compartment(name string) *Compartment {
	k, ok := ParseKind(name)
	if !ok {
		return nil
	}
	return v.s.comps[k]
}

// Agents describes every agent in the named compartment, in grid order.
func (v View) Agents(name string) []AgentInfo {
	c := v.compartment(name)
	if c == nil {
		return nil
	}
	all := c.grid.All()
	out := make([]AgentInfo, 0, len(all))
	for _, o := range all {
		a := o.(Agent)
		p, _ := c.grid.Location(a)
		info := AgentInfo{ID: a.ID(), Species: a.Species().String(), X: p.X, Y: p.Y}
		if m, ok := maturityOf(a); ok {
			info.Maturity = m.String()
		}
		out = append(out, info)
	}
	return out
}

func (v View) CountBySpecies(name string) map[Species]int {
	out := map[Species]int{}
	c := v.compartment(name)
	if c == nil {
		return out
	}
	for _, o := range c.grid.All() {
		out[o.(Agent).Species()]++
	}
	return out
}

// CountByMaturity counts the T cells of the named compartment.
func (v View) CountByMaturity(name string) map[lifecycle.Maturity]int {
	out := map[lifecycle.Maturity]int{}
	c := v.compartment(name)
	if c == nil {
		return out
	}
	for _, o := range c.grid.All() {
		if m, ok := maturityOf(o.(Agent)); ok {
			out[m]++
		}
	}
	return out
}

func (v View) Counters() CounterSnapshot { return v.s.counters.snapshot() }

// FieldTotal is the summed concentration of m in the named compartment.
func (v View) FieldTotal(name string, m field.Molecule) float64 {
	c := v.compartment(name)
	if c == nil {
		return 0
	}
	return c.fields[m].Sum()
}

func (v View) Census(now float64) Census {
	out := Census{Time: now, Total: v.Total(), Counters: v.Counters()}
	for k := Kind(0); k < NumKinds; k++ {
		c := v.s.comps[k]
		cc := CompartmentCensus{
			Name:       k.String(),
			Agents:     c.grid.Len(),
			BySpecies:  map[string]int{},
			ByMaturity: map[string]map[string]int{},
			Fields:     map[string]float64{},
		}
		for _, o := range c.grid.All() {
			a := o.(Agent)
			sp := a.Species().String()
			cc.BySpecies[sp]++
			if m, ok := maturityOf(a); ok {
				if cc.ByMaturity[sp] == nil {
					cc.ByMaturity[sp] = map[string]int{}
				}
				cc.ByMaturity[sp][m.String()]++
			}
		}
		for m := field.Molecule(0); m < field.NumMolecules; m++ {
			cc.Fields[m.String()] = c.fields[m].Sum()
		}
		out.Compartments = append(out.Compartments, cc)
	}
	return out
}
