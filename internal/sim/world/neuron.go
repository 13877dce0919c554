package world

import "treg2d/internal/sim/field"

// Neuron is a fixed CNS cell. Enough SDA makes it apoptotic, after which a
// neighbouring APC may engulf it.
type Neuron struct {
	Cell
	apoptotic bool
}

func newNeuron(s *Sim, c *Compartment) *Neuron {
	n := &Neuron{}
	n.species = SpeciesNeuron
	s.add(n, c)
	return n
}

func spawnNeuron(s *Sim, c *Compartment) *Neuron {
	n := newNeuron(s, c)
	c.placeRandom(n)
	return n
}

func (n *Neuron) Apoptotic() bool { return n.apoptotic }

func (n *Neuron) Step(now float64) error {
	if n.dead {
		return nil
	}
	if !n.apoptotic && n.comp.concentration(field.SDA, n) > n.sim.p.Neuron.ApoptosisSDAThreshold {
		n.apoptotic = true
		n.sim.counters.neuronsKilled++
	}
	for _, o := range n.comp.neighbours(n) {
		if a, ok := o.(APC); ok {
			a.Phagocytose(now, n)
		}
		if n.dead {
			break
		}
	}
	return nil
}

// BePhagocytosed yields MBP and puts a fresh neuron where this one was.
func (n *Neuron) BePhagocytosed(float64) (Peptides, bool) {
	c := n.comp
	p, ok := c.Location(n)
	n.sim.remove(n)
	repl := newNeuron(n.sim, c)
	if ok {
		c.placeNear(repl, p.X, p.Y)
	} else {
		c.placeRandom(repl)
	}
	return PeptideMBP, true
}
