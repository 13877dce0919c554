// Package lifecycle is the maturity state machine shared by every T cell
// species, plus the timer, interval sampling and binding primitives that the
// antigen presenting cells use as well.
package lifecycle

// Maturity only ever moves forward: Naive, Partial, Proliferating, Effector, Apoptotic.
type Maturity int

const (
	Naive Maturity = iota
	Partial
	Proliferating
	Effector
	Apoptotic
)

var maturityNames = [...]string{"naive", "partial", "proliferating", "effector", "apoptotic"}

func (m Maturity) String() string {
	if m < Naive || m > Apoptotic {
		return "unknown"
	}
	return maturityNames[m]
}

// Maturities lists every state in forward order.
func Maturities() []Maturity {
	return []Maturity{Naive, Partial, Proliferating, Effector, Apoptotic}
}

// Cause records why a cell became apoptotic.
type Cause int

const (
	CauseNone Cause = iota
	CauseNeglect
	CauseAICD
	CauseKilled
	CausePhagocytosed
	NumCauses
)

func (c Cause) String() string {
	switch c {
	case CauseNeglect:
		return "neglect"
	case CauseAICD:
		return "aicd"
	case CauseKilled:
		return "killed"
	case CausePhagocytosed:
		return "phagocytosed"
	default:
		return "none"
	}
}
