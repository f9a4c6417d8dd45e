// Package showdown implements the Elemental Showdown match engine: a
// two-player simultaneous-reveal contest resolved by an ordered list of
// elemental reaction rules.
package showdown

import (
	"errors"
	"fmt"
)

// Element is one of the seven playable elements.
type Element string

// Playable elements.
const (
	Pyro    Element = "Pyro"
	Hydro   Element = "Hydro"
	Cryo    Element = "Cryo"
	Electro Element = "Electro"
	Anemo   Element = "Anemo"
	Geo     Element = "Geo"
	Dendro  Element = "Dendro"
)

// ErrUnknownElement is returned when parsing an unrecognized element name.
var ErrUnknownElement = errors.New("unknown element")

// Elements returns all playable elements in presentation order.
func Elements() []Element {
	return []Element{Pyro, Hydro, Cryo, Electro, Anemo, Geo, Dendro}
}

// ParseElement parses an element name as delivered in component values.
func ParseElement(s string) (Element, error) {
	for _, e := range Elements() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownElement, s)
}

// Side identifies a player slot in a match.
type Side int

// Side values. SideNone means no winner / no owner.
const (
	SideNone Side = iota
	SideA
	SideB
)

// Other returns the opposing side.
func (s Side) Other() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	default:
		return SideNone
	}
}

// Core is a Dendro Core left on the field by a Bloom reaction. It lives
// for exactly one round boundary and changes how the next round resolves.
type Core struct {
	Owner Side
}

// Outcome is the resolution of a single round.
type Outcome struct {
	Winner  Side
	Bonus   int
	Label   string
	NewCore *Core
}

// Round result labels.
const (
	LabelHyperbloom     = "Hyperbloom!"
	LabelBurgeon        = "Burgeon!"
	LabelCoreOpponent   = "Opponent triggered the core!"
	LabelCoreFizzle     = "Fizzle! The Dendro Core fades away."
	LabelCoreFade       = "The Dendro Core was not triggered and fades away."
	LabelElectroCharged = "Electro-Charged! It's a tie!"
	LabelOverloaded     = "Overloaded!"
	LabelSuperconduct   = "Superconduct!"
	LabelSwirl          = "Swirl! The round is a tie."
	LabelCrystallize    = "Crystallize! The round is a push."
	LabelQuicken        = "Quicken! The round is a tie."
	LabelNoReaction     = "No reaction! The round is a tie."
	LabelBurning        = "Burning!"
	LabelBloom          = "Bloom! A Dendro Core was created."
	LabelSameElement    = "Both players chose the same element! It's a tie."
)

// isCoreTrigger reports whether an element detonates a Dendro Core.
func isCoreTrigger(e Element) bool {
	return e == Electro || e == Pyro
}

// coreTriggerLabel names the reaction a trigger element produces on a core.
func coreTriggerLabel(e Element) string {
	if e == Electro {
		return LabelHyperbloom
	}
	return LabelBurgeon
}

// beats encodes the three-element dominance cycle: Pyro melts Cryo,
// Cryo freezes Hydro, Hydro vaporizes Pyro.
var beats = map[Element]Element{
	Pyro:  Cryo,
	Cryo:  Hydro,
	Hydro: Pyro,
}

// rule is one entry of the ordered normal-mode rule list. Rules are
// evaluated in sequence and the first applicable rule decides the round
// exclusively; the list is a priority order, not a symmetric table.
type rule struct {
	name    string
	applies func(a, b Element) bool
	outcome func(a, b Element) Outcome
}

// oneSide returns the side playing want when the other side plays one of
// the others, or SideNone when the pairing does not occur.
func oneSide(a, b, want Element, others ...Element) Side {
	match := func(x, y Element) bool {
		if x != want {
			return false
		}
		for _, o := range others {
			if y == o {
				return true
			}
		}
		return false
	}
	if match(a, b) {
		return SideA
	}
	if match(b, a) {
		return SideB
	}
	return SideNone
}

var normalRules = []rule{
	{
		name: "cycle",
		applies: func(a, b Element) bool {
			return beats[a] == b || beats[b] == a
		},
		outcome: func(a, b Element) Outcome {
			if beats[a] == b {
				return Outcome{Winner: SideA}
			}
			return Outcome{Winner: SideB}
		},
	},
	{
		name: "electro",
		applies: func(a, b Element) bool {
			return oneSide(a, b, Electro, Hydro, Pyro, Cryo) != SideNone
		},
		outcome: func(a, b Element) Outcome {
			side := oneSide(a, b, Electro, Hydro, Pyro, Cryo)
			other := a
			if side == SideA {
				other = b
			}
			switch other {
			case Hydro:
				return Outcome{Label: LabelElectroCharged}
			case Pyro:
				return Outcome{Winner: side, Bonus: 1, Label: LabelOverloaded}
			default: // Cryo
				return Outcome{Winner: side, Bonus: 1, Label: LabelSuperconduct}
			}
		},
	},
	{
		name: "anemo",
		applies: func(a, b Element) bool {
			return a == Anemo || b == Anemo
		},
		outcome: func(a, b Element) Outcome {
			return Outcome{Label: LabelSwirl}
		},
	},
	{
		name: "geo",
		applies: func(a, b Element) bool {
			return a == Geo || b == Geo
		},
		outcome: func(a, b Element) Outcome {
			return Outcome{Label: LabelCrystallize}
		},
	},
	{
		name: "dendro",
		applies: func(a, b Element) bool {
			return (a == Dendro || b == Dendro) && a != b
		},
		outcome: func(a, b Element) Outcome {
			dendroSide := SideA
			other := b
			if b == Dendro {
				dendroSide = SideB
				other = a
			}
			switch other {
			case Electro:
				return Outcome{Label: LabelQuicken}
			case Cryo:
				return Outcome{Label: LabelNoReaction}
			case Pyro:
				return Outcome{Winner: dendroSide.Other(), Label: LabelBurning}
			default: // Hydro
				return Outcome{Label: LabelBloom, NewCore: &Core{Owner: dendroSide}}
			}
		},
	},
	{
		name: "same",
		applies: func(a, b Element) bool {
			return a == b
		},
		outcome: func(a, b Element) Outcome {
			return Outcome{Label: LabelSameElement}
		},
	},
}

// Resolve determines the outcome of a round given both moves and the
// field state. When a core is active the core rules apply and the core is
// always consumed, whether or not it triggered; NewCore is only ever set
// by a Bloom in normal mode.
func Resolve(a, b Element, core *Core) Outcome {
	if core != nil {
		return resolveCore(a, b, core)
	}
	for _, r := range normalRules {
		if r.applies(a, b) {
			return r.outcome(a, b)
		}
	}
	// Unreachable: the rule list is exhaustive over element pairs.
	return Outcome{Label: LabelSameElement}
}

// resolveCore resolves a round while a Dendro Core is on the field. Each
// side is judged by its own move: the owner detonating wins big, the
// opponent detonating steals a smaller reward, matching moves fizzle.
func resolveCore(a, b Element, core *Core) Outcome {
	if a == b {
		return Outcome{Label: LabelCoreFizzle}
	}

	ownerMove, otherMove := a, b
	if core.Owner == SideB {
		ownerMove, otherMove = b, a
	}

	if isCoreTrigger(ownerMove) {
		return Outcome{Winner: core.Owner, Bonus: 2, Label: coreTriggerLabel(ownerMove)}
	}
	if isCoreTrigger(otherMove) {
		return Outcome{Winner: core.Owner.Other(), Bonus: 1, Label: LabelCoreOpponent}
	}
	return Outcome{Label: LabelCoreFade}
}
