package engine

import (
	"github.com/tuffrabit/tinygo-eggbot-rp2040/pkg/config"
)

// Egg step to tick conversion, fitted against real hatch times.
const (
	ticksPerStep = 1.046
	ticksOffset  = 32.583
)

// saveRules decides per policy whether to save given the boxes left after the
// one just finished. Unknown policies never save.
var saveRules = [...]func(boxesLeft int) bool{
	config.SaveNever:         func(int) bool { return false },
	config.SaveAlways:        func(int) bool { return true },
	config.SaveWhenExhausted: func(boxesLeft int) bool { return boxesLeft <= 0 },
}

// AfterBox picks the state that follows a finished box, and whether it starts
// a new round.
func AfterBox(policy config.SavePolicy, boxesLeft int) (State, bool) {
	if int(policy) < len(saveRules) && saveRules[policy](boxesLeft) {
		return Save, false
	}
	if boxesLeft > 0 {
		return FlyToNursery, true
	}
	return Sleep, false
}

// TicksForSteps converts hatch steps to circling ticks. Flame Body halves the
// steps before conversion. The result is truncated.
func TicksForSteps(steps uint16, flameBody bool) int {
	if flameBody {
		steps /= 2
	}
	return int(ticksPerStep*float64(steps) - ticksOffset)
}

// BreedingDuration returns the circling threshold for a species, or
// DefaultBreedingDuration if its cycle count is unknown.
func BreedingDuration(species uint16, flameBody bool) int {
	steps, ok := config.EggSteps(species)
	if !ok {
		return DefaultBreedingDuration
	}
	return TicksForSteps(steps, flameBody)
}
