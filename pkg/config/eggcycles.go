package config

import "sort"

// StepsPerCycle converts egg cycles to steps.
const StepsPerCycle = 256

// eggCycles maps national dex numbers to egg cycles for the species this bot
// is commonly run with. Unlisted species fall back to the engine default.
var eggCycles = map[uint16]uint8{
	1:   20, // Bulbasaur
	4:   20, // Charmander
	7:   20, // Squirtle
	25:  10, // Pikachu
	37:  20, // Vulpix
	58:  20, // Growlithe
	63:  20, // Abra
	66:  20, // Machop
	92:  20, // Gastly
	104: 20, // Cubone
	129: 5,  // Magikarp
	131: 40, // Lapras
	133: 35, // Eevee
	143: 40, // Snorlax
	147: 40, // Dratini
	172: 10, // Pichu
	175: 10, // Togepi
	246: 40, // Larvitar
	280: 20, // Ralts
	333: 20, // Swablu
	371: 40, // Bagon
	374: 40, // Beldum
	443: 40, // Gible
	447: 25, // Riolu
	610: 40, // Axew
	633: 40, // Deino
	704: 40, // Goomy
	782: 40, // Jangmo-o
	810: 20, // Grookey
	813: 20, // Scorbunny
	816: 20, // Sobble
	819: 20, // Skwovet
	837: 15, // Rolycoly
	840: 20, // Applin
	848: 25, // Toxel
	854: 20, // Sinistea
	859: 20, // Impidimp
	868: 20, // Milcery
	874: 25, // Stonjourner
	878: 25, // Cufant
	884: 30, // Duraludon
	885: 40, // Dreepy
}

// EggSteps returns the hatch step count for a species.
func EggSteps(species uint16) (uint16, bool) {
	cycles, ok := eggCycles[species]
	if !ok {
		return 0, false
	}
	return uint16(cycles) * StepsPerCycle, true
}

// KnownSpecies returns the dex numbers with a known cycle count, ascending.
func KnownSpecies() []uint16 {
	species := make([]uint16, 0, len(eggCycles))
	for n := range eggCycles {
		species = append(species, n)
	}
	sort.Slice(species, func(i, j int) bool { return species[i] < species[j] })
	return species
}
