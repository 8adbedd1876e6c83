package world

import "math"

// Kind tags the variant of an entity.
type Kind uint8

const (
	KindShip Kind = iota
	KindBullet
	KindAsteroid
	KindPlanetoid
	numKinds
)

// kindTraits holds the per-variant constants.
type kindTraits struct {
	name      string
	minRadius float64 // km
	density   float64 // kg/km³; a minimum for ships, exact for the rest
}

var traits = [numKinds]kindTraits{
	KindShip:      {name: "ship", minRadius: 10, density: 1.42e12},
	KindBullet:    {name: "bullet", minRadius: 1, density: 7.8e12},
	KindAsteroid:  {name: "asteroid", minRadius: 5, density: 2.65e12},
	KindPlanetoid: {name: "planetoid", minRadius: 5, density: 0.917e12},
}

func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return traits[k].name
}

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool { return k < numKinds }

// MinRadius returns the smallest radius a body of this kind may have.
func (k Kind) MinRadius() float64 { return traits[k].minRadius }

// Density returns the kind's density in kg/km³.
func (k Kind) Density() float64 { return traits[k].density }

// IsMinorPlanet reports whether k is an asteroid or a planetoid.
func (k Kind) IsMinorPlanet() bool {
	return k == KindAsteroid || k == KindPlanetoid
}

// ParseKind maps a kind name back to its tag.
func ParseKind(name string) (Kind, bool) {
	for k := Kind(0); k < numKinds; k++ {
		if traits[k].name == name {
			return k, true
		}
	}
	return 0, false
}

// massFor returns density·(4/3)πr³ for the kind.
func massFor(k Kind, radius float64) float64 {
	return k.Density() * 4.0 / 3.0 * math.Pi * radius * radius * radius
}

// pair is an unordered kind pair with a ≤ b.
type pair struct {
	a, b Kind
}

func pairOf(a, b Kind) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}
