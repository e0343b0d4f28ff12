package testutils

import "github.com/argus-labs/oracle-feeder/pkg/assert"

// Gen enumerates every combination of the choices a test makes through it:
//
//	for g := testutils.NewGen(); !g.Done(); {
//		behaviour := testutils.Pick(g, behaviours)
//		delay := g.Intn(3)
//		...
//	}
//
// It works like an odometer whose digits are discovered while it runs. Each pass replays the
// previous pass and advances the last choice that still has room, resetting the choices after it.
// Choices may depend on earlier ones, as long as the same prefix always asks for the same bounds.
type Gen struct {
	started bool
	digits  []digit
	pos     int
}

type digit struct {
	value int
	bound int // inclusive
}

func NewGen() *Gen {
	return &Gen{}
}

// Done advances to the next combination and reports whether all of them have been produced.
func (g *Gen) Done() bool {
	if !g.started {
		g.started = true
		return false
	}
	for i := len(g.digits) - 1; i >= 0; i-- {
		if g.digits[i].value < g.digits[i].bound {
			g.digits[i].value++
			g.digits = g.digits[:i+1]
			g.pos = 0
			return false
		}
	}
	return true
}

func (g *Gen) choose(bound int) int {
	assert.That(bound >= 0, "exhaustigen: negative bound %d", bound)
	if g.pos == len(g.digits) {
		g.digits = append(g.digits, digit{})
	}
	d := &g.digits[g.pos]
	d.bound = bound
	g.pos++
	assert.That(d.value <= bound, "exhaustigen: bound shrank from a previous pass")
	return d.value
}

// Intn returns an int in [0, bound].
func (g *Gen) Intn(bound int) int {
	return g.choose(bound)
}

// Index returns every valid index of a slice of the given length.
func (g *Gen) Index(length int) int {
	assert.That(length > 0, "exhaustigen: empty slice")
	return g.choose(length - 1)
}

// Pick returns every element of slice.
func Pick[T any](g *Gen, slice []T) T {
	return slice[g.Index(len(slice))]
}
