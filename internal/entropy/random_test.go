package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededIsReproducible(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float(), b.Float())
		assert.Equal(t, a.Intn(10), b.Intn(10))
	}

	c := NewSeeded(43)
	diverged := false
	d := NewSeeded(42)
	for i := 0; i < 100; i++ {
		if c.Float() != d.Float() {
			diverged = true
			break
		}
	}
	assert.True(t, diverged)
}

func TestSeededBounds(t *testing.T) {
	s := NewSeeded(7)
	for i := 0; i < 1000; i++ {
		f := s.Float()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)

		n := s.Intn(4)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 4)
	}
}

func TestScriptedWraps(t *testing.T) {
	s := NewScripted(0.1, 0.5, 0.9)

	assert.Equal(t, 0.1, s.Float())
	assert.Equal(t, 0.5, s.Float())
	assert.Equal(t, 0.9, s.Float())
	assert.Equal(t, 0.1, s.Float())
}

func TestScriptedIntn(t *testing.T) {
	s := NewScripted(0.0, 0.5, 0.99)

	assert.Equal(t, 0, s.Intn(4))
	assert.Equal(t, 2, s.Intn(4))
	assert.Equal(t, 3, s.Intn(4))

	assert.Equal(t, 0, s.Intn(0))
}

func TestScriptedPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { NewScripted() })
}

func TestCryptoBounds(t *testing.T) {
	var c Crypto
	for i := 0; i < 100; i++ {
		f := c.Float()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)

		n := c.Intn(3)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 3)
	}
}
