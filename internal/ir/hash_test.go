package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIDDeterministic(t *testing.T) {
	k := DefKey{Repo: "A", Rev: "r1", Def: "d1"}

	id1 := KeyID(k)
	id2 := KeyID(k)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestKeyIDDistinguishesFields(t *testing.T) {
	a := KeyID(DefKey{Repo: "A", Rev: "r1", Def: "d1"})
	b := KeyID(DefKey{Repo: "A", Rev: "r1d", Def: "1"})
	c := KeyID(DefKey{Repo: "A:", Rev: "r1", Def: "d1"})

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestKeyIDKeepsNormalizationForms(t *testing.T) {
	nfc := KeyID(DefKey{Repo: "r", Rev: "v", Def: "caf\u00e9"})
	nfd := KeyID(DefKey{Repo: "r", Rev: "v", Def: "cafe\u0301"})

	assert.NotEqual(t, nfc, nfd)
}
