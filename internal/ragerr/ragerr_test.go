package ragerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	err := Wrap(New(KindCorruptEmbeddings, "bad magic"), "reindex domain a")
	assert.ErrorIs(t, err, CorruptEmbeddings)
	assert.NotErrorIs(t, err, Orphan)
}

func TestKindOf(t *testing.T) {
	err := Wrapf(New(KindTimeout, "embedding call"), "search: %s", "hybrid")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindTimeout, kind)
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(assert.AnError)
	assert.False(t, ok)
}
