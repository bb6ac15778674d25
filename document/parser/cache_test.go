package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/speclint/document"
)

func TestCacheReturnsSameTree(t *testing.T) {
	cache, err := NewCache(New(), 8)
	require.NoError(t, err)

	a, err := cache.Parse(sampleRequirements, document.LanguageJapanese, document.KindRequirements)
	require.NoError(t, err)
	b, err := cache.Parse(sampleRequirements, document.LanguageJapanese, document.KindRequirements)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheKeysOnContentLanguageKind(t *testing.T) {
	cache, err := NewCache(New(), 8)
	require.NoError(t, err)

	_, err = cache.Parse(sampleRequirements, document.LanguageJapanese, document.KindRequirements)
	require.NoError(t, err)
	_, err = cache.Parse(sampleRequirements, document.LanguageEnglish, document.KindRequirements)
	require.NoError(t, err)
	_, err = cache.Parse(sampleTasks, document.LanguageJapanese, document.KindTasks)
	require.NoError(t, err)

	assert.Equal(t, 3, cache.Len())
}

func TestCacheSharesAutoDetectedEntry(t *testing.T) {
	cache, err := NewCache(New(), 8)
	require.NoError(t, err)

	a, err := cache.Parse(sampleRequirements, document.LanguageAuto, document.KindRequirements)
	require.NoError(t, err)
	b, err := cache.Parse(sampleRequirements, document.LanguageJapanese, document.KindRequirements)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, cache.Len())
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	cache, err := NewCache(New(), 8)
	require.NoError(t, err)

	_, err = cache.Parse("", document.LanguageJapanese, document.KindRequirements)
	require.ErrorIs(t, err, ErrNoDocument)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheEvicts(t *testing.T) {
	cache, err := NewCache(New(), 1)
	require.NoError(t, err)

	_, err = cache.Parse(sampleRequirements, document.LanguageJapanese, document.KindRequirements)
	require.NoError(t, err)
	_, err = cache.Parse(sampleTasks, document.LanguageJapanese, document.KindTasks)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}
