package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChainSortsByPriority(t *testing.T) {
	routes := []Route{
		{Priority: 2, Provider: "openai", Model: "gpt-4o"},
		{Priority: 1, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		{Priority: 3, Provider: "openai", Model: "gpt-4o-mini", IsFallback: true},
	}

	chain := BuildChain(routes, "", "")

	require.Len(t, chain, 3)
	assert.Equal(t, "anthropic", chain[0].Provider)
	assert.Equal(t, "openai", chain[1].Provider)
	assert.Equal(t, "gpt-4o-mini", chain[2].Model)
}

func TestBuildChainPreservesOrderOnTies(t *testing.T) {
	routes := []Route{
		{Priority: 1, Provider: "a", Model: "m1"},
		{Priority: 1, Provider: "b", Model: "m2"},
		{Priority: 1, Provider: "c", Model: "m3"},
	}

	chain := BuildChain(routes, "", "")

	assert.Equal(t, "a", chain[0].Provider)
	assert.Equal(t, "b", chain[1].Provider)
	assert.Equal(t, "c", chain[2].Provider)
}

func TestBuildChainOverrideComesFirst(t *testing.T) {
	routes := []Route{
		{Priority: 1, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		{Priority: 2, Provider: "openai", Model: "gpt-4o"},
	}

	chain := BuildChain(routes, "openai", "gpt-4o-mini")

	require.Len(t, chain, 3)
	assert.Equal(t, "openai", chain[0].Provider)
	assert.Equal(t, "gpt-4o-mini", chain[0].Model)
	assert.False(t, chain[0].IsFallback)
}

func TestBuildChainOverrideRemovesDuplicate(t *testing.T) {
	routes := []Route{
		{Priority: 1, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		{Priority: 5, Provider: "openai", Model: "gpt-4o"},
	}

	chain := BuildChain(routes, "openai", "gpt-4o")

	require.Len(t, chain, 2)
	assert.Equal(t, "openai", chain[0].Provider)
	assert.Equal(t, "anthropic", chain[1].Provider)

	// No duplicate (provider, model) pair remains
	seen := map[[2]string]int{}
	for _, route := range chain {
		seen[[2]string{route.Provider, route.Model}]++
	}
	for pair, count := range seen {
		assert.Equal(t, 1, count, "duplicate route %v", pair)
	}
}

func TestBuildChainKeepsSameProviderDifferentModel(t *testing.T) {
	routes := []Route{
		{Priority: 1, Provider: "openai", Model: "gpt-4o"},
	}

	chain := BuildChain(routes, "openai", "gpt-4o-mini")

	require.Len(t, chain, 2)
	assert.Equal(t, "gpt-4o-mini", chain[0].Model)
	assert.Equal(t, "gpt-4o", chain[1].Model)
}

func TestBuildChainDoesNotMutateInput(t *testing.T) {
	routes := []Route{
		{Priority: 2, Provider: "b", Model: "m2"},
		{Priority: 1, Provider: "a", Model: "m1"},
	}

	BuildChain(routes, "", "")

	assert.Equal(t, "b", routes[0].Provider, "configured route list must not be reordered")
}
