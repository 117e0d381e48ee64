package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torosent/crankplan/pkg/plan"
)

type celsius float64

func (c celsius) String() string { return "warm" }

func TestVarsSet(t *testing.T) {
	b, d := newBuilder(t)
	vars, err := b.Vars(nil)
	require.NoError(t, err)

	_, err = vars.Set(1, "v")
	require.Error(t, err)
	assert.ErrorIs(t, err, plan.ErrType)
	assert.Contains(t, err.Error(), "keys must be strings")
	assert.Zero(t, d.mutated)
	assert.Empty(t, vars.Values())

	withInt, err := vars.Set("k", 1)
	require.NoError(t, err)
	got, ok := withInt.Get("k")
	require.True(t, ok)
	assert.Equal(t, "1", got)

	withStringer, err := withInt.Set("temp", celsius(21.5))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"k": "1", "temp": "warm"}, withStringer.Values())

	assert.Equal(t, vars.ID(), withStringer.ID())
	_, ok = vars.Get("k")
	assert.False(t, ok, "original value must not change")
}

func TestVarsSeededInKeyOrder(t *testing.T) {
	b, _ := newBuilder(t)
	vars, err := b.Vars(map[string]any{"id2": "value2", "id1": "value1", "n": 3})
	require.NoError(t, err)

	assert.Equal(t, []plan.Mutation{
		plan.SetVar{Key: "id1", Value: "value1"},
		plan.SetVar{Key: "id2", Value: "value2"},
		plan.SetVar{Key: "n", Value: "3"},
	}, nativeOf(vars).mutations)
}

func TestResponseAssertionContainsSubstrings(t *testing.T) {
	b, _ := newBuilder(t)
	a, err := b.ResponseAssertion()
	require.NoError(t, err)

	withSubs, err := a.ContainsSubstrings("var", "args")
	require.NoError(t, err)
	assert.Equal(t, []plan.Mutation{plan.AddSubstrings{Substrings: []string{"var", "args"}}}, nativeOf(withSubs).mutations)

	_, err = a.ContainsSubstrings()
	assert.ErrorIs(t, err, plan.ErrInvalidArgument)
}

func TestJSONExtractor(t *testing.T) {
	b, _ := newBuilder(t)
	e, err := b.JSONExtractor("variable", "args.var")
	require.NoError(t, err)
	assert.Equal(t, plan.JSONExtractorArgs{Variable: "variable", Query: "args.var"}, nativeOf(e).args)

	jp, err := e.JSONPath()
	require.NoError(t, err)
	assert.Equal(t, []plan.Mutation{plan.SetQueryLanguage{Language: plan.QueryJSONPath}}, nativeOf(jp).mutations)

	_, err = b.JSONExtractor("", "args.var")
	assert.ErrorIs(t, err, plan.ErrInvalidArgument)
}
