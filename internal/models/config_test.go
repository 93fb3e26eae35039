package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionNormalizesNestedMaps(t *testing.T) {
	cfg := RunConfig{"generator_params": map[string]any{"batch_size": 5}}

	gen, err := cfg.Generator()
	require.NoError(t, err)
	gen["type"] = TypeGenerator

	_, isParams := cfg["generator_params"].(Params)
	assert.True(t, isParams)
	again, err := cfg.Generator()
	require.NoError(t, err)
	assert.Equal(t, TypeGenerator, again["type"])
}

func TestSectionErrors(t *testing.T) {
	cfg := RunConfig{"finetuning_params": "nope"}

	_, err := cfg.Finetuning()
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = cfg.TestGenerator()
	assert.ErrorIs(t, err, ErrMissingKey)

	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "test_generator_params", keyErr.Key)
}

func TestParamsInt(t *testing.T) {
	p := Params{
		"int":      5,
		"int64":    int64(6),
		"float":    7.0,
		"fraction": 7.5,
		"number":   json.Number("8"),
		"string":   "9",
	}

	for key, want := range map[string]int{"int": 5, "int64": 6, "float": 7, "number": 8} {
		got, err := p.Int(key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}

	_, err := p.Int("fraction")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = p.Int("string")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = p.Int("missing")
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestParamsOrDefaults(t *testing.T) {
	p := Params{"pre_frame": 3, "randomize": false, "name": "x"}

	n, err := p.IntOr("pre_frame", 30)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = p.IntOr("post_frame", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	b, err := p.BoolOr("randomize", true)
	require.NoError(t, err)
	assert.False(t, b)

	s, err := p.StringOr("loss", "mean_absolute_error")
	require.NoError(t, err)
	assert.Equal(t, "mean_absolute_error", s)

	_, err = p.BoolOr("name", true)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestParamsFloat(t *testing.T) {
	p := Params{"a": json.Number("0.25"), "b": 2}

	f, err := p.Float("a")
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)
	f, err = p.Float("b")
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)
}

func TestSetDefault(t *testing.T) {
	p := Params{"model_string": "custom"}
	p.SetDefault("model_string", "")
	p.SetDefault("multi_gpus", false)

	assert.Equal(t, "custom", p["model_string"])
	assert.Equal(t, false, p["multi_gpus"])
}

func TestFlatten(t *testing.T) {
	p := Params{
		"loss":    "mean_absolute_error",
		"nb_gpus": 2,
		"nested":  map[string]any{"lr": 0.001},
		"frames":  []any{1, 2},
	}

	assert.Equal(t, []Parameter{
		{Key: "frames", Value: "[1,2]"},
		{Key: "loss", Value: "mean_absolute_error"},
		{Key: "nb_gpus", Value: "2"},
		{Key: "nested.lr", Value: "0.001"},
	}, p.Flatten())
}

func TestHistoryMetrics(t *testing.T) {
	h := &History{Epochs: []EpochMetrics{{Epoch: 0, Loss: 1, ValLoss: 2}, {Epoch: 1, Loss: 0.5, ValLoss: 1.5}}}

	metrics := h.Metrics()
	require.Len(t, metrics, 4)
	assert.Equal(t, "val_loss", metrics[3].Key)
	assert.Equal(t, int64(1), metrics[3].Step)
	assert.Equal(t, 1.5, metrics[3].Value)

	var nilHistory *History
	assert.Nil(t, nilHistory.Metrics())
}
