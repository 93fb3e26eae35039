package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrMissingKey = errors.New("missing key")
	ErrWrongType  = errors.New("wrong type")
)

// Top-level keys of a run configuration document.
const (
	KeyRunUID              = "run_uid"
	KeyOutputFullArgs      = "output_full_args"
	KeyFinetuningParams    = "finetuning_params"
	KeyGeneratorParams     = "generator_params"
	KeyTestGeneratorParams = "test_generator_params"
)

// Discriminator values written to the "type" key of each section.
const (
	TypeGenerator = "generator"
	TypeTrainer   = "trainer"
)

// KeyError reports a key that is absent from a configuration section, or
// present with a value of the wrong type.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %q", e.Err, e.Key)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// RunConfig is the fine-tuning run document. Unknown keys are kept so that
// everything the downstream components read survives serialization.
type RunConfig map[string]any

// Params is one section of a RunConfig, such as finetuning_params.
type Params map[string]any

func (c RunConfig) RunUID() (string, error) {
	return Params(c).String(KeyRunUID)
}

func (c RunConfig) OutputFullArgs() (bool, error) {
	return Params(c).Bool(KeyOutputFullArgs)
}

// Section returns the named sub-object. The returned Params shares storage
// with c, so writes through it are visible in the document.
func (c RunConfig) Section(name string) (Params, error) {
	v, ok := c[name]
	if !ok {
		return nil, &KeyError{Key: name, Err: ErrMissingKey}
	}
	switch s := v.(type) {
	case Params:
		return s, nil
	case map[string]any:
		// normalize so later lookups hit the first case
		c[name] = Params(s)
		return Params(s), nil
	default:
		return nil, &KeyError{Key: name, Err: ErrWrongType}
	}
}

func (c RunConfig) Finetuning() (Params, error) {
	return c.Section(KeyFinetuningParams)
}

func (c RunConfig) Generator() (Params, error) {
	return c.Section(KeyGeneratorParams)
}

func (c RunConfig) TestGenerator() (Params, error) {
	return c.Section(KeyTestGeneratorParams)
}

// Lookup returns the raw value stored under key.
func (p Params) Lookup(key string) (any, error) {
	v, ok := p[key]
	if !ok {
		return nil, &KeyError{Key: key, Err: ErrMissingKey}
	}
	return v, nil
}

func (p Params) String(key string) (string, error) {
	v, err := p.Lookup(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &KeyError{Key: key, Err: ErrWrongType}
	}
	return s, nil
}

func (p Params) Bool(key string) (bool, error) {
	v, err := p.Lookup(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, &KeyError{Key: key, Err: ErrWrongType}
	}
	return b, nil
}

// Int accepts the integer representations produced by the JSON and YAML
// decoders.
func (p Params) Int(key string) (int, error) {
	v, err := p.Lookup(key)
	if err != nil {
		return 0, err
	}
	n, ok := toInt(v)
	if !ok {
		return 0, &KeyError{Key: key, Err: ErrWrongType}
	}
	return n, nil
}

func (p Params) Float(key string) (float64, error) {
	v, err := p.Lookup(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, &KeyError{Key: key, Err: ErrWrongType}
		}
		return f, nil
	}
	return 0, &KeyError{Key: key, Err: ErrWrongType}
}

// IntOr returns the integer under key, or def when the key is absent.
func (p Params) IntOr(key string, def int) (int, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Int(key)
}

func (p Params) BoolOr(key string, def bool) (bool, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Bool(key)
}

func (p Params) StringOr(key string, def string) (string, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.String(key)
}

// SetDefault stores value under key unless the key is already present.
func (p Params) SetDefault(key string, value any) {
	if _, ok := p[key]; !ok {
		p[key] = value
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}
