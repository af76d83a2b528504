package params

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"gopkg.in/yaml.v3"
)

// Source identifies the layer a resolved value came from. Higher values
// take precedence during the merge.
type Source int

const (
	SourceDefaultFile Source = iota
	SourceOverrideFile
	SourceProfile
	SourceEnvironment
)

// String returns a human-readable source name for log output.
func (s Source) String() string {
	switch s {
	case SourceDefaultFile:
		return "default-file"
	case SourceOverrideFile:
		return "override-file"
	case SourceProfile:
		return "profile"
	case SourceEnvironment:
		return "environment"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Request carries everything Resolve needs for one stage. DefaultFile is
// required; the remaining inputs are optional layers that simply fall
// through when absent.
type Request struct {
	Stage         string
	Schema        Schema
	DefaultFile   string
	OverrideFile  string
	ProfileParams map[string]cty.Value
	EnvOverrides  map[string]string
}

// ResolvedConfig is the effective parameter set for one stage. It is
// immutable once returned by Resolve.
type ResolvedConfig struct {
	stage   string
	values  map[string]cty.Value
	sources map[string]Source
}

// Stage returns the stage the configuration belongs to.
func (c *ResolvedConfig) Stage() string {
	return c.stage
}

// Value returns the resolved value for key, if present.
func (c *ResolvedConfig) Value(key string) (cty.Value, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Source returns the layer that supplied the value for key, if present.
func (c *ResolvedConfig) Source(key string) (Source, bool) {
	s, ok := c.sources[key]
	return s, ok
}

// String returns the resolved value for key rendered as a string. Missing
// keys render as the empty string.
func (c *ResolvedConfig) String(key string) string {
	v, ok := c.values[key]
	if !ok {
		return ""
	}
	converted, err := convert.Convert(v, cty.String)
	if err != nil {
		return ""
	}
	return converted.AsString()
}

// Int returns the resolved value for key as an int64. Missing or
// non-numeric keys return zero; schema validation has already guaranteed
// typed access for required fields.
func (c *ResolvedConfig) Int(key string) int64 {
	v, ok := c.values[key]
	if !ok {
		return 0
	}
	converted, err := convert.Convert(v, cty.Number)
	if err != nil {
		return 0
	}
	n, _ := converted.AsBigFloat().Int64()
	return n
}

// Keys returns the resolved parameter names in sorted order.
func (c *ResolvedConfig) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns a copy of the resolved parameter map.
func (c *ResolvedConfig) Values() map[string]cty.Value {
	out := make(map[string]cty.Value, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// FromValues wraps an already-resolved value map in a ResolvedConfig. It is
// meant for callers that hold pre-resolved values (graph construction in
// isolation, tests); values adopted this way are attributed to the default
// file layer.
func FromValues(stage string, values map[string]cty.Value) *ResolvedConfig {
	cfg := &ResolvedConfig{
		stage:   stage,
		values:  make(map[string]cty.Value, len(values)),
		sources: make(map[string]Source, len(values)),
	}
	for k, v := range values {
		cfg.values[k] = v
		cfg.sources[k] = SourceDefaultFile
	}
	return cfg
}

// Resolve merges the configuration layers for one stage and validates the
// result against the stage schema. The default file must exist; every other
// layer is optional. See the package documentation for precedence rules.
func Resolve(ctx context.Context, req Request) (*ResolvedConfig, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving stage configuration.",
		"stage", req.Stage,
		"default_file", req.DefaultFile,
		"override_file", req.OverrideFile,
		"profile_params", len(req.ProfileParams),
		"env_overrides", len(req.EnvOverrides),
	)

	values := make(map[string]cty.Value)
	sources := make(map[string]Source)

	defaults, err := loadParamFile(req.Stage, req.DefaultFile, true)
	if err != nil {
		return nil, err
	}
	for k, v := range defaults {
		values[k] = v
		sources[k] = SourceDefaultFile
	}

	if req.OverrideFile != "" {
		overrides, err := loadParamFile(req.Stage, req.OverrideFile, false)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			values[k] = v
			sources[k] = SourceOverrideFile
		}
	}

	for k, v := range req.ProfileParams {
		values[k] = v
		sources[k] = SourceProfile
	}

	for k, v := range req.EnvOverrides {
		values[k] = cty.StringVal(v)
		sources[k] = SourceEnvironment
	}

	for _, field := range req.Schema.Fields {
		v, ok := values[field.Name]
		if !ok {
			return nil, &Error{Stage: req.Stage, Kind: ConfigIncomplete, Key: field.Name}
		}
		converted, err := convert.Convert(v, field.Type)
		if err != nil {
			return nil, &Error{Stage: req.Stage, Kind: ConfigIncomplete, Key: field.Name, Err: err}
		}
		values[field.Name] = converted
	}

	cfg := &ResolvedConfig{stage: req.Stage, values: values, sources: sources}
	for _, k := range cfg.Keys() {
		logger.Debug("Parameter resolved.", "stage", req.Stage, "key", k, "source", sources[k].String())
	}
	return cfg, nil
}

// loadParamFile reads a flat YAML parameter file into cty values. A missing
// required file is ConfigMissing; every other failure, including a missing
// explicitly-requested override file, is ConfigUnreadable.
func loadParamFile(stage, path string, required bool) (map[string]cty.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && required {
			return nil, &Error{Stage: stage, Kind: ConfigMissing, Path: path, Err: err}
		}
		return nil, &Error{Stage: stage, Kind: ConfigUnreadable, Path: path, Err: err}
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &Error{Stage: stage, Kind: ConfigUnreadable, Path: path, Err: err}
	}

	out := make(map[string]cty.Value, len(raw))
	for k, v := range raw {
		cv, err := scalarToCty(v)
		if err != nil {
			return nil, &Error{Stage: stage, Kind: ConfigUnreadable, Path: path, Key: k, Err: err}
		}
		out[k] = cv
	}
	return out, nil
}

// scalarToCty converts a decoded YAML scalar into a cty value. Parameter
// files are flat by contract; nested collections are rejected.
func scalarToCty(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.String), nil
	case bool:
		return cty.BoolVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case string:
		return cty.StringVal(val), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value of type %T; parameter files must be flat scalars", v)
	}
}
