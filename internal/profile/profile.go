// Package profile loads the optional HCL launch profile.
//
// A profile is the declarative counterpart of the environment variables: it
// can toggle optional stages, supply inline parameter overrides, point a
// stage at an override parameter file, remap input topics, and replace the
// command a stage is launched with. Environment variables still win over
// profile values wherever both are present.
package profile

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/vk/camlaunchgo/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
)

// stageBlock is the raw HCL shape of a `stage` block.
type stageBlock struct {
	Name      string            `hcl:"name,label"`
	Enabled   *bool             `hcl:"enabled,optional"`
	ParamFile string            `hcl:"param_file,optional"`
	Params    hcl.Expression    `hcl:"params,optional"`
	Remap     map[string]string `hcl:"remap,optional"`
	Command   []string          `hcl:"command,optional"`
}

// fileRoot is the top-level HCL shape of a profile file.
type fileRoot struct {
	CameraName string        `hcl:"camera_name,optional"`
	Stages     []*stageBlock `hcl:"stage,block"`
}

// Stage holds the profile's overrides for a single pipeline stage. A nil
// Enabled means the profile does not touch the stage's enable flag.
type Stage struct {
	Enabled   *bool
	ParamFile string
	Params    map[string]cty.Value
	Remap     map[pipeline.Role]string
	Command   []string
}

// Profile is a fully decoded launch profile. The zero value (and a nil
// pointer) behave as an empty profile.
type Profile struct {
	CameraName string
	stages     map[string]Stage
}

// Stage returns the overrides for a named stage. Missing stages return the
// zero Stage, so callers never nil-check.
func (p *Profile) Stage(name string) Stage {
	if p == nil {
		return Stage{}
	}
	return p.stages[name]
}

// Remaps collects every input topic remapping, keyed by stage name.
func (p *Profile) Remaps() map[string]map[pipeline.Role]string {
	if p == nil {
		return nil
	}
	out := make(map[string]map[pipeline.Role]string)
	for name, s := range p.stages {
		if len(s.Remap) > 0 {
			out[name] = s.Remap
		}
	}
	return out
}

// Commands collects every stage command override, keyed by stage name.
func (p *Profile) Commands() map[string][]string {
	if p == nil {
		return nil
	}
	out := make(map[string][]string)
	for name, s := range p.stages {
		if len(s.Command) > 0 {
			out[name] = s.Command
		}
	}
	return out
}

// Load parses and validates a profile file. Unknown stage labels and unknown
// remap roles are rejected at load time, before anything is resolved.
func Load(ctx context.Context, path string) (*Profile, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading launch profile.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode profile %s: %w", path, diags)
	}

	known := make(map[string]struct{})
	for _, name := range pipeline.StageNames() {
		known[name] = struct{}{}
	}

	p := &Profile{
		CameraName: root.CameraName,
		stages:     make(map[string]Stage, len(root.Stages)),
	}
	for _, block := range root.Stages {
		if _, ok := known[block.Name]; !ok {
			return nil, fmt.Errorf("profile %s: unknown stage %q", path, block.Name)
		}
		if _, dup := p.stages[block.Name]; dup {
			return nil, fmt.Errorf("profile %s: duplicate stage block %q", path, block.Name)
		}

		stage := Stage{
			Enabled:   block.Enabled,
			ParamFile: block.ParamFile,
			Command:   block.Command,
		}

		if block.Params != nil {
			values, err := decodeParams(block.Params)
			if err != nil {
				return nil, fmt.Errorf("profile %s: stage %q: %w", path, block.Name, err)
			}
			stage.Params = values
		}

		if len(block.Remap) > 0 {
			stage.Remap = make(map[pipeline.Role]string, len(block.Remap))
			for role, topic := range block.Remap {
				switch pipeline.Role(role) {
				case pipeline.RoleImage, pipeline.RoleCameraInfo:
					stage.Remap[pipeline.Role(role)] = topic
				default:
					return nil, fmt.Errorf("profile %s: stage %q: unknown remap role %q", path, block.Name, role)
				}
			}
		}

		p.stages[block.Name] = stage
	}

	logger.Debug("Launch profile loaded.", "path", path, "stage_blocks", len(p.stages))
	return p, nil
}

// decodeParams evaluates a `params = { ... }` expression into a flat cty
// value map.
func decodeParams(expr hcl.Expression) (map[string]cty.Value, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate params: %w", diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", val.Type().FriendlyName())
	}
	return val.AsValueMap(), nil
}
