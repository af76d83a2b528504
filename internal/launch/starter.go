// Package launch materializes a built pipeline graph by starting each
// stage's external process. It owns startup only: once a stage process is
// running, supervision belongs to the surrounding process manager.
package launch

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/camlaunchgo/internal/pipeline"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Starter starts a single pipeline stage.
type Starter interface {
	Start(ctx context.Context, spec pipeline.StageSpec) error
}

// StartError reports a stage that failed to start during materialization.
// Sibling stages that already started are not rolled back.
type StartError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *StartError) Error() string {
	return fmt.Sprintf("stage %q: StageStartFailure: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StartError) Unwrap() error {
	return e.Err
}

// defaultCommands maps each stage to the external binary it is launched
// with when the profile does not override the command.
var defaultCommands = map[string][]string{
	pipeline.StageCamera:  {"foscam-driver"},
	pipeline.StageDecoder: {"image-decoder"},
	pipeline.StageCrop:    {"image-cropper"},
	pipeline.StageRectify: {"image-rectifier"},
	pipeline.StageRelay:   {"topic-relay"},
}

// Argv renders the full command line for a stage: the stage command followed
// by its parameters and topic bindings. Parameter order is sorted for
// reproducible process invocations.
func Argv(spec pipeline.StageSpec) ([]string, error) {
	base := spec.Command
	if len(base) == 0 {
		base = defaultCommands[spec.Name]
	}
	if len(base) == 0 {
		return nil, fmt.Errorf("no command known for stage %q", spec.Name)
	}

	argv := append([]string{}, base...)

	keys := make([]string, 0, len(spec.Params))
	for k := range spec.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rendered, err := renderValue(spec.Params[k])
		if err != nil {
			return nil, fmt.Errorf("stage %q: param %q: %w", spec.Name, k, err)
		}
		argv = append(argv, "--param", k+"="+rendered)
	}

	if spec.ParamFile != "" {
		argv = append(argv, "--param-file", spec.ParamFile)
	}
	for _, in := range spec.Inputs {
		argv = append(argv, "--in", string(in.Role)+"="+in.Topic)
	}
	for _, out := range spec.Outputs {
		argv = append(argv, "--out", string(out.Role)+"="+out.Topic)
	}
	return argv, nil
}

// renderValue converts a cty parameter value to its command-line form.
func renderValue(v cty.Value) (string, error) {
	converted, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	if converted.IsNull() {
		return "", nil
	}
	return converted.AsString(), nil
}
