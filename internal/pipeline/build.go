package pipeline

import (
	"context"
	"fmt"
	"path"

	"github.com/vk/camlaunchgo/internal/calibration"
	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/vk/camlaunchgo/internal/params"
	"github.com/zclconf/go-cty/cty"
)

// stageDef is the static shape of one stage: the roles it consumes, the
// topics it produces (as suffixes under the camera namespace), and whether
// it can be disabled.
type stageDef struct {
	name     string
	consumes []Role
	produces []TopicBinding // Topic holds the namespace-relative suffix
	optional bool
}

// stageOrder is the fixed topological order of the pipeline. Optional stages
// may be skipped but never reordered.
var stageOrder = []stageDef{
	{
		name: StageCamera,
		produces: []TopicBinding{
			{Role: RoleImage, Topic: "image/compressed"},
			{Role: RoleCameraInfo, Topic: "camera_info"},
		},
	},
	{
		name:     StageDecoder,
		consumes: []Role{RoleImage},
		produces: []TopicBinding{
			{Role: RoleImage, Topic: "image/raw"},
		},
		optional: true,
	},
	{
		name:     StageCrop,
		consumes: []Role{RoleImage, RoleCameraInfo},
		produces: []TopicBinding{
			{Role: RoleImage, Topic: "image/cropped"},
			{Role: RoleCameraInfo, Topic: "camera_info/cropped"},
		},
	},
	{
		name:     StageRectify,
		consumes: []Role{RoleImage, RoleCameraInfo},
		produces: []TopicBinding{
			{Role: RoleImage, Topic: "image/rect"},
		},
		optional: true,
	},
	{
		name:     StageRelay,
		consumes: []Role{RoleCameraInfo},
		produces: []TopicBinding{
			{Role: RoleCameraInfo, Topic: "camera_info/rect"},
		},
		optional: true,
	},
}

// Input carries everything Build needs. Configs maps stage name to its
// resolved configuration; ParamFiles records the file each configuration was
// loaded from. Remaps and Commands are per-stage overrides from the launch
// profile and may be nil.
type Input struct {
	CameraName  string
	Flags       Flags
	Configs     map[string]*params.ResolvedConfig
	ParamFiles  map[string]string
	Calibration *calibration.CameraInfo
	Remaps      map[string]map[Role]string
	Commands    map[string][]string
}

// Build constructs the pipeline graph. It is a pure function: no stage is
// started and no file is read here. The returned graph contains only enabled
// stages, already wired together.
func Build(ctx context.Context, in Input) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	flags := in.Flags.normalize()

	enabled := map[string]bool{
		StageCamera:  true,
		StageDecoder: flags.Decoder,
		StageCrop:    true,
		StageRectify: flags.Rectify,
		StageRelay:   flags.Relay,
	}
	logger.Debug("Building pipeline graph.",
		"camera", in.CameraName,
		"decoder", flags.Decoder,
		"rectify", flags.Rectify,
		"relay", flags.Relay,
	)

	namespace := "/" + in.CameraName
	lastOutput := make(map[Role]TopicBinding)

	var stages []StageSpec
	for _, def := range stageOrder {
		if !enabled[def.name] {
			continue
		}

		spec := StageSpec{
			Name:      def.name,
			ParamFile: in.ParamFiles[def.name],
			Command:   in.Commands[def.name],
		}

		// Bind inputs to the nearest enabled upstream producer, unless the
		// profile remapped the topic explicitly.
		for _, role := range def.consumes {
			binding, ok := lastOutput[role]
			if !ok {
				return nil, fmt.Errorf("stage %q: no upstream producer for role %q", def.name, role)
			}
			if remap, ok := in.Remaps[def.name][role]; ok {
				binding = TopicBinding{Role: role, Topic: remap}
			}
			spec.Inputs = append(spec.Inputs, binding)
		}

		for _, out := range def.produces {
			binding := TopicBinding{Role: out.Role, Topic: path.Join(namespace, out.Topic)}
			spec.Outputs = append(spec.Outputs, binding)
			lastOutput[out.Role] = binding
		}

		p, err := stageParams(ctx, def.name, in)
		if err != nil {
			return nil, err
		}
		spec.Params = p

		stages = append(stages, spec)
	}

	if err := detectCycles(stages); err != nil {
		return nil, err
	}

	graph := &Graph{Stages: stages, Enabled: enabled}
	logger.Debug("Pipeline graph built.", "stage_count", len(stages), "terminal_image", graph.TerminalImageTopic())
	return graph, nil
}

// stageParams extracts the parameter map a stage is materialized with. The
// crop stage normalizes a zero width or height to the full calibrated frame,
// keeping the default-safe identity crop.
func stageParams(ctx context.Context, name string, in Input) (map[string]cty.Value, error) {
	cfg, ok := in.Configs[name]
	if !ok {
		return nil, nil
	}
	values := cfg.Values()

	if name == StageCrop && in.Calibration != nil {
		logger := ctxlog.FromContext(ctx)
		width, height := cfg.Int("width"), cfg.Int("height")
		if width == 0 {
			width = int64(in.Calibration.ImageWidth)
			values["width"] = cty.NumberIntVal(width)
		}
		if height == 0 {
			height = int64(in.Calibration.ImageHeight)
			values["height"] = cty.NumberIntVal(height)
		}
		if cfg.Int("x_offset")+width > int64(in.Calibration.ImageWidth) ||
			cfg.Int("y_offset")+height > int64(in.Calibration.ImageHeight) {
			logger.Warn("Crop region extends past the calibrated frame.",
				"frame_width", in.Calibration.ImageWidth,
				"frame_height", in.Calibration.ImageHeight,
			)
		}
	}

	return values, nil
}
