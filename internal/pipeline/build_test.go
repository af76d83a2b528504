package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/camlaunchgo/internal/calibration"
	"github.com/vk/camlaunchgo/internal/params"
	"github.com/zclconf/go-cty/cty"
)

func testInput(flags Flags) Input {
	return Input{
		CameraName: "foscam_r2",
		Flags:      flags,
		Configs: map[string]*params.ResolvedConfig{
			StageCamera: params.FromValues(StageCamera, map[string]cty.Value{
				"ip":        cty.StringVal("10.0.0.5"),
				"port":      cty.NumberIntVal(88),
				"username":  cty.StringVal("admin"),
				"password":  cty.StringVal("x"),
				"framerate": cty.NumberIntVal(10),
			}),
			StageCrop: params.FromValues(StageCrop, map[string]cty.Value{
				"x_offset": cty.NumberIntVal(0),
				"y_offset": cty.NumberIntVal(0),
				"width":    cty.NumberIntVal(0),
				"height":   cty.NumberIntVal(0),
			}),
		},
		Calibration: &calibration.CameraInfo{ImageWidth: 1920, ImageHeight: 1080},
	}
}

func stageNames(g *Graph) []string {
	names := make([]string, 0, len(g.Stages))
	for _, s := range g.Stages {
		names = append(names, s.Name)
	}
	return names
}

func TestBuild_AllStagesEnabled(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), testInput(Flags{Decoder: true, Rectify: true, Relay: true}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageCamera, StageDecoder, StageCrop, StageRectify, StageRelay}, stageNames(graph))

	decoder, ok := graph.Stage(StageDecoder)
	require.True(t, ok)
	in, ok := decoder.Input(RoleImage)
	require.True(t, ok)
	assert.Equal(t, "/foscam_r2/image/compressed", in.Topic)

	crop, ok := graph.Stage(StageCrop)
	require.True(t, ok)
	in, ok = crop.Input(RoleImage)
	require.True(t, ok)
	assert.Equal(t, "/foscam_r2/image/raw", in.Topic)

	relay, ok := graph.Stage(StageRelay)
	require.True(t, ok)
	in, ok = relay.Input(RoleCameraInfo)
	require.True(t, ok)
	assert.Equal(t, "/foscam_r2/camera_info/cropped", in.Topic, "relay consumes the camera info matching the rectified image")

	assert.Equal(t, "/foscam_r2/image/rect", graph.TerminalImageTopic())
}

func TestBuild_ConnectivityInvariantAllCombinations(t *testing.T) {
	t.Parallel()

	for _, decoder := range []bool{false, true} {
		for _, rectify := range []bool{false, true} {
			for _, relay := range []bool{false, true} {
				name := fmt.Sprintf("decoder=%v rectify=%v relay=%v", decoder, rectify, relay)
				t.Run(name, func(t *testing.T) {
					t.Parallel()

					graph, err := Build(context.Background(), testInput(Flags{Decoder: decoder, Rectify: rectify, Relay: relay}))
					require.NoError(t, err)

					// Crop and camera are always present.
					_, ok := graph.Stage(StageCamera)
					assert.True(t, ok)
					_, ok = graph.Stage(StageCrop)
					assert.True(t, ok)

					// Every consumer input must equal an earlier enabled
					// producer's output for the same role.
					produced := make(map[TopicBinding]bool)
					for _, spec := range graph.Stages {
						for _, in := range spec.Inputs {
							assert.True(t, produced[in],
								"stage %q input %v is not produced by any enabled upstream stage", spec.Name, in)
						}
						for _, out := range spec.Outputs {
							produced[out] = true
						}
					}
				})
			}
		}
	}
}

func TestBuild_RectifyDisabledExcludesRelay(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), testInput(Flags{Decoder: true, Rectify: false, Relay: true}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageCamera, StageDecoder, StageCrop}, stageNames(graph))
	assert.False(t, graph.Enabled[StageRectify])
	assert.False(t, graph.Enabled[StageRelay], "relay cannot outlive rectify")
	assert.Equal(t, "/foscam_r2/image/cropped", graph.TerminalImageTopic(), "crop becomes the terminal output")
}

func TestBuild_DecoderDisabledRewiresCrop(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), testInput(Flags{Decoder: false, Rectify: false}))
	require.NoError(t, err)

	assert.Equal(t, []string{StageCamera, StageCrop}, stageNames(graph))

	crop, ok := graph.Stage(StageCrop)
	require.True(t, ok)
	in, ok := crop.Input(RoleImage)
	require.True(t, ok)
	assert.Equal(t, "/foscam_r2/image/compressed", in.Topic, "crop rewired to the camera's image output")
}

func TestBuild_IdentityCropDefaults(t *testing.T) {
	t.Parallel()

	graph, err := Build(context.Background(), testInput(Flags{Decoder: true, Rectify: true, Relay: true}))
	require.NoError(t, err)

	crop, ok := graph.Stage(StageCrop)
	require.True(t, ok)

	want := map[string]cty.Value{
		"x_offset": cty.NumberIntVal(0),
		"y_offset": cty.NumberIntVal(0),
		"width":    cty.NumberIntVal(1920),
		"height":   cty.NumberIntVal(1080),
	}
	if diff := cmp.Diff(want, crop.Params, cmp.Comparer(func(a, b cty.Value) bool {
		return a.RawEquals(b)
	})); diff != "" {
		t.Errorf("identity crop params mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ExplicitROIKept(t *testing.T) {
	t.Parallel()

	in := testInput(Flags{Decoder: true})
	in.Configs[StageCrop] = params.FromValues(StageCrop, map[string]cty.Value{
		"x_offset": cty.NumberIntVal(120),
		"y_offset": cty.NumberIntVal(40),
		"width":    cty.NumberIntVal(640),
		"height":   cty.NumberIntVal(480),
	})

	graph, err := Build(context.Background(), in)
	require.NoError(t, err)

	crop, _ := graph.Stage(StageCrop)
	assert.True(t, crop.Params["width"].RawEquals(cty.NumberIntVal(640)))
	assert.True(t, crop.Params["x_offset"].RawEquals(cty.NumberIntVal(120)))
}

func TestBuild_RemapOverridesInput(t *testing.T) {
	t.Parallel()

	in := testInput(Flags{Decoder: true, Rectify: true, Relay: true})
	in.Remaps = map[string]map[Role]string{
		StageCrop: {RoleImage: "/external/image/raw"},
	}

	graph, err := Build(context.Background(), in)
	require.NoError(t, err)

	crop, _ := graph.Stage(StageCrop)
	binding, ok := crop.Input(RoleImage)
	require.True(t, ok)
	assert.Equal(t, "/external/image/raw", binding.Topic)
}

func TestBuild_SelfConsumptionIsCyclic(t *testing.T) {
	t.Parallel()

	in := testInput(Flags{Decoder: true})
	in.Remaps = map[string]map[Role]string{
		StageCrop: {RoleImage: "/foscam_r2/image/cropped"},
	}

	_, err := Build(context.Background(), in)
	require.Error(t, err)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, StageCrop, cycleErr.Stage)
	assert.Contains(t, err.Error(), "CyclicDependency")
}

func TestBuild_DownstreamConsumptionIsCyclic(t *testing.T) {
	t.Parallel()

	in := testInput(Flags{Decoder: true, Rectify: true})
	in.Remaps = map[string]map[Role]string{
		StageCrop: {RoleImage: "/foscam_r2/image/rect"},
	}

	_, err := Build(context.Background(), in)
	require.Error(t, err)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
}

func TestBuild_CommandOverridesCarried(t *testing.T) {
	t.Parallel()

	in := testInput(Flags{})
	in.Commands = map[string][]string{
		StageCrop: {"image-cropper", "--gpu"},
	}

	graph, err := Build(context.Background(), in)
	require.NoError(t, err)

	crop, _ := graph.Stage(StageCrop)
	assert.Equal(t, []string{"image-cropper", "--gpu"}, crop.Command)
}
