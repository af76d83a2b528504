package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/camlaunchgo/internal/calibration"
	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/vk/camlaunchgo/internal/fsutil"
	"github.com/vk/camlaunchgo/internal/params"
	"github.com/vk/camlaunchgo/internal/pipeline"
	"github.com/vk/camlaunchgo/internal/profile"
)

// Run executes one orchestrator pass: resolve, build, materialize.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run started.", "camera", a.env.CameraName, "config_dir", a.env.ConfigDir)

	var prof *profile.Profile
	if a.env.ProfilePath != "" {
		var err error
		prof, err = profile.Load(ctx, a.env.ProfilePath)
		if err != nil {
			return fmt.Errorf("failed to load launch profile: %w", err)
		}
	}

	cameraName := a.env.CameraName
	if prof != nil && prof.CameraName != "" && !a.env.CameraNameSet {
		cameraName = prof.CameraName
	}

	flags, err := a.deriveFlags(prof)
	if err != nil {
		return err
	}

	calibPath := calibration.FilePath(a.env.CalibrationDir, cameraName)
	calib, err := calibration.Load(calibPath)
	if err != nil {
		kind := params.ConfigUnreadable
		if errors.Is(err, os.ErrNotExist) {
			kind = params.ConfigMissing
		}
		return &params.Error{Stage: pipeline.StageCamera, Kind: kind, Path: calibPath, Err: err}
	}
	a.logger.Info("Using calibration file.", "path", calibPath, "frame_width", calib.ImageWidth, "frame_height", calib.ImageHeight)

	configs := make(map[string]*params.ResolvedConfig)
	paramFiles := make(map[string]string)
	for _, stage := range []struct {
		name        string
		schema      params.Schema
		defaultFile string // explicit env path, replaces name-based lookup
		overrides   map[string]string
	}{
		{pipeline.StageCamera, params.CameraSchema, a.env.CameraParamFile, a.env.CameraOverrides},
		{pipeline.StageCrop, params.CropSchema, a.env.CropParamFile, a.env.CropOverrides},
	} {
		defaultFile := stage.defaultFile
		if defaultFile == "" {
			path, found, err := fsutil.FindParamFile(a.env.ConfigDir, stage.name, a.env.ParamFilename)
			if err != nil {
				return &params.Error{Stage: stage.name, Kind: params.ConfigUnreadable, Err: err}
			}
			if found {
				defaultFile = path
			} else {
				// Let Resolve report ConfigMissing with the conventional path.
				defaultFile = filepath.Join(a.env.ConfigDir, stage.name, a.env.ParamFilename+".yaml")
			}
		}

		cfg, err := params.Resolve(ctx, params.Request{
			Stage:         stage.name,
			Schema:        stage.schema,
			DefaultFile:   defaultFile,
			OverrideFile:  prof.Stage(stage.name).ParamFile,
			ProfileParams: prof.Stage(stage.name).Params,
			EnvOverrides:  stage.overrides,
		})
		if err != nil {
			return err
		}
		configs[stage.name] = cfg
		paramFiles[stage.name] = defaultFile
	}

	graph, err := pipeline.Build(ctx, pipeline.Input{
		CameraName:  cameraName,
		Flags:       flags,
		Configs:     configs,
		ParamFiles:  paramFiles,
		Calibration: calib,
		Remaps:      prof.Remaps(),
		Commands:    prof.Commands(),
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline graph: %w", err)
	}
	a.logger.Info("Pipeline graph built.", "stages", len(graph.Stages), "terminal_image", graph.TerminalImageTopic())

	// Materialization. Start failures are reported but never roll back
	// stages that already started; the rest of the graph is still attempted.
	var startErrs []error
	for _, spec := range graph.Stages {
		if err := a.starter.Start(ctx, spec); err != nil {
			a.logger.Error("Stage failed to start.", "stage", spec.Name, "error", err)
			startErrs = append(startErrs, err)
		}
	}
	if len(startErrs) > 0 {
		return errors.Join(startErrs...)
	}

	a.logger.Info("Pipeline materialized.", "stages", len(graph.Stages))
	return nil
}

// deriveFlags combines the documented defaults, the profile's stage blocks,
// and the environment toggles (highest precedence) into the builder flags.
// The camera and crop stages cannot be disabled from a profile.
func (a *App) deriveFlags(prof *profile.Profile) (pipeline.Flags, error) {
	for _, mandatory := range []string{pipeline.StageCamera, pipeline.StageCrop} {
		if enabled := prof.Stage(mandatory).Enabled; enabled != nil && !*enabled {
			return pipeline.Flags{}, fmt.Errorf("stage %q is mandatory and cannot be disabled", mandatory)
		}
	}

	flags := pipeline.Flags{Decoder: true, Rectify: true, Relay: true}
	if enabled := prof.Stage(pipeline.StageDecoder).Enabled; enabled != nil {
		flags.Decoder = *enabled
	}
	if enabled := prof.Stage(pipeline.StageRectify).Enabled; enabled != nil {
		flags.Rectify = *enabled
	}
	if enabled := prof.Stage(pipeline.StageRelay).Enabled; enabled != nil {
		flags.Relay = *enabled
	}

	if a.env.DecodeSet {
		flags.Decoder = a.env.Decode
	}
	if a.env.RectifySet {
		flags.Rectify = a.env.Rectify
	}
	return flags, nil
}
