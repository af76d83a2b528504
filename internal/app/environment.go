package app

import (
	"context"
	"strings"

	"github.com/vk/camlaunchgo/internal/ctxlog"
)

// Defaults for the recognized environment variables.
const (
	DefaultCameraName     = "foscam_r2"
	DefaultConfigDir      = "/data/config"
	DefaultParamFilename  = "default"
	DefaultCalibrationDir = "/data/config/calibrations/camera_intrinsic"
)

// cameraEnvOverrides maps environment variables to camera parameter keys.
var cameraEnvOverrides = map[string]string{
	"CAMERA_IP":        "ip",
	"CAMERA_PORT":      "port",
	"CAMERA_USERNAME":  "username",
	"CAMERA_PASSWORD":  "password",
	"CAMERA_FRAMERATE": "framerate",
}

// cropEnvOverrides maps environment variables to crop parameter keys.
var cropEnvOverrides = map[string]string{
	"CROP_X_OFFSET": "x_offset",
	"CROP_Y_OFFSET": "y_offset",
	"CROP_WIDTH":    "width",
	"CROP_HEIGHT":   "height",
}

// Environment is the immutable snapshot of every recognized environment
// variable, taken once at orchestrator entry and never re-read.
type Environment struct {
	CameraName    string
	CameraNameSet bool

	CameraParamFile string
	CropParamFile   string
	ConfigDir       string
	ParamFilename   string
	CalibrationDir  string
	ProfilePath     string

	Rectify    bool
	RectifySet bool
	Decode     bool
	DecodeSet  bool

	CameraOverrides map[string]string
	CropOverrides   map[string]string
}

// SnapshotEnvironment reads the recognized variables through lookup and
// fills in documented defaults for everything absent. Unrecognized boolean
// values fall back to the default with a warning rather than failing the
// run.
func SnapshotEnvironment(ctx context.Context, lookup func(string) (string, bool)) Environment {
	logger := ctxlog.FromContext(ctx)

	env := Environment{
		CameraName:      DefaultCameraName,
		ConfigDir:       DefaultConfigDir,
		ParamFilename:   DefaultParamFilename,
		CalibrationDir:  DefaultCalibrationDir,
		Rectify:         true,
		Decode:          true,
		CameraOverrides: make(map[string]string),
		CropOverrides:   make(map[string]string),
	}

	if v, ok := lookup("CAMERA_NAME"); ok && v != "" {
		env.CameraName = v
		env.CameraNameSet = true
	}
	if v, ok := lookup("CAMERA_PARAM_FILE"); ok {
		env.CameraParamFile = v
	}
	if v, ok := lookup("CROP_PARAM_FILE"); ok {
		env.CropParamFile = v
	}
	if v, ok := lookup("CONFIG_DIR"); ok && v != "" {
		env.ConfigDir = v
	}
	if v, ok := lookup("PARAM_FILENAME"); ok && v != "" {
		env.ParamFilename = v
	}
	if v, ok := lookup("CALIBRATION_DIR"); ok && v != "" {
		env.CalibrationDir = v
	}
	if v, ok := lookup("LAUNCH_PROFILE"); ok {
		env.ProfilePath = v
	}

	if v, ok := lookup("RECTIFY"); ok {
		if parsed, valid := parseBool(v); valid {
			env.Rectify = parsed
			env.RectifySet = true
		} else {
			logger.Warn("Unrecognized RECTIFY value, keeping default.", "value", v, "default", env.Rectify)
		}
	}
	if v, ok := lookup("DECODE"); ok {
		if parsed, valid := parseBool(v); valid {
			env.Decode = parsed
			env.DecodeSet = true
		} else {
			logger.Warn("Unrecognized DECODE value, keeping default.", "value", v, "default", env.Decode)
		}
	}

	for envName, key := range cameraEnvOverrides {
		if v, ok := lookup(envName); ok {
			env.CameraOverrides[key] = v
		}
	}
	for envName, key := range cropEnvOverrides {
		if v, ok := lookup(envName); ok {
			env.CropOverrides[key] = v
		}
	}

	return env
}

// parseBool accepts the documented toggle spellings: true/1 and false/0,
// case-insensitive.
func parseBool(v string) (value, valid bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}
