package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCalibration = `
image_width: 1920
image_height: 1080
distortion_model: plumb_bob
camera_matrix: {rows: 3, cols: 3, data: [1000, 0, 960, 0, 1000, 540, 0, 0, 1]}
distortion_coefficients: {rows: 1, cols: 5, data: [-0.3, 0.1, 0, 0, 0]}
rectification_matrix: {rows: 3, cols: 3, data: [1, 0, 0, 0, 1, 0, 0, 0, 1]}
projection_matrix: {rows: 3, cols: 4, data: [1000, 0, 960, 0, 0, 1000, 540, 0, 0, 0, 1, 0]}
`

// setupEnv lays out config and calibration fixtures and points the process
// environment at them.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	configDir := filepath.Join(dir, "config")
	calibDir := filepath.Join(dir, "calibrations")

	require.NoError(t, os.MkdirAll(filepath.Join(configDir, "camera"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(configDir, "crop"), 0o755))
	require.NoError(t, os.MkdirAll(calibDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "camera", "default.yaml"), []byte(`
ip: "10.0.0.5"
port: 88
username: admin
password: x
framerate: 10
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "crop", "default.yaml"), []byte(`
x_offset: 0
y_offset: 0
width: 0
height: 0
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(calibDir, "foscam_r2.yaml"), []byte(testCalibration), 0o600))

	t.Setenv("CONFIG_DIR", configDir)
	t.Setenv("CALIBRATION_DIR", calibDir)
}

func TestRun_DryRunPrintsPlan(t *testing.T) {
	setupEnv(t)

	out := &bytes.Buffer{}
	err := run(out, []string{"-dry-run", "-log-level", "error"})
	require.NoError(t, err)

	output := out.String()
	assert.Contains(t, output, "[dry-run] camera: foscam-driver")
	assert.Contains(t, output, "[dry-run] crop: image-cropper")
	assert.Contains(t, output, "[dry-run] rectify: image-rectifier")
	assert.Contains(t, output, "--in image=")
}

func TestRun_RectifyToggleShrinksPlan(t *testing.T) {
	setupEnv(t)
	t.Setenv("RECTIFY", "0")

	out := &bytes.Buffer{}
	err := run(out, []string{"-dry-run", "-log-level", "error"})
	require.NoError(t, err)

	assert.NotContains(t, out.String(), "[dry-run] rectify")
	assert.NotContains(t, out.String(), "[dry-run] relay")
}

func TestRun_Help(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(out, []string{"-h"})
	require.NoError(t, err, "run() should return a nil error when help is requested")
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_ParseError(t *testing.T) {
	out := &bytes.Buffer{}
	err := run(out, []string{"--this-is-not-a-valid-flag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flag provided but not defined")
}

func TestRun_MissingConfigSurfacesStageAndKind(t *testing.T) {
	setupEnv(t)
	t.Setenv("CONFIG_DIR", t.TempDir()) // no default files here

	out := &bytes.Buffer{}
	err := run(out, []string{"-dry-run", "-log-level", "error"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `stage "camera"`)
	assert.Contains(t, err.Error(), "ConfigMissing")
}
