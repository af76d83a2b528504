// Package calibration reads and writes camera intrinsic calibration files.
//
// A calibration file is required for the camera stage to run: it carries the
// intrinsic matrices consumed by the rectify stage and the full source frame
// dimensions used to normalize the default identity crop.
package calibration

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Matrix is a row-major matrix as stored in calibration files.
type Matrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Data []float64 `yaml:"data"`
}

// CameraInfo is the intrinsic calibration of a single camera.
type CameraInfo struct {
	ImageWidth             int    `yaml:"image_width"`
	ImageHeight            int    `yaml:"image_height"`
	CameraName             string `yaml:"camera_name,omitempty"`
	DistortionModel        string `yaml:"distortion_model"`
	CameraMatrix           Matrix `yaml:"camera_matrix"`
	DistortionCoefficients Matrix `yaml:"distortion_coefficients"`
	RectificationMatrix    Matrix `yaml:"rectification_matrix"`
	ProjectionMatrix       Matrix `yaml:"projection_matrix"`
}

// FilePath returns the conventional calibration file location for a camera.
func FilePath(dir, cameraName string) string {
	return filepath.Join(dir, cameraName+".yaml")
}

// Load reads and validates a calibration file. A missing file surfaces the
// underlying fs error, so callers can distinguish absence from corruption.
func Load(path string) (*CameraInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading calibration file %s: %w", path, err)
	}

	var info CameraInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing calibration file %s: %w", path, err)
	}

	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration file %s: %w", path, err)
	}
	return &info, nil
}

// Save writes a calibration file in the same schema Load accepts.
func Save(path string, info *CameraInfo) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid calibration: %w", err)
	}

	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding calibration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating calibration directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing calibration file %s: %w", path, err)
	}
	return nil
}

// Validate checks frame dimensions and matrix shapes. The camera matrix and
// rectification matrix must be 3x3, the projection matrix 3x4, and the
// distortion coefficients a single row.
func (c *CameraInfo) Validate() error {
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("image dimensions must be positive, got %dx%d", c.ImageWidth, c.ImageHeight)
	}
	if err := c.CameraMatrix.checkShape("camera_matrix", 3, 3); err != nil {
		return err
	}
	if err := c.RectificationMatrix.checkShape("rectification_matrix", 3, 3); err != nil {
		return err
	}
	if err := c.ProjectionMatrix.checkShape("projection_matrix", 3, 4); err != nil {
		return err
	}
	if c.DistortionCoefficients.Rows != 1 {
		return fmt.Errorf("distortion_coefficients must be a single row, got %d rows", c.DistortionCoefficients.Rows)
	}
	if len(c.DistortionCoefficients.Data) != c.DistortionCoefficients.Cols {
		return fmt.Errorf("distortion_coefficients declares %d cols but carries %d values",
			c.DistortionCoefficients.Cols, len(c.DistortionCoefficients.Data))
	}
	return nil
}

func (m Matrix) checkShape(name string, rows, cols int) error {
	if m.Rows != rows || m.Cols != cols {
		return fmt.Errorf("%s must be %dx%d, got %dx%d", name, rows, cols, m.Rows, m.Cols)
	}
	if len(m.Data) != rows*cols {
		return fmt.Errorf("%s must carry %d values, got %d", name, rows*cols, len(m.Data))
	}
	return nil
}
