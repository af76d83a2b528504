package params

import "github.com/zclconf/go-cty/cty"

// Field declares one required stage parameter and its type.
type Field struct {
	Name string
	Type cty.Type
}

// Schema lists the parameters a stage requires. Keys outside the schema are
// carried through untouched; the schema only guarantees a lower bound.
type Schema struct {
	Stage  string
	Fields []Field
}

// CameraSchema describes the camera driver stage configuration.
var CameraSchema = Schema{
	Stage: "camera",
	Fields: []Field{
		{Name: "ip", Type: cty.String},
		{Name: "port", Type: cty.Number},
		{Name: "username", Type: cty.String},
		{Name: "password", Type: cty.String},
		{Name: "framerate", Type: cty.Number},
	},
}

// CropSchema describes the crop stage's region of interest. Width and height
// of zero mean "full frame" and are normalized later from the calibration.
var CropSchema = Schema{
	Stage: "crop",
	Fields: []Field{
		{Name: "x_offset", Type: cty.Number},
		{Name: "y_offset", Type: cty.Number},
		{Name: "width", Type: cty.Number},
		{Name: "height", Type: cty.Number},
	},
}
