package pipeline

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Role is the logical name of a stream a stage consumes or produces.
type Role string

const (
	RoleImage      Role = "image"
	RoleCameraInfo Role = "camera_info"
)

// Stage names, in pipeline order.
const (
	StageCamera  = "camera"
	StageDecoder = "decoder"
	StageCrop    = "crop"
	StageRectify = "rectify"
	StageRelay   = "relay"
)

// StageNames returns the known stage names in their fixed pipeline order.
func StageNames() []string {
	return []string{StageCamera, StageDecoder, StageCrop, StageRectify, StageRelay}
}

// TopicBinding pairs a logical role with the concrete topic carrying it.
type TopicBinding struct {
	Role  Role
	Topic string
}

// StageSpec describes one stage of the built pipeline: its identity, the
// topics it consumes and produces, its resolved parameters, and how to start
// it. Specs are immutable once the graph is built.
type StageSpec struct {
	Name      string
	Inputs    []TopicBinding
	Outputs   []TopicBinding
	Params    map[string]cty.Value
	ParamFile string
	Command   []string
}

// Input returns the stage's input binding for a role, if present.
func (s *StageSpec) Input(role Role) (TopicBinding, bool) {
	for _, b := range s.Inputs {
		if b.Role == role {
			return b, true
		}
	}
	return TopicBinding{}, false
}

// Output returns the stage's output binding for a role, if present.
func (s *StageSpec) Output(role Role) (TopicBinding, bool) {
	for _, b := range s.Outputs {
		if b.Role == role {
			return b, true
		}
	}
	return TopicBinding{}, false
}

// Flags selects which optional stages are instantiated. Crop and camera are
// not represented: they are always present.
type Flags struct {
	Decoder bool
	Rectify bool
	Relay   bool
}

// normalize enforces inter-flag constraints: the relay republishes
// camera info for the rectified output, so it cannot outlive rectify.
func (f Flags) normalize() Flags {
	if !f.Rectify {
		f.Relay = false
	}
	return f
}

// Graph is the ordered sequence of enabled stages plus the effective enable
// flags. It is immutable once built.
type Graph struct {
	Stages  []StageSpec
	Enabled map[string]bool
}

// Stage returns the spec for a named stage, if it is part of the graph.
func (g *Graph) Stage(name string) (*StageSpec, bool) {
	for i := range g.Stages {
		if g.Stages[i].Name == name {
			return &g.Stages[i], true
		}
	}
	return nil, false
}

// TerminalImageTopic returns the topic carrying the pipeline's final image
// output.
func (g *Graph) TerminalImageTopic() string {
	for i := len(g.Stages) - 1; i >= 0; i-- {
		if b, ok := g.Stages[i].Output(RoleImage); ok {
			return b.Topic
		}
	}
	return ""
}

// CycleError reports a topic binding that would make a stage consume its own
// or a downstream stage's output.
type CycleError struct {
	Stage string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("stage %q: CyclicDependency: topic bindings form a cycle", e.Stage)
}
