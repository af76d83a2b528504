package launch

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/vk/camlaunchgo/internal/pipeline"
)

// DryRunStarter prints the command each stage would be started with instead
// of spawning anything.
type DryRunStarter struct {
	Out io.Writer
}

// Start implements Starter.
func (s *DryRunStarter) Start(_ context.Context, spec pipeline.StageSpec) error {
	argv, err := Argv(spec)
	if err != nil {
		return &StartError{Stage: spec.Name, Err: err}
	}
	fmt.Fprintf(s.Out, "[dry-run] %s: %s\n", spec.Name, strings.Join(argv, " "))
	return nil
}
