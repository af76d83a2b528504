package launch

import (
	"context"
	"os"
	"os/exec"

	"github.com/vk/camlaunchgo/internal/ctxlog"
	"github.com/vk/camlaunchgo/internal/pipeline"
)

// CommandExecutor abstracts a started process. The abstraction exists so
// materialization can be unit tested without spawning real processes.
type CommandExecutor interface {
	// Start launches the process without waiting for it to exit.
	Start() error
}

// CommandBuilder constructs executors for stage command lines.
type CommandBuilder interface {
	BuildCommand(name string, args ...string) CommandExecutor
}

// realCommandExecutor wraps exec.Cmd.
type realCommandExecutor struct {
	cmd *exec.Cmd
}

func (r *realCommandExecutor) Start() error {
	return r.cmd.Start()
}

// RealCommandBuilder builds commands with os/exec. Stage processes inherit
// the orchestrator's stdout and stderr and are not waited on: they outlive
// the launcher by design.
type RealCommandBuilder struct{}

// BuildCommand implements CommandBuilder.
func (b *RealCommandBuilder) BuildCommand(name string, args ...string) CommandExecutor {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return &realCommandExecutor{cmd: cmd}
}

// ExecStarter starts each stage as an external process. Before the camera
// stage starts, the camera endpoint is probed so an unreachable camera fails
// the stage start instead of leaving a silently idle driver.
type ExecStarter struct {
	Builder CommandBuilder
	Probe   *CameraProbe
}

// NewExecStarter returns a starter backed by os/exec and the default camera
// probe.
func NewExecStarter() *ExecStarter {
	return &ExecStarter{
		Builder: &RealCommandBuilder{},
		Probe:   NewCameraProbe(),
	}
}

// Start implements Starter.
func (s *ExecStarter) Start(ctx context.Context, spec pipeline.StageSpec) error {
	logger := ctxlog.FromContext(ctx)

	if spec.Name == pipeline.StageCamera && s.Probe != nil {
		if err := s.Probe.Check(ctx, spec); err != nil {
			return &StartError{Stage: spec.Name, Err: err}
		}
	}

	argv, err := Argv(spec)
	if err != nil {
		return &StartError{Stage: spec.Name, Err: err}
	}

	logger.Debug("Starting stage process.", "stage", spec.Name, "argv", argv)
	if err := s.Builder.BuildCommand(argv[0], argv[1:]...).Start(); err != nil {
		return &StartError{Stage: spec.Name, Err: err}
	}
	logger.Info("Stage started.", "stage", spec.Name)
	return nil
}
