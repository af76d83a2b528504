// Package app is the launch orchestrator. It snapshots the process
// environment exactly once, resolves each stage's configuration, builds the
// pipeline graph, and materializes it through a launch.Starter.
//
// The build phase is fail-fast: any configuration or graph error aborts the
// run before a single stage starts. Once materialization begins, a stage
// that fails to start is reported but already-started stages are left
// running; supervising them is the job of the surrounding process manager.
package app
