// Package params resolves the effective parameter set for a pipeline stage.
//
// Each stage draws its parameters from up to four layers, merged in strict
// precedence order (lowest first):
//
//  1. the stage's default parameter file (required),
//  2. an override parameter file (optional),
//  3. inline parameters from the launch profile (optional),
//  4. environment-variable overrides (optional).
//
// Exactly one effective value is selected per key, and every resolved value
// remembers which layer supplied it. Resolution validates the merged set
// against the stage's schema, so downstream consumers never see a missing or
// mistyped required parameter.
//
// Resolution has no side effects beyond reading the named files.
package params
