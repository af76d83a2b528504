// Package pipeline builds the camera processing graph.
//
// The stage order is fixed by data dependency: camera -> decoder -> crop ->
// rectify -> relay. Decoder, rectify, and relay are optional; crop is always
// present and defaults to an identity full-frame crop so downstream topic
// names never disappear when the crop is unconfigured. Disabling a stage
// rewires the next enabled stage's input to the nearest enabled upstream
// output for the same role, so every enable combination yields a connected
// graph.
//
// Build is a pure function from resolved configs, enable flags, and profile
// overrides to an immutable Graph value; nothing is started here.
package pipeline
