// Package main hosts the glovecap CLI entrypoint and command graph.
//
// The Cobra command tree drives an interactive collection session against the
// glove, an unattended auto mode that walks every pending (class, type) pair,
// and maintenance commands for the progress cache and the dataset tree.
// Collection logic lives in internal/collector; commands here only translate
// keystrokes and flags into collector calls and render the results.
package main
