// Package preflight provides readiness checks for the filesystem paths and
// the serial device a collection session depends on.
//
// The CLI "glovecap doctor" command runs RunAll and renders one line per
// check; "collect" and "auto" stop early when a required check fails so a
// session never starts against an unwritable data root or a port the user
// cannot open.
package preflight
