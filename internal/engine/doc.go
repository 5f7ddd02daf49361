// Package engine contains the frame loop and simulation logic of the
// reactor.
//
// ARCHITECTURAL RULE: subsystems never reach into each other. Anything one
// system causes in another travels over the event bus, and only the
// Engine holds the GameState between calls.
package engine
