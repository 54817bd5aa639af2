// Package geometry measures how much vertical room a subtree takes once laid
// out, in row units. It has no side effects and needs no graph model, so
// layout decisions can be tested in isolation.
package geometry
