// Package execution models a running or finished pipeline as the status
// diagram sees it: items with a status, parallels, and groups that the user
// can open or close.
package execution
