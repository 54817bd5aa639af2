// Package app wires loaders, the layout engine and the output surfaces into
// the runs the command line offers: render, watch and tree mutations.
package app
