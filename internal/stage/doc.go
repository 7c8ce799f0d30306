// Package stage defines the contract shared by pipeline steps: the Handler
// interface, the Context that carries artifacts between steps, descriptors,
// and health reporting.
package stage
