// Package facets defines the closed set of facet types, their bitmask
// encoding, and the per-type metadata key schema.
//
// Every component that deals with facet types goes through this registry; no
// facet type exists outside it. Types map to power-of-two bits so a single
// integer can record every facet a file or folder exposes.
package facets
