// Package engine decodes world timestamps against a compiled calendar and
// renders them through presentations.
//
// ParseTime is a mixed-radix decomposition: the root unit divides the
// origin-relative offset with floor semantics, then every level below
// binary-searches its parent's prefix-sum table, because sibling instances
// may have unequal spans (months of 28, 30 and 31 days). The result lists
// one entry per level, coarsest first.
//
// Everything in this package is pure. A *compiler.Compiled is shared
// read-only, so ParseTime and Format may run concurrently on many
// goroutines without locking.
package engine
