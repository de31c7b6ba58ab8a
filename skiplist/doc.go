// Package skiplist implements a concurrent, lock-free ordered map over a
// multi-level probabilistic linked structure. Insertion, removal and
// lookup use per-level compare-and-swap with a two-phase logical-then-
// physical removal protocol; retired nodes are handed to a hazard-pointer
// domain so readers that still hold a guard never observe a node after
// it has been handed back for reclamation.
package skiplist
