// Package allocation matches unfunded donations to unfunded charity projects.
//
// Allocate is a pure two-pointer sweep: projects are visited oldest first and
// each one draws from the oldest open donation until it is full or the
// donations run out. The caller owns loading the snapshot and committing the
// mutated rows in one transaction.
package allocation
