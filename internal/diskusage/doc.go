// Package diskusage computes disk usage for a directory tree.
//
// It walks directory trees using fastwalk for parallel traversal, sizes every
// file, aggregates file sizes into per-directory totals and reports every
// entry whose size meets a caller supplied threshold. It also removes files
// and whole directory subtrees.
package diskusage
