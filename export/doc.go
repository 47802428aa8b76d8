// Package export writes simulation results for offline analysis.
//
// Output formats:
//   - Grid CSV: one row per grid row with the tile label of every column
//   - Pass CSV: per-cycle or cumulative pass counts, one file per cycle
//   - Histogram CSV: pass-count distribution in fixed bins
//   - Terminal heatmap: colored pass counts for quick inspection
//
// CSV files start with the columns map, repetition (and cycle for pass
// files) and x, followed by one column per grid column. Coordinates in x and
// in the column headers are scaled by the configured tile size.
//
// A Batch groups the files of one command-line run under a directory named
// after a timestamp and a random batch id.
package export
