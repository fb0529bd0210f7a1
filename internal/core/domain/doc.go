// Package domain contains the core business types for pulsefeed:
// canonical threat entities, checkpoints, cycle results and the
// error taxonomy. It has no dependencies on adapters or transports.
package domain
