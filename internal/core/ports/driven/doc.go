// Package driven defines the outbound ports of the pulsefeed core:
// interfaces the core services depend on, implemented by adapters
// (feed client, ingest publisher, sqlite stores).
package driven
