// Package services implements the driving port interfaces.
// Services contain the ingestion business logic and orchestrate
// calls to driven ports (adapters); all I/O lives behind those ports.
package services
