// Package services defines shared utilities consumed by the pipeline stages
// and their delegate clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so every stage reports
//     failures with the same taxonomy (missing input, external service,
//     parse, timeout, partial batch).
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
