// Package builder drives one remote build run end to end.
//
// A run is a fixed sequence of steps: resolve identity, create or update the project,
// connect the repository, configure the branch build, trigger it, wait the estimated
// duration, poll to completion and optionally disconnect the repository. Steps that
// talk to the remote are wrapped in a per-run retry budget; the disconnect step is
// wrapped so its failure is logged and swallowed. Polling has its own error budget.
//
// A Builder is single use per Run call and shares nothing with other Builders, so
// independent projects can be built concurrently from separate goroutines.
package builder
