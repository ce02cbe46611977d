// Package mock provides test doubles for the ai package interfaces.
//
// The doubles default to deterministic behavior (echoed completions,
// hash-derived unit vectors) and expose function fields for injecting
// custom behavior, plus call counters for assertions.
package mock
