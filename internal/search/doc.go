// Package search holds the machinery shared by the cryptanalysis engines:
// seeded random sources, the Metropolis acceptance rule, geometric cooling,
// iteration budgets and a parallel ensemble runner that reduces independent
// runs to the single best-scoring candidate.
//
// Scores follow the maximization convention: higher is better and a move with
// delta = candidate - current > 0 is always an improvement.
package search
