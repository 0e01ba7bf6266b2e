// Package taxonomy is the fixed regex catalog applied to call transcripts and
// the deterministic derivation of a CRM verdict from the flags it detects.
//
// The catalog is code, not configuration: every change bumps Version so
// stored classifications record which catalog produced them. Matching runs
// over text folded by textutil.Fold, and every pattern is case-insensitive.
package taxonomy
