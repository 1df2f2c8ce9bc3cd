// Package preflight provides readiness checks for the directories and remote
// services reelcast depends on.
//
// The daemon runs RunAll at startup and logs each failure as a warning; the
// CLI "reelcast status" command renders the same results as a table. Checks
// for optional collaborators (LLM enrichment) are skipped when disabled.
package preflight
