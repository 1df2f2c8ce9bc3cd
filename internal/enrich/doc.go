// Package enrich provides optional text enrichment for catalog metadata and
// publish forms: paraphrased titles and descriptions, and comma-separated
// tags.
//
// Callers depend on the single-method Paraphraser and Tagger interfaces and
// invoke them unconditionally. When no LLM is configured NewFromConfig
// returns Noop, which passes text through and produces no tags. The LLM
// implementation never returns errors either: any failure is logged and
// degrades to the same pass-through result.
package enrich
