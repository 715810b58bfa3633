// Package rules holds the rule corpus: the Rule record, the loaders that
// build a corpus from rules.json or the demo text format, and Store, which
// publishes immutable snapshots to concurrent readers.
package rules
