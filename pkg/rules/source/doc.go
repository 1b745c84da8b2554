// Package source loads rule documents from their backing stores.
//
// Four sources are available:
//
//   - FileSource reads a YAML or JSON document and watches it with fsnotify.
//   - SQLiteSource reads the latest active row of the versioned
//     rule_config_versions table and polls for newly published versions.
//   - GitSource clones a repository and reloads when the tracked branch
//     moves.
//   - MemorySource holds a rule set in memory, for tests and embedding.
//
// Every source decodes through rules.Decode, so a document that fails
// validation is rejected as a whole.
package source
