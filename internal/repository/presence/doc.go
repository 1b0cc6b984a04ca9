// Package presence implements persistence for the at-home suppression policy.
//
// FileRepository stores and loads the policy as YAML on disk. Store keeps the
// last loaded policy in memory for the resolver and refreshes it out of band
// whenever the file changes, so edits apply without a restart.
package presence
