// Package core turns admission spreadsheets into majors and admission
// requirements and carries them through staging into production tables.
//
// It holds the domain logic only. Sheets arrive through a [GridSource] and
// all persistence goes through a [Store], so the same code runs behind the
// CLI, the HTTP server and the in-memory store used by tests.
//
// # Pipeline
//
// [Service.SyncUniversity] runs these stages in order for one spreadsheet:
//
//  1. Resolve the university code to its id
//  2. Fetch the grid and parse it with [Parser]
//  3. Stage majors, then requirements ([Reconciler])
//  4. Merge staged majors, then requirements into production ([Merger])
//
// Every stage commits in its own transaction. A failure stops the run for
// that university and leaves earlier stages committed; a rerun picks up
// from there because staging is idempotent on fingerprints.
//
// # Sheet Layout
//
// The first row is a title and the second row names subject-combination
// codes from column 3 onward. Data rows hold the ordinal, major code, name,
// field of study, year, enrollment quota and aptitude test score, followed
// from column 7 by one national exam score per header code, in header
// order. "-" marks a missing score. Repeated major codes and repeated
// combinations keep their first occurrence.
//
// # Matching
//
// Requirements are keyed by major, exam kind, year and subject combination.
// An absent combination matches only another absent one; see
// [RequirementKey.Matches].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError].
// Codes group by category:
//
//   - SRC001, ENT001, PRS001: source, university and parse failures
//   - DB000-DB007: database errors
//   - SYN001-SYN004: sync control (running, unknown source, cancelled, timeout)
//   - ERR000: anything else
//
// Batches ([Service.SyncAll]) isolate failures per university and record
// each run through [Store.RecordRun].
package core
