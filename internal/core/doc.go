// Package core implements the IdP fraud-data file import.
//
// A file lands in object storage tagged with the identity provider it
// belongs to and the user who uploaded it. [Service.ImportObject] reads it
// as CSV, turns every data line into a [FraudEvent] and records the whole
// file as one import session:
//
//   - Every line valid: the session (passed_validation = true), its events
//     and their contra-indicator counts are committed in one unit of work
//     and the file moves to the success folder.
//   - Any line invalid: the first unit of work is rolled back, so no event
//     from the file is visible. A second unit of work records the session
//     (passed_validation = false) with a single [ValidationFailure] naming
//     the line and the cause, and the file moves to the error folder.
//
// Processing stops at the first bad record. Line numbers count records with
// the header as line 1; a quoted field spanning several text lines is still
// one record.
//
// # Components
//
//   - [ParseRow] splits a record into its eight columns.
//   - [TimestampNormalizer] resolves event times to UTC, reading zone-less
//     times in the configured zone (Europe/London unless overridden).
//   - [AggregateContraIndicators] counts indicator codes per row.
//   - [DestinationKey] names the relocated object.
//
// # Faults
//
// [RowError] is recovered at file level. [MetadataError],
// [PersistenceError] and [RelocationError] are returned to the caller;
// [MapError] gives each an operator code for the logs.
package core
