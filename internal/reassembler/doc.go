// Package reassembler rebuilds the original byte stream from the unordered,
// possibly duplicated texts decoded from scanned codes.
//
// Reassembly runs in three steps, each exposed on its own:
//
//   - Normalize splits raw scanner output into records and replaces the
//     leading tag marker '^' of each record with the separator byte 0.
//   - SortByKey orders records by the sequence number after the separator.
//   - StripAndJoin removes the "\x00<n> " markers, checks that every number
//     from 1 to the highest one seen is present exactly once (duplicates must
//     carry identical payloads) and concatenates the payloads.
//
// There is no partial recovery: any malformed record, conflicting duplicate
// or missing sequence number fails the whole reassembly.
package reassembler
