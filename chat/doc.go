// Package chat turns a captured YouTube live-chat transcript into a flat list
// of normalized messages ready for layout.
//
// It provides two stages:
//   - ParseActions/LoadActions: accept the three container shapes produced by
//     different capture paths (an object with an "actions" list, a bare list,
//     or line-delimited action objects) and return raw action records.
//   - ExtractMessages: pick the message renderer out of each action, resolve
//     its time offset (replay offset, or microsecond timestamp relative to the
//     earliest one in the transcript), and extract author, avatar and content
//     runs, tolerating missing or malformed substructures.
//
// Transcripts are schema-free in practice, so actions are held as generic JSON
// maps and all field access goes through defensive accessors. A malformed
// record degrades or is skipped; it never aborts the batch.
package chat
