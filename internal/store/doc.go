// Package store persists downloaded payloads under slash-separated keys.
//
// Two backends implement [Store]:
//   - [Dir] writes into a local directory tree, creating directories on
//     demand and replacing files atomically via rename.
//   - [Bucket] writes into any gocloud.dev/blob bucket (mem://, file://,
//     s3://, gs://). Drivers are linked in by the binary, not here.
//
// [Open] picks the backend from the location string.
package store
