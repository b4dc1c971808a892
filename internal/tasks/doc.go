// Package tasks reconciles Spotify playlists into YouTube Music.
//
// # Engine
//
// [Engine.MigratePlaylist] moves one playlist through these steps:
//
//  1. Resolve the destination: the cached mapping, then a title lookup, then creation.
//     Force reprocessing discards the playlist's cached state first.
//  2. Verify the destination is readable and collect its video ids as the dedup baseline.
//  3. Process the source tracks in chunks. Cached matches are reused and cached misses are
//     skipped; everything else is searched, one search at a time behind a rate limiter.
//  4. Flush each chunk's staged ids in batches, retrying a failed batch once after a backoff.
//     A batch that still fails stops the playlist only when the destination is gone.
//  5. Mark the playlist completed.
//
// The state store is saved after every chunk, so an interrupted run loses at most one chunk.
//
// # Session
//
// [Session.Run] filters the user's playlists to the ones they own, adds the liked songs, asks
// for a single confirmation and migrates them in order. A failed playlist never stops the run.
// The failed tracks report and the run history are written on every exit path.
//
// # Progress Reporting
//
// Status events are [ProgressUpdate] values sent to a [Presenter], which also answers the
// confirmation prompts. [Discard] ignores events and confirms everything.
package tasks
