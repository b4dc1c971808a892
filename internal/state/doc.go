// Package state persists migration progress so an interrupted run can resume.
//
// A [Store] owns one [MigrationState] loaded from a JSON file. The state records which destination
// playlist each source playlist maps to, how each source track was resolved, and which playlists
// finished a full pass. Loading never fails: a missing or corrupt file yields an empty state.
//
// The file layout is shared with earlier versions of the tool:
//
//	{
//	  "playlists": {"<playlist>": {"youtube_id": "...", "name": "..."}},
//	  "tracks": {"<playlist>:<track>": {"status": "found", "youtube_video_id": "...", "timestamp": 1700000000.5}},
//	  "completed_playlists": ["<playlist>"],
//	  "migration_started": null
//	}
//
// The store is not safe for concurrent use. Callers mutate and then call [Store.Save] at their checkpoints.
package state
