package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmigrate/internal/models"
	"github.com/desertthunder/ytmigrate/internal/services"
	"github.com/desertthunder/ytmigrate/internal/shared"
	"github.com/desertthunder/ytmigrate/internal/state"
	"golang.org/x/time/rate"
)

const (
	DefaultChunkSize    = 200
	DefaultBatchSize    = 50
	DefaultLikedName    = "Liked Songs - Spot"
	DefaultPrefix       = "Spot "
	likedDescription    = "Migrated from Spotify Liked Songs"
	playlistDescription = "Migrated from Spotify playlist"
)

// Catalog is the destination as seen by the [Engine]. [services.Destination] implements it.
type Catalog interface {
	PlaylistExists(ctx context.Context, title string) (string, services.Outcome)
	CreatePlaylist(ctx context.Context, title, description string) (string, services.Outcome)
	SearchTrack(ctx context.Context, title, artists, album string) (*models.DestinationTrack, services.Outcome)
	VerifyPlaylist(ctx context.Context, playlistID string) ([]models.DestinationTrack, services.Outcome)
	CheckPlaylist(ctx context.Context, playlistID string) services.Outcome
	AddTracks(ctx context.Context, playlistID string, videoIDs []string) services.Outcome
}

// PlaylistResult holds the counters of a single playlist migration. It is returned even when the
// migration fails, so that partial progress still reaches the run summary.
type PlaylistResult struct {
	PlaylistID    string
	Name          string
	DestinationID string
	Created       bool
	Completed     bool
	TracksFound   int
	Migrated      int
	Failed        int
	Added         int
	FailedBatches int
	FailedTracks  []models.FailedTrack

	baseline []string
}

// EngineOpts configures an [Engine]. Zero values fall back to the defaults.
type EngineOpts struct {
	Source    services.SourceReader
	Catalog   Catalog
	Store     *state.Store
	Presenter Presenter
	Logger    *log.Logger
	Config    shared.MigrationConfig
}

// Engine reconciles one source playlist at a time into the destination catalog.
type Engine struct {
	source    services.SourceReader
	catalog   Catalog
	store     *state.Store
	presenter Presenter
	logger    *log.Logger

	chunkSize int
	batchSize int
	backoff   time.Duration
	likedName string
	prefix    string
	limiter   *rate.Limiter
	sleep     func(context.Context, time.Duration) error
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Presenter == nil {
		opts.Presenter = Discard{}
	}

	cfg := opts.Config
	e := &Engine{
		source:    opts.Source,
		catalog:   opts.Catalog,
		store:     opts.Store,
		presenter: opts.Presenter,
		logger:    opts.Logger,
		chunkSize: cfg.ChunkSize,
		batchSize: cfg.BatchSize,
		backoff:   cfg.RetryBackoff(),
		likedName: cfg.LikedName,
		prefix:    cfg.PlaylistPrefix,
		limiter:   rate.NewLimiter(rate.Inf, 1),
		sleep:     sleepContext,
	}

	if e.chunkSize <= 0 {
		e.chunkSize = DefaultChunkSize
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.likedName == "" {
		e.likedName = DefaultLikedName
	}
	if e.prefix == "" {
		e.prefix = DefaultPrefix
	}
	if interval := cfg.SearchInterval(); interval > 0 {
		e.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return e
}

// DestinationName is the destination title for a source playlist. The liked list gets a fixed
// name; other playlists are prefixed so they never collide with the source's own names.
func (e *Engine) DestinationName(p models.Playlist) string {
	if p.IsLikedSongs() {
		return e.likedName
	}
	return e.prefix + p.Name
}

func description(p models.Playlist) string {
	if p.IsLikedSongs() {
		return likedDescription
	}
	return playlistDescription
}

// MigratePlaylist copies the tracks of playlist into its destination playlist, creating the
// destination when needed. Tracks already resolved by an earlier run are not searched again
// unless force is set, in which case everything cached for the playlist is discarded first.
//
// A nil error means the playlist is complete. The returned result is never nil.
func (e *Engine) MigratePlaylist(ctx context.Context, playlist models.Playlist, force bool) (*PlaylistResult, error) {
	name := e.DestinationName(playlist)
	result := &PlaylistResult{PlaylistID: playlist.ID, Name: name}
	logger := shared.WithLogger(e.logger, "playlist", playlist.ID)

	if force {
		removed := e.store.ClearMapping(playlist.ID)
		e.notify(info(ResolvePlaylist, fmt.Sprintf("Force reprocess: cleared %d cached track entries for %s", removed, name)))
		if err := e.store.Save(); err != nil {
			return result, err
		}
	}

	destID, err := e.resolveDestination(ctx, playlist, name, force, result)
	if err != nil {
		return result, err
	}
	result.DestinationID = destID
	logger = shared.WithLogger(logger, "destination", destID)

	e.store.SetMapping(playlist.ID, destID, name)
	if err := e.store.Save(); err != nil {
		return result, err
	}

	tracks, err := e.collectTracks(ctx, playlist)
	if err != nil {
		return result, err
	}
	result.TracksFound = len(tracks)
	logger.Debug("loaded source tracks", "count", len(tracks))

	seen := make(map[string]struct{}, len(result.baseline))
	for _, id := range result.baseline {
		seen[id] = struct{}{}
	}
	result.baseline = nil

	for start := 0; start < len(tracks); start += e.chunkSize {
		end := min(start+e.chunkSize, len(tracks))
		e.notify(chunkUpdate(start, end, len(tracks)))

		staged, err := e.processChunk(ctx, playlist, name, tracks[start:end], start, len(tracks), seen, force, result)
		if err != nil {
			return result, e.interrupted(err)
		}

		gone, err := e.flush(ctx, destID, name, staged, result)
		if saveErr := e.store.Save(); saveErr != nil {
			return result, saveErr
		}
		if err != nil {
			return result, err
		}
		if gone {
			logger.Warn("destination playlist disappeared while adding tracks")
			e.notify(failure(AddTracks, fmt.Sprintf("Playlist %s no longer exists on YouTube Music", name)))
			return result, fmt.Errorf("%w: %s (%s)", shared.ErrPlaylistGone, name, destID)
		}
	}

	if result.Added > 0 {
		e.notify(success(AddTracks, fmt.Sprintf("Added %d new tracks to %s", result.Added, name)))
	} else {
		e.notify(info(AddTracks, fmt.Sprintf("No new tracks to add to %s", name)))
	}

	if err := e.store.MarkCompleted(playlist.ID); err != nil {
		return result, err
	}
	if err := e.store.Save(); err != nil {
		return result, err
	}
	result.Completed = true
	e.notify(success(CompletePlaylist, fmt.Sprintf("Completed %s", name)))
	return result, nil
}

// resolveDestination finds or creates the destination playlist and reads its current contents
// into result.baseline.
func (e *Engine) resolveDestination(ctx context.Context, playlist models.Playlist, name string, force bool, result *PlaylistResult) (string, error) {
	if !force {
		if m, ok := e.store.Mapping(playlist.ID); ok {
			tracks, outcome := e.catalog.VerifyPlaylist(ctx, m.YouTubeID)
			switch outcome {
			case services.OK:
				result.baseline = videoIDs(tracks)
				e.notify(info(VerifyPlaylist, fmt.Sprintf("Found %d existing tracks in %s", len(result.baseline), name)))
				return m.YouTubeID, nil
			case services.Gone:
				e.store.ForgetMapping(playlist.ID)
				e.notify(warning(VerifyPlaylist, fmt.Sprintf("Cached playlist %s no longer exists, looking it up again", name)))
				return e.lookupOrCreate(ctx, playlist, name, m.YouTubeID, result)
			default:
				e.notify(warning(VerifyPlaylist, fmt.Sprintf("Could not fetch existing tracks for %s (%s)", name, outcome)))
				return m.YouTubeID, nil
			}
		}
	}
	return e.lookupOrCreate(ctx, playlist, name, "", result)
}

// lookupOrCreate resolves the destination by title, then by creating it. stale is a destination id
// known to be gone and is never reused.
func (e *Engine) lookupOrCreate(ctx context.Context, playlist models.Playlist, name, stale string, result *PlaylistResult) (string, error) {
	e.notify(info(ResolvePlaylist, fmt.Sprintf("Checking if playlist %s exists in YouTube Music", name)))

	id, outcome := e.catalog.PlaylistExists(ctx, name)
	if outcome == services.OK && id != "" && id != stale {
		e.notify(info(ResolvePlaylist, fmt.Sprintf("Playlist %s already exists", name)))
		tracks, outcome := e.catalog.VerifyPlaylist(ctx, id)
		if outcome != services.OK {
			e.notify(failure(VerifyPlaylist, fmt.Sprintf("Playlist %s exists but is not accessible (%s)", name, outcome)))
			return "", fmt.Errorf("%w: %s is not accessible: %s", shared.ErrPlaylistCreation, name, outcome)
		}
		result.baseline = videoIDs(tracks)
		return id, nil
	}

	e.notify(info(CreatePlaylist, fmt.Sprintf("Creating playlist %s", name)))
	id, outcome = e.catalog.CreatePlaylist(ctx, name, description(playlist))
	if outcome != services.OK || id == "" {
		e.notify(failure(CreatePlaylist, fmt.Sprintf("Failed to create playlist %s", name)))
		return "", fmt.Errorf("%w: %s: %s", shared.ErrPlaylistCreation, name, outcome)
	}

	tracks, outcome := e.catalog.VerifyPlaylist(ctx, id)
	if outcome != services.OK {
		e.notify(failure(VerifyPlaylist, fmt.Sprintf("Created playlist %s but it is not accessible", name)))
		return "", fmt.Errorf("%w: %s was created as %s but is not accessible", shared.ErrPlaylistCreation, name, id)
	}

	result.Created = true
	result.baseline = videoIDs(tracks)
	e.notify(success(CreatePlaylist, fmt.Sprintf("Created playlist %s with ID %s", name, id)))
	return id, nil
}

func (e *Engine) collectTracks(ctx context.Context, playlist models.Playlist) ([]models.Track, error) {
	e.notify(info(FetchTracks, fmt.Sprintf("Fetching tracks for %s from Spotify", playlist.Name)))

	var tracks []models.Track
	for tr, err := range e.source.StreamTracks(ctx, playlist.ID) {
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, e.interrupted(ctxErr)
			}
			e.notify(failure(FetchTracks, fmt.Sprintf("Failed to fetch tracks for %s", playlist.Name)))
			return nil, fmt.Errorf("failed to fetch tracks for %s: %w", playlist.Name, err)
		}
		tracks = append(tracks, tr)
	}

	e.notify(info(FetchTracks, fmt.Sprintf("Loaded %d tracks from %s", len(tracks), playlist.Name)))
	return tracks, nil
}

// processChunk resolves each track of chunk and returns the video ids to insert. seen holds every
// video id that is present in or already staged for the destination and is updated in place.
func (e *Engine) processChunk(
	ctx context.Context,
	playlist models.Playlist,
	name string,
	chunk []models.Track,
	offset, total int,
	seen map[string]struct{},
	force bool,
	result *PlaylistResult,
) ([]string, error) {
	var staged []string

	stage := func(id string) bool {
		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}
		staged = append(staged, id)
		return true
	}

	for i, tr := range chunk {
		if err := ctx.Err(); err != nil {
			return staged, err
		}
		step := offset + i + 1

		if !force {
			if cached, ok := e.store.Resolution(playlist.ID, tr.ID); ok {
				switch {
				case cached.Status == state.Found && cached.VideoID != "":
					outcome := TrackExists
					if stage(cached.VideoID) {
						outcome = TrackCached
					}
					e.notify(trackUpdate(step, total, tr, outcome))
					continue
				case cached.Status == state.NotFound:
					e.notify(trackUpdate(step, total, tr, TrackSkipped))
					continue
				}
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return staged, err
		}

		match, outcome := e.catalog.SearchTrack(ctx, tr.Title, tr.ArtistLine(), tr.Album)
		switch {
		case match != nil:
			trackOutcome := TrackExists
			if stage(match.VideoID) {
				result.Migrated++
				trackOutcome = TrackFound
			}
			e.store.SetResolution(playlist.ID, tr.ID, state.Found, match.VideoID)
			e.notify(trackUpdate(step, total, tr, trackOutcome))
		case outcome == services.AuthExpired:
			if err := ctx.Err(); err != nil {
				return staged, err
			}
			result.fail(name, tr)
			e.notify(trackUpdate(step, total, tr, TrackAuth))
		default:
			if err := ctx.Err(); err != nil {
				return staged, err
			}
			e.store.SetResolution(playlist.ID, tr.ID, state.NotFound, "")
			result.fail(name, tr)
			e.notify(trackUpdate(step, total, tr, TrackNotFound))
		}
	}
	return staged, nil
}

func (r *PlaylistResult) fail(name string, tr models.Track) {
	r.Failed++
	r.FailedTracks = append(r.FailedTracks, models.NewFailedTrack(name, tr))
}

// flush adds staged ids in batches. A batch that fails twice is skipped unless the playlist itself
// is gone, in which case gone is reported and no further batch is attempted.
func (e *Engine) flush(ctx context.Context, destID, name string, staged []string, result *PlaylistResult) (gone bool, err error) {
	if len(staged) == 0 {
		return false, nil
	}

	added := 0
	for start := 0; start < len(staged); start += e.batchSize {
		batch := staged[start:min(start+e.batchSize, len(staged))]

		if e.catalog.AddTracks(ctx, destID, batch) != services.OK {
			e.notify(warning(AddTracks, fmt.Sprintf("Adding %d tracks failed, retrying in %s", len(batch), e.backoff)))
			if err := e.sleep(ctx, e.backoff); err != nil {
				return false, e.interrupted(err)
			}

			if e.catalog.AddTracks(ctx, destID, batch) != services.OK {
				result.FailedBatches++
				e.notify(warning(AddTracks, fmt.Sprintf("Failed to add batch of %d tracks to %s", len(batch), name)))

				if e.catalog.CheckPlaylist(ctx, destID) == services.Gone {
					return true, nil
				}
				e.notify(warning(AddTracks, "Playlist exists but batch add failed, continuing with the next batch"))
				continue
			}
		}

		added += len(batch)
		result.Added += len(batch)
	}

	e.notify(batchUpdate(added, len(staged), name))
	return false, nil
}

// interrupted persists progress before a cancellation unwinds.
func (e *Engine) interrupted(err error) error {
	if saveErr := e.store.Save(); saveErr != nil {
		e.logger.Error("failed to save migration state", "error", saveErr)
	}
	return err
}

func (e *Engine) notify(u ProgressUpdate) {
	e.presenter.Notify(u)
}

func videoIDs(tracks []models.DestinationTrack) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.VideoID != "" {
			ids = append(ids, t.VideoID)
		}
	}
	return ids
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
