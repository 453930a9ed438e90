// Package pipeline orchestrates the conversion of a BeReal export: it walks
// the manifest entries, resolves each declared media file, dispatches it
// through conversion and metadata injection, names the outputs, and runs the
// cross-entry passes (audio synchronization, combined images) at the end.
//
// Only a malformed manifest aborts a run. Everything else degrades: a missing
// file skips that media item, a failed conversion keeps the original bytes,
// and failed metadata or compositing is logged and survived.
package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"path"
	"sync"

	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/audiosync"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/compose"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/convert"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/ffmpeg"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/manifest"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/metadata"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/naming"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/runid"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/sources"
	"github.com/Lettly/bereal-gdpr-photo-toolkit/internal/storage"
)

// Settings is the per-run configuration. It is read once and never mutated
// mid-run.
type Settings struct {
	// ConvertToJPEG re-encodes WebP images to JPEG.
	ConvertToJPEG bool
	// KeepOriginalFilename appends the original basename to output names.
	KeepOriginalFilename bool
	// CreateCombinedImages composites each primary/secondary image pair.
	CreateCombinedImages bool
	// SyncAudio transplants audio between paired videos when exactly one
	// has a track.
	SyncAudio bool
	// Workers bounds how many entries are processed concurrently.
	// Values below 2 mean sequential processing.
	Workers int
}

// Result is what a run hands to the caller: the output artifacts and the
// aggregated counters.
type Result struct {
	Artifacts *ArtifactSet
	Stats     Stats
}

// Orchestrator composes the pipeline components per manifest entry.
type Orchestrator struct {
	settings Settings
	scratch  *storage.Scratch
	runner   *ffmpeg.Runner
	syncer   *audiosync.Synchronizer
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(settings Settings, scratch *storage.Scratch, runner *ffmpeg.Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		settings: settings,
		scratch:  scratch,
		runner:   runner,
		syncer:   audiosync.NewSynchronizer(runner),
		logger:   logger,
	}
}

// Run converts a whole export. Only manifest.ErrManifest is returned as an
// error; every other failure is logged and reflected in the stats.
func (o *Orchestrator) Run(ctx context.Context, rawManifest []byte, set *sources.Set) (*Result, error) {
	logger := o.logger.With(slog.String("run_id", runid.Generate()))

	entries, rejected, err := manifest.ParseEntries(rawManifest)
	if err != nil {
		return nil, err
	}

	result := &Result{Artifacts: NewArtifactSet()}

	for _, r := range rejected {
		logger.Warn("entry rejected",
			slog.Int("index", r.Index),
			slog.String("error", r.Err.Error()),
		)
		result.Stats.Skipped++
	}

	logger.Info("starting run",
		slog.Int("entries", len(entries)),
		slog.Int("rejected", len(rejected)),
		slog.Int("sources", set.Len()),
		slog.Bool("convert_to_jpeg", o.settings.ConvertToJPEG),
		slog.Bool("create_combined_images", o.settings.CreateCombinedImages),
	)

	results := o.processEntries(ctx, logger, entries, set)

	// Publish phase: sequential and in manifest order, so stats and
	// artifact ordering are reproducible regardless of worker count.
	for i, r := range results {
		if r.cancelled {
			logger.Warn("entry aborted, outputs discarded", slog.Int("index", i))
			continue
		}
		for _, m := range r.media {
			if m.state == StateSkipped {
				result.Stats.Skipped++
				continue
			}
			result.Artifacts.Put(m.artifact)
			result.Stats.Processed++
			if m.converted {
				result.Stats.Converted++
			}
		}
	}

	if ctx.Err() == nil && o.settings.SyncAudio {
		o.syncAudioPairs(ctx, logger, entries, results, result.Artifacts)
	}

	if ctx.Err() == nil && o.settings.CreateCombinedImages {
		o.combineImages(ctx, logger, entries, results, result)
	}

	logger.Info("run finished",
		slog.Int("processed", result.Stats.Processed),
		slog.Int("converted", result.Stats.Converted),
		slog.Int("combined", result.Stats.Combined),
		slog.Int("skipped", result.Stats.Skipped),
	)

	return result, nil
}

// processEntries runs the per-entry state machines, optionally in parallel.
// Entries are independent; outcomes land in a slice indexed by manifest
// position.
func (o *Orchestrator) processEntries(ctx context.Context, logger *slog.Logger, entries []manifest.Entry, set *sources.Set) []entryResult {
	results := make([]entryResult, len(entries))

	workers := o.settings.Workers
	if workers < 2 {
		for i, entry := range entries {
			if ctx.Err() != nil {
				results[i] = entryResult{cancelled: true}
				continue
			}
			results[i] = o.processEntry(ctx, logger, entry, set)
		}
		return results
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, entry manifest.Entry) {
			defer wg.Done()
			defer func() { <-sem }()
			if ctx.Err() != nil {
				results[i] = entryResult{cancelled: true}
				return
			}
			results[i] = o.processEntry(ctx, logger, entry, set)
		}(i, entry)
	}
	wg.Wait()

	return results
}

// processEntry runs the independent state machines of one entry's media
// items.
func (o *Orchestrator) processEntry(ctx context.Context, logger *slog.Logger, entry manifest.Entry, set *sources.Set) entryResult {
	take := metadata.Take{
		TakenAt:  entry.TakenAt,
		Location: entry.Location,
		Caption:  entry.Caption,
	}

	items := []struct {
		role naming.Role
		ref  manifest.MediaRef
	}{
		{naming.RolePrimary, entry.Primary},
		{naming.RoleSecondary, entry.Secondary},
	}
	if entry.BTS != nil {
		items = append(items, struct {
			role naming.Role
			ref  manifest.MediaRef
		}{naming.RoleBTS, *entry.BTS})
	}

	var result entryResult
	for _, item := range items {
		result.media = append(result.media, o.processMedia(ctx, logger, item.role, item.ref, entry, take, set))
	}
	if ctx.Err() != nil {
		result.cancelled = true
	}

	logger.Debug("entry processed",
		slog.Time("taken_at", entry.TakenAt),
		slog.String("outcome", string(result.outcome())),
	)
	return result
}

// processMedia drives one media item Located -> Emitted, or into Skipped.
func (o *Orchestrator) processMedia(ctx context.Context, logger *slog.Logger, role naming.Role, ref manifest.MediaRef, entry manifest.Entry, take metadata.Take, set *sources.Set) mediaResult {
	resolved, err := set.Locate(ref.Path)
	if err != nil {
		logger.Warn("media not found, skipping",
			slog.String("role", string(role)),
			slog.String("path", ref.Path),
		)
		return mediaResult{role: role, state: StateSkipped}
	}
	if resolved.Candidates > 1 {
		logger.Warn("ambiguous suffix match, taking first",
			slog.String("path", ref.Path),
			slog.String("matched", resolved.Name),
			slog.Int("candidates", resolved.Candidates),
		)
	}

	if ref.Type() == manifest.MediaTypeVideo {
		return o.processVideo(ctx, logger, role, ref, entry, take, resolved)
	}
	return o.processImage(logger, role, ref, entry, take, resolved)
}

// processImage converts, injects EXIF, and names a still image. Conversion
// and injection failures degrade to the previous bytes.
func (o *Orchestrator) processImage(logger *slog.Logger, role naming.Role, ref manifest.MediaRef, entry manifest.Entry, take metadata.Take, resolved sources.Resolved) mediaResult {
	result := mediaResult{role: role, state: StateLocated, isImage: true}

	data := resolved.Data
	if o.settings.ConvertToJPEG {
		converted, wasConverted, err := convert.ToJPEG(data, ref.Path)
		if err != nil {
			logger.Warn("conversion failed, keeping original bytes",
				slog.String("path", ref.Path),
				slog.String("error", err.Error()),
			)
		}
		data = converted
		result.converted = wasConverted
	}
	result.state = StateConverted

	injected, err := metadata.InjectImage(data, take)
	if err != nil {
		logger.Warn("image metadata injection failed, keeping bytes as-is",
			slog.String("path", ref.Path),
			slog.String("error", err.Error()),
		)
	}
	data = injected
	result.state = StateMetadataWritten

	filename := naming.Filename(entry.TakenAt, role, ref.Path, result.converted, o.settings.ConvertToJPEG, o.settings.KeepOriginalFilename)
	result.state = StateNamed

	result.artifact = Artifact{Filename: filename, Data: data, Role: role}
	result.state = StateEmitted
	return result
}

// processVideo stages a video to scratch, rewrites its container metadata,
// and names it. Videos are never format-converted; any failure keeps the
// original container bytes.
func (o *Orchestrator) processVideo(ctx context.Context, logger *slog.Logger, role naming.Role, ref manifest.MediaRef, entry manifest.Entry, take metadata.Take, resolved sources.Resolved) mediaResult {
	result := mediaResult{role: role, state: StateLocated, isVideo: true}
	data := resolved.Data

	srcPath, err := o.scratch.SaveTemp(ctx, path.Base(ref.Path), bytes.NewReader(data))
	if err != nil {
		logger.Warn("staging video failed, keeping bytes as-is",
			slog.String("path", ref.Path),
			slog.String("error", err.Error()),
		)
	} else {
		// Keep the source container: the output filename carries the
		// declared extension, so the tagged copy must match it.
		ext := path.Ext(ref.Path)
		if ext == "" {
			ext = ".mp4"
		}
		dstPath := srcPath + ".tagged" + ext
		if err := metadata.InjectVideo(ctx, o.runner, srcPath, dstPath, take); err != nil {
			logger.Warn("video metadata injection failed, keeping bytes as-is",
				slog.String("path", ref.Path),
				slog.String("error", err.Error()),
			)
		} else if tagged, err := o.scratch.LoadTemp(ctx, dstPath); err != nil {
			logger.Warn("reading tagged video failed, keeping bytes as-is",
				slog.String("path", ref.Path),
				slog.String("error", err.Error()),
			)
		} else {
			data = tagged
		}
		if err := o.scratch.CleanupTemp(ctx, []string{srcPath, dstPath}); err != nil {
			logger.Debug("scratch cleanup incomplete", slog.String("error", err.Error()))
		}
	}
	result.state = StateMetadataWritten

	// Videos pass neither conversion flag to the naming engine; they keep
	// their container extension.
	filename := naming.Filename(entry.TakenAt, role, ref.Path, false, false, o.settings.KeepOriginalFilename)
	result.state = StateNamed

	result.artifact = Artifact{Filename: filename, Data: data, Role: role}
	result.state = StateEmitted
	return result
}

// videoPair tracks the primary/secondary video outputs sharing one capture
// timestamp.
type videoPair struct {
	primary   string
	secondary string
}

// syncAudioPairs groups emitted primary/secondary videos by bit-identical
// capture timestamp and transplants audio within each pair that needs it.
// Failures leave the pair unsynced.
func (o *Orchestrator) syncAudioPairs(ctx context.Context, logger *slog.Logger, entries []manifest.Entry, results []entryResult, artifacts *ArtifactSet) {
	pairs := make(map[int64]*videoPair)
	var order []int64

	for i, r := range results {
		if r.cancelled {
			continue
		}
		for _, m := range r.media {
			if !m.isVideo || m.state != StateEmitted {
				continue
			}
			key := entries[i].TakenAt.UnixNano()
			p, ok := pairs[key]
			if !ok {
				p = &videoPair{}
				pairs[key] = p
				order = append(order, key)
			}
			switch m.role {
			case naming.RolePrimary:
				p.primary = m.artifact.Filename
			case naming.RoleSecondary:
				p.secondary = m.artifact.Filename
			}
		}
	}

	for _, key := range order {
		p := pairs[key]
		if p.primary == "" || p.secondary == "" {
			continue
		}
		o.syncPair(ctx, logger, p, artifacts)
	}
}

// syncPair probes one primary/secondary pair and, when exactly one side has
// audio, rewrites the silent side's artifact with the donor's track.
func (o *Orchestrator) syncPair(ctx context.Context, logger *slog.Logger, p *videoPair, artifacts *ArtifactSet) {
	primary, okP := artifacts.Get(p.primary)
	secondary, okS := artifacts.Get(p.secondary)
	if !okP || !okS {
		return
	}

	primaryPath, err := o.scratch.SaveTemp(ctx, primary.Filename, bytes.NewReader(primary.Data))
	if err != nil {
		logger.Warn("audio sync staging failed, videos kept unsynced", slog.String("error", err.Error()))
		return
	}
	secondaryPath, err := o.scratch.SaveTemp(ctx, secondary.Filename, bytes.NewReader(secondary.Data))
	if err != nil {
		logger.Warn("audio sync staging failed, videos kept unsynced", slog.String("error", err.Error()))
		_ = o.scratch.CleanupTemp(ctx, []string{primaryPath})
		return
	}
	cleanup := []string{primaryPath, secondaryPath}
	defer func() {
		if err := o.scratch.CleanupTemp(ctx, cleanup); err != nil {
			logger.Debug("scratch cleanup incomplete", slog.String("error", err.Error()))
		}
	}()

	plan, err := o.syncer.Evaluate(ctx, primaryPath, secondaryPath)
	if err != nil {
		logger.Warn("audio probe failed, videos kept unsynced",
			slog.String("primary", primary.Filename),
			slog.String("error", err.Error()),
		)
		return
	}

	var silent Artifact
	var silentPath, donorPath string
	switch plan {
	case audiosync.PlanPrimaryDonor:
		silent, silentPath, donorPath = secondary, secondaryPath, primaryPath
	case audiosync.PlanSecondaryDonor:
		silent, silentPath, donorPath = primary, primaryPath, secondaryPath
	default:
		logger.Info("no audio transplant needed",
			slog.String("primary", primary.Filename),
			slog.String("secondary", secondary.Filename),
		)
		return
	}

	outPath := silentPath + ".synced.mp4"
	cleanup = append(cleanup, outPath)
	if err := o.syncer.Transplant(ctx, silentPath, donorPath, outPath); err != nil {
		logger.Warn("audio transplant failed, videos kept unsynced",
			slog.String("silent", silent.Filename),
			slog.String("error", err.Error()),
		)
		return
	}

	synced, err := o.scratch.LoadTemp(ctx, outPath)
	if err != nil {
		logger.Warn("reading synced video failed, videos kept unsynced", slog.String("error", err.Error()))
		return
	}

	silent.Data = synced
	artifacts.Put(silent)
	logger.Info("audio transplanted",
		slog.String("silent", silent.Filename),
		slog.String("plan", string(plan)),
	)
}

// combineImages pairs up the processed primary and secondary images across
// the whole run and emits one combined artifact per pair. A count mismatch
// between the two sides skips compositing entirely with a warning.
func (o *Orchestrator) combineImages(ctx context.Context, logger *slog.Logger, entries []manifest.Entry, results []entryResult, result *Result) {
	type processedImage struct {
		entryIndex int
		artifact   Artifact
	}

	var primaries, secondaries []processedImage
	for i, r := range results {
		if r.cancelled {
			continue
		}
		for _, m := range r.media {
			if !m.isImage || m.state != StateEmitted {
				continue
			}
			img := processedImage{entryIndex: i, artifact: m.artifact}
			switch m.role {
			case naming.RolePrimary:
				primaries = append(primaries, img)
			case naming.RoleSecondary:
				secondaries = append(secondaries, img)
			}
		}
	}

	if len(primaries) != len(secondaries) {
		logger.Warn("primary/secondary image counts differ, skipping combined images",
			slog.Int("primary", len(primaries)),
			slog.Int("secondary", len(secondaries)),
		)
		return
	}

	for i := range primaries {
		if ctx.Err() != nil {
			return
		}
		combined, err := compose.Combine(primaries[i].artifact.Data, secondaries[i].artifact.Data)
		if err != nil {
			logger.Warn("compositing failed, pair skipped",
				slog.String("primary", primaries[i].artifact.Filename),
				slog.String("error", err.Error()),
			)
			continue
		}

		takenAt := entries[primaries[i].entryIndex].TakenAt
		result.Artifacts.Put(Artifact{
			Filename: naming.CombinedFilename(takenAt),
			Data:     combined,
			Role:     naming.RoleCombined,
		})
		result.Stats.Combined++
	}
}
