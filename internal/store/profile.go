package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aceprep/backend/internal/domain/category"
	"github.com/aceprep/backend/internal/domain/stats"
	"github.com/aceprep/backend/internal/platform/logger"
)

// ProfileStore persists the single local profile as a JSON blob.
// It also keeps the latest profile in memory: a failed save never loses
// an update that has already been computed.
type ProfileStore struct {
	blobs  BlobStore
	key    string
	logger *logger.Logger

	mu      sync.Mutex
	current stats.UserStats
	dirty   bool // current has not reached storage yet
	loaded  bool // current reflects storage at least once

	// Sessions finished before the stored profile could be read. They are
	// replayed onto it by the first successful load.
	pending []sessionResult
}

type sessionResult struct {
	category     category.Category
	score, total int
}

func NewProfileStore(blobs BlobStore, key string, log *logger.Logger) *ProfileStore {
	if key == "" {
		key = DefaultProfileKey
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileStore{
		blobs:   blobs,
		key:     key,
		logger:  log.With("component", "ProfileStore"),
		current: stats.New(),
	}
}

// Load reads the stored profile. A missing or unparsable value yields a
// fresh profile; only a failing backend returns an error. While an earlier
// save is still unpersisted the in-memory profile wins.
func (p *ProfileStore) Load(ctx context.Context) (stats.UserStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

// Save writes profile and makes it the in-memory profile, even when the
// write fails.
func (p *ProfileStore) Save(ctx context.Context, profile stats.UserStats) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked(ctx, profile)
}

// Profile returns the in-memory profile without touching storage.
func (p *ProfileStore) Profile() stats.UserStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current.Clone()
}

// Apply folds a finished session into the profile as one critical section:
// read, transform, write. On a storage error the returned profile is still
// the updated one and is kept in memory.
//
// If the stored profile has never been read, a failed read leaves storage
// untouched: the session is held back and replayed onto the stored profile
// once it can be read.
func (p *ProfileStore) Apply(ctx context.Context, c category.Category, score, total int) (stats.UserStats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.loadLocked(ctx)
	if err != nil {
		if !p.loaded {
			p.logger.Warn("profile load failed, holding session until storage is readable", "error", err)
			p.pending = append(p.pending, sessionResult{category: c, score: score, total: total})
			p.current = stats.ApplySessionResult(p.current, c, score, total)
			return p.current.Clone(), err
		}
		p.logger.Warn("profile load failed, using in-memory profile", "error", err)
		prev = p.current.Clone()
	}

	next := stats.ApplySessionResult(prev, c, score, total)
	return next.Clone(), p.saveLocked(ctx, next)
}

func (p *ProfileStore) loadLocked(ctx context.Context) (stats.UserStats, error) {
	if p.dirty {
		return p.current.Clone(), nil
	}

	raw, err := p.blobs.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return p.loadedLocked(stats.New()), nil
	}
	if err != nil {
		return stats.UserStats{}, &StorageError{Op: "get", Key: p.key, Wrapped: err}
	}

	var s stats.UserStats
	if err := json.Unmarshal(raw, &s); err != nil {
		p.logger.Warn("stored profile is unreadable, starting fresh", "key", p.key, "error", err)
		return p.loadedLocked(stats.New()), nil
	}
	return p.loadedLocked(s.Normalize()), nil
}

// loadedLocked makes s the in-memory profile after a successful read,
// replaying any held-back sessions onto it.
func (p *ProfileStore) loadedLocked(s stats.UserStats) stats.UserStats {
	p.loaded = true
	if len(p.pending) > 0 {
		p.logger.Info("replaying sessions held back by a failed read", "sessions", len(p.pending))
		for _, r := range p.pending {
			s = stats.ApplySessionResult(s, r.category, r.score, r.total)
		}
		p.pending = nil
		p.dirty = true
	}
	p.current = s
	return s.Clone()
}

func (p *ProfileStore) saveLocked(ctx context.Context, profile stats.UserStats) error {
	p.current = profile.Clone()
	p.dirty = true
	p.pending = nil

	raw, err := json.Marshal(profile)
	if err != nil {
		return &StorageError{Op: "set", Key: p.key, Wrapped: err}
	}
	if err := p.blobs.Set(ctx, p.key, raw); err != nil {
		return &StorageError{Op: "set", Key: p.key, Wrapped: err}
	}
	p.dirty = false
	p.loaded = true
	return nil
}
