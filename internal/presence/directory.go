package presence

import (
	"fmt"
	"sync"

	"echospace/backend/internal/models"
	"echospace/backend/internal/storage"

	"golang.org/x/sync/singleflight"
)

// Directory is a process-wide read-through cache mapping profile IDs to
// public profiles. It is shared across rooms and never invalidated except by
// an explicit profile update. Lookup failure degrades rendering (unknown-user
// placeholder); it is never fatal to presence sync.
type Directory struct {
	mu       sync.RWMutex
	storage  storage.Storage
	group    singleflight.Group
	profiles map[string]*models.Profile
}

func NewDirectory(s storage.Storage) *Directory {
	return &Directory{
		storage:  s,
		profiles: make(map[string]*models.Profile),
	}
}

// Get is a synchronous cache read.
func (d *Directory) Get(id string) (*models.Profile, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	profile, ok := d.profiles[id]
	return profile, ok
}

// Ensure returns the cached profile, fetching it from storage on first
// sighting. Concurrent calls for the same ID share a single in-flight fetch.
func (d *Directory) Ensure(id string) (*models.Profile, error) {
	if profile, ok := d.Get(id); ok {
		return profile, nil
	}

	v, err, _ := d.group.Do(id, func() (interface{}, error) {
		profile, err := d.storage.GetProfileByID(id)
		if err != nil {
			return nil, err
		}
		d.mu.Lock()
		d.profiles[id] = profile
		d.mu.Unlock()
		return profile, nil
	})
	if err != nil {
		return nil, fmt.Errorf("profile %s unavailable: %w", id, err)
	}
	return v.(*models.Profile), nil
}

// Put replaces a cached entry, for profile updates made through the API.
func (d *Directory) Put(profile *models.Profile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[profile.ID] = profile
}
