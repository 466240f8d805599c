package network

import (
	"encoding/json"
	"fmt"

	"github.com/quasilyte/gdata"
)

const profileKey = "profile"

// Profile is what a client remembers between runs.
type Profile struct {
	Name       string `json:"name"`
	PlayerID   string `json:"playerId"`
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty"`
}

// ProfileStore keeps a Profile in the user's data directory.
type ProfileStore struct {
	m *gdata.Manager
}

func OpenProfileStore(appName string) (*ProfileStore, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open profile store: %w", err)
	}
	return &ProfileStore{m: m}, nil
}

// Load returns the saved profile, or a zero profile if none was saved.
func (s *ProfileStore) Load() (Profile, error) {
	var p Profile
	data, err := s.m.LoadItem(profileKey)
	if err != nil {
		return p, fmt.Errorf("load profile: %w", err)
	}
	if data == nil {
		return p, nil
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) Save(p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.m.SaveItem(profileKey, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
