package storage

import (
	"fmt"

	"github.com/keshon/datastore"
)

const hashesKey = "commands:hashes"

// AppendCommandHistory records an executed command, keeping the most recent
// entries per guild.
func (s *Storage) AppendCommandHistory(rec CommandHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return ErrNotConnected
	}

	record, err := getOrCreateGuildRecord(s.ds, rec.GuildID)
	if err != nil {
		return err
	}
	record.CommandsHistory = append(record.CommandsHistory, rec)
	if n := len(record.CommandsHistory); n > commandHistoryLimit {
		record.CommandsHistory = record.CommandsHistory[n-commandHistoryLimit:]
	}
	if err := s.ds.Set(guildKey(rec.GuildID), record); err != nil {
		return fmt.Errorf("save command history: %w", err)
	}
	return nil
}

// CommandsHistory returns the recorded commands for a guild, oldest first.
func (s *Storage) CommandsHistory(guildID string) ([]CommandHistory, error) {
	ds, err := s.store()
	if err != nil {
		return nil, err
	}
	record, err := getOrCreateGuildRecord(ds, guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}

// CommandHash returns the last published command-set hash for scope
// (an application id, optionally suffixed with a guild id).
func (s *Storage) CommandHash(scope string) (string, bool, error) {
	ds, err := s.store()
	if err != nil {
		return "", false, err
	}
	hashes, err := commandHashes(ds)
	if err != nil {
		return "", false, err
	}
	h, ok := hashes[scope]
	return h, ok, nil
}

// SetCommandHash stores the published hash for scope. It reaches disk on the
// next autosave or on Close.
func (s *Storage) SetCommandHash(scope, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return ErrNotConnected
	}
	hashes, err := commandHashes(s.ds)
	if err != nil {
		return err
	}
	hashes[scope] = hash
	if err := s.ds.Set(hashesKey, hashes); err != nil {
		return fmt.Errorf("save command hashes: %w", err)
	}
	return nil
}

func commandHashes(ds *datastore.DataStore) (map[string]string, error) {
	out := map[string]string{}
	if _, err := ds.Get(hashesKey, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}
