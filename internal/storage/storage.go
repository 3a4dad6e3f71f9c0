package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/keshon/datastore"
	"github.com/rs/zerolog"
)

const commandHistoryLimit = 20

// ErrNotConnected is returned by every accessor before Connect succeeded.
var ErrNotConnected = errors.New("storage: not connected")

// Storage is a thin domain layer over a JSON document store. It is created
// unconnected; the ready event opens the file with Connect.
type Storage struct {
	path         string
	saveInterval time.Duration
	log          zerolog.Logger

	mu     sync.RWMutex
	ds     *datastore.DataStore
	cancel context.CancelFunc
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger routes datastore warnings and errors to log.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Storage) { s.log = log }
}

// WithSaveInterval sets how often the datastore flushes to disk.
func WithSaveInterval(d time.Duration) Option {
	return func(s *Storage) { s.saveInterval = d }
}

// CommandHistory is one executed command, kept per guild.
type CommandHistory struct {
	ChannelID string    `json:"channel_id"`
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Args      string    `json:"args,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Datetime  time.Time `json:"datetime"`
}

// Record is the per-guild document.
type Record struct {
	CommandsHistory []CommandHistory `json:"commands_history"`
}

func New(path string, opts ...Option) *Storage {
	s := &Storage{path: path, saveInterval: time.Minute, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Connect opens the backing file. Calling it again is a no-op. The datastore
// autosaves until ctx is done or Close is called.
func (s *Storage) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds != nil {
		return nil
	}
	dctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(dctx, s.path,
		datastore.WithSaveInterval(s.saveInterval),
		datastore.WithLogger(slog.New(slog.NewTextHandler(s.log, &slog.HandlerOptions{Level: slog.LevelWarn}))),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("open datastore %s: %w", s.path, err)
	}
	s.ds, s.cancel = ds, cancel
	return nil
}

// Connected reports whether Connect has succeeded.
func (s *Storage) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ds != nil
}

// Close stops autosave, flushes and closes the backing file.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ds == nil {
		return nil
	}
	s.cancel()
	err := s.ds.Close()
	s.ds, s.cancel = nil, nil
	return err
}

func (s *Storage) store() (*datastore.DataStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, ErrNotConnected
	}
	return s.ds, nil
}

func guildKey(guildID string) string {
	if guildID == "" {
		return "guild:dm"
	}
	return "guild:" + guildID
}

func getOrCreateGuildRecord(ds *datastore.DataStore, guildID string) (*Record, error) {
	record := &Record{CommandsHistory: []CommandHistory{}}
	if _, err := ds.Get(guildKey(guildID), record); err != nil {
		return nil, err
	}
	return record, nil
}
