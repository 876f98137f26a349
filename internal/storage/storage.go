package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/keshon/prefixbot/datastore"
)

const commandHistoryLimit = 50

type Storage struct {
	mu sync.Mutex
	ds *datastore.DataStore
}

type CommandHistory struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Arguments string    `json:"arguments,omitempty"`
	Datetime  time.Time `json:"datetime"`
}

// Record is everything kept per guild.
type Record struct {
	Prefix           string           `json:"prefix,omitempty"`
	CommandsDisabled []string         `json:"commands_disabled"`
	CommandsHistory  []CommandHistory `json:"commands_history"`
}

func New(ds *datastore.DataStore) *Storage {
	return &Storage{ds: ds}
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// update loads the guild record, applies fn and writes it back when fn
// reports a change.
func (s *Storage) update(guildID string, fn func(r *Record) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.load(guildID)
	if err != nil {
		return err
	}
	if !fn(record) {
		return nil
	}
	if err := s.ds.Put(guildID, record); err != nil {
		return fmt.Errorf("save guild %s: %w", guildID, err)
	}
	return nil
}

func (s *Storage) view(guildID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(guildID)
}

func (s *Storage) load(guildID string) (*Record, error) {
	var record Record
	if _, err := s.ds.Get(guildID, &record); err != nil {
		return nil, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	if record.CommandsDisabled == nil {
		record.CommandsDisabled = []string{}
	}
	if record.CommandsHistory == nil {
		record.CommandsHistory = []CommandHistory{}
	}
	return &record, nil
}

// GetPrefix returns the guild's custom prefix, "" when none is set.
func (s *Storage) GetPrefix(guildID string) (string, error) {
	record, err := s.view(guildID)
	if err != nil {
		return "", err
	}
	return record.Prefix, nil
}

// SetPrefix stores a custom prefix; an empty prefix restores the default.
func (s *Storage) SetPrefix(guildID, prefix string) error {
	return s.update(guildID, func(r *Record) bool {
		if r.Prefix == prefix {
			return false
		}
		r.Prefix = prefix
		return true
	})
}

// AppendCommandHistory records an executed command, keeping the most recent
// entries only.
func (s *Storage) AppendCommandHistory(guildID string, entry CommandHistory) error {
	return s.update(guildID, func(r *Record) bool {
		r.CommandsHistory = append(r.CommandsHistory, entry)
		if len(r.CommandsHistory) > commandHistoryLimit {
			r.CommandsHistory = r.CommandsHistory[len(r.CommandsHistory)-commandHistoryLimit:]
		}
		return true
	})
}

// FetchCommandHistory returns up to limit entries, newest last. limit <= 0
// returns everything kept.
func (s *Storage) FetchCommandHistory(guildID string, limit int) ([]CommandHistory, error) {
	record, err := s.view(guildID)
	if err != nil {
		return nil, err
	}
	history := record.CommandsHistory
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history, nil
}
