package storage

import "slices"

func (s *Storage) DisableGroup(guildID, group string) error {
	return s.update(guildID, func(r *Record) bool {
		if slices.Contains(r.CommandsDisabled, group) {
			return false
		}
		r.CommandsDisabled = append(r.CommandsDisabled, group)
		return true
	})
}

func (s *Storage) EnableGroup(guildID, group string) error {
	return s.update(guildID, func(r *Record) bool {
		n := len(r.CommandsDisabled)
		r.CommandsDisabled = slices.DeleteFunc(r.CommandsDisabled, func(g string) bool { return g == group })
		return len(r.CommandsDisabled) != n
	})
}

func (s *Storage) IsGroupDisabled(guildID, group string) (bool, error) {
	record, err := s.view(guildID)
	if err != nil {
		return false, err
	}
	return slices.Contains(record.CommandsDisabled, group), nil
}

func (s *Storage) GetDisabledGroups(guildID string) ([]string, error) {
	record, err := s.view(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsDisabled, nil
}
