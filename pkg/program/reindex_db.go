package program

import (
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// ReindexFromDB rebuilds the committed id set by iterating the backing
// database directly at startup, mirroring record.Store.ReindexFromDB.
func (s *Store) ReindexFromDB(db dbm.DB) error {
	ids, err := scanProgramIDs(db)
	if err != nil {
		return fmt.Errorf("program store reindex: %w", err)
	}
	s.Reindex(ids)
	return nil
}

func scanProgramIDs(db dbm.DB) ([]string, error) {
	start := append([]byte{}, keyProgramPrefix...)
	end := append([]byte{}, keyProgramPrefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			end = end[:i+1]
			break
		}
	}

	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	defer it.Close()

	var ids []string
	for ; it.Valid(); it.Next() {
		ids = append(ids, string(it.Key()[len(keyProgramPrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return ids, nil
}
