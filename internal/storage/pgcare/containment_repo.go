package pgcare

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

// ReplaceContainment overwrites the patient's containment snapshot with the
// full current mapping (replace, not merge): zones dropped from the active
// set disappear from the snapshot as well.
func (s *Storage) ReplaceContainment(ctx context.Context, patientID string, state map[string]bool) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStore(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM containment_states WHERE patient_id = $1`, patientID); err != nil {
		return wrapStore(err, "clear containment")
	}
	for zoneID, inside := range state {
		_, err := tx.Exec(ctx, `
INSERT INTO containment_states (patient_id, zone_id, inside, updated_at)
VALUES ($1,$2,$3, now())
`, patientID, zoneID, inside)
		if err != nil {
			return wrapStore(err, "insert containment")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapStore(err, "commit tx")
	}
	return nil
}

func (s *Storage) GetContainment(ctx context.Context, patientID string) (map[string]bool, error) {
	rows, err := s.db.Query(ctx, `SELECT zone_id, inside FROM containment_states WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, wrapStore(err, "select containment")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var zoneID string
		var inside bool
		if err := rows.Scan(&zoneID, &inside); err != nil {
			return nil, errors.Wrap(err, "scan containment")
		}
		out[zoneID] = inside
	}
	if rows.Err() != nil {
		return nil, wrapStore(rows.Err(), "rows")
	}
	return out, nil
}
