package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/driftsync/driftsync-api/internal/models"
	"github.com/pkg/errors"
)

// Fingerprint hashes the canonical form of a snapshot. encoding/json emits
// map keys in sorted order and struct fields in declaration order, and
// canonicalize normalizes the slice-valued collections, so equal snapshots
// always produce equal hashes. Two snapshots are defined equal iff their
// fingerprints match.
func Fingerprint(snap models.Snapshot) (string, error) {
	payload, err := json.Marshal(canonicalize(snap))
	if err != nil {
		return "", errors.Wrap(err, "canonicalize snapshot")
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize returns a copy of the snapshot with order-insensitive
// collections sorted. The catalogs give foreign keys, indexes, and routines
// no meaningful order, so the hash must not depend on it. Column and
// primary-key order carry meaning and are left as introspected.
func canonicalize(snap models.Snapshot) models.Snapshot {
	out := snap

	out.Tables = make(map[string]models.TableSchema, len(snap.Tables))
	for name, table := range snap.Tables {
		fks := append([]models.ForeignKey(nil), table.ForeignKeys...)
		sort.Slice(fks, func(i, j int) bool {
			if fks[i].Column != fks[j].Column {
				return fks[i].Column < fks[j].Column
			}
			if fks[i].ReferencesTable != fks[j].ReferencesTable {
				return fks[i].ReferencesTable < fks[j].ReferencesTable
			}
			return fks[i].ReferencesColumn < fks[j].ReferencesColumn
		})
		table.ForeignKeys = fks

		idxs := append([]models.IndexSchema(nil), table.Indexes...)
		sort.Slice(idxs, func(i, j int) bool { return idxs[i].Name < idxs[j].Name })
		table.Indexes = idxs

		out.Tables[name] = table
	}

	fns := append([]models.RoutineSchema(nil), snap.Functions...)
	sort.Slice(fns, func(i, j int) bool { return fns[i].Name < fns[j].Name })
	out.Functions = fns

	return out
}
