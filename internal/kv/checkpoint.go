package kv

import "sort"

// Checkpoint is an immutable logical snapshot of every table in a Database,
// bounded by the stable_ts in effect when it was created. Its visible set
// is fixed at creation and never mutates (I5) — every key's history is
// copied out of the live tables rather than queried against them.
type Checkpoint struct {
	Name       string
	StableTSAt Timestamp
	unbounded  bool // true if stable_ts had never been set at creation
	tables     map[string]map[string][]committedVersion
}

// newCheckpoint materializes a snapshot of db's current tables, bounded by
// stableTS (or unbounded, if stable_ts has never been set).
func newCheckpoint(name string, db *Database, stableTS Timestamp, unbounded bool) *Checkpoint {
	c := &Checkpoint{
		Name:       name,
		StableTSAt: stableTS,
		unbounded:  unbounded,
		tables:     make(map[string]map[string][]committedVersion),
	}
	for tableName, table := range db.snapshotTables() {
		keys := make(map[string][]committedVersion)
		for _, key := range table.Keys() {
			versions := table.history(key).snapshotUpTo(stableTS, unbounded)
			if len(versions) > 0 {
				keys[key] = versions
			}
		}
		c.tables[tableName] = keys
	}
	return c
}

// Keys returns, in lexicographic order, the keys of table that have at
// least one version visible in this checkpoint. Used by block cursors
// scoped to a checkpoint to walk its rows in key order.
func (c *Checkpoint) Keys(table string) []string {
	keys, ok := c.tables[table]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the value visible in this checkpoint for key in table, i.e.
// the committed Update with the greatest commit_ts <= StableTSAt, or the
// newest committed Update if stable_ts had never been set at creation.
func (c *Checkpoint) Get(table, key string) (Value, error) {
	return c.GetAt(table, key, LatestTimestamp)
}

// GetAt reads key as of this checkpoint with an additional debug
// read-timestamp overlaid as a further upper bound on visibility. Passing
// LatestTimestamp applies no additional bound beyond the checkpoint's own.
func (c *Checkpoint) GetAt(table, key string, debugReadTS Timestamp) (Value, error) {
	keys, ok := c.tables[table]
	if !ok {
		return nil, ErrNotFound
	}
	versions, ok := keys[key]
	if !ok {
		return nil, ErrNotFound
	}

	bound := len(versions) - 1
	if debugReadTS != LatestTimestamp {
		bound = sort.Search(len(versions), func(i int) bool { return versions[i].CommitTS > debugReadTS }) - 1
	}
	if bound < 0 {
		return nil, ErrNotFound
	}
	v := versions[bound]
	if v.Tombstone {
		return nil, ErrNotFound
	}
	return v.Value, nil
}
