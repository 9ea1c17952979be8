package kv

import (
	"fmt"
	"strconv"
	"strings"
)

// TxnConfig is the parsed form of a transaction-layer configuration string:
// comma-separated key=value pairs such as
// "read_timestamp=a,commit_timestamp=1e" or "checkpoint=ckpt1,debug=(checkpoint_read_timestamp=f)".
type TxnConfig struct {
	ReadTimestamp     Timestamp
	CommitTimestamp   Timestamp
	DurableTimestamp  Timestamp
	PrepareTimestamp  Timestamp
	StableTimestamp   Timestamp
	Checkpoint        string
	DebugReadTS       Timestamp
	HasReadTimestamp  bool
	HasCommitTS       bool
	HasDurableTS      bool
	HasPrepareTS      bool
	HasStableTS       bool
	HasCheckpoint     bool
	HasDebugReadTS    bool
}

// ParseTxnConfig parses the transaction layer's key=value configuration
// string grammar (spec's external-interfaces configuration strings):
//
//	read_timestamp=<hex u64>, commit_timestamp=<hex u64>,
//	durable_timestamp=<hex u64>, prepare_timestamp=<hex u64>,
//	stable_timestamp=<hex u64>,
//	checkpoint=<name>[,debug=(checkpoint_read_timestamp=<hex u64>)]
//
// Each key is handled by its own switch case, the same shape
// storage.ParseStorageMode uses for its single-token mode string.
func ParseTxnConfig(s string) (TxnConfig, error) {
	var cfg TxnConfig
	if strings.TrimSpace(s) == "" {
		return cfg, nil
	}

	for _, tok := range splitTopLevel(s) {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			return cfg, fmt.Errorf("kv: malformed config token %q: %w", tok, ErrInvalidArgument)
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)

		switch key {
		case "read_timestamp":
			ts, err := parseHexTimestamp(val)
			if err != nil {
				return cfg, err
			}
			cfg.ReadTimestamp, cfg.HasReadTimestamp = ts, true
		case "commit_timestamp":
			ts, err := parseHexTimestamp(val)
			if err != nil {
				return cfg, err
			}
			cfg.CommitTimestamp, cfg.HasCommitTS = ts, true
		case "durable_timestamp":
			ts, err := parseHexTimestamp(val)
			if err != nil {
				return cfg, err
			}
			cfg.DurableTimestamp, cfg.HasDurableTS = ts, true
		case "prepare_timestamp":
			ts, err := parseHexTimestamp(val)
			if err != nil {
				return cfg, err
			}
			cfg.PrepareTimestamp, cfg.HasPrepareTS = ts, true
		case "stable_timestamp":
			ts, err := parseHexTimestamp(val)
			if err != nil {
				return cfg, err
			}
			cfg.StableTimestamp, cfg.HasStableTS = ts, true
		case "checkpoint":
			name, debugTS, hasDebug, err := parseCheckpointValue(val)
			if err != nil {
				return cfg, err
			}
			cfg.Checkpoint, cfg.HasCheckpoint = name, true
			if hasDebug {
				cfg.DebugReadTS, cfg.HasDebugReadTS = debugTS, true
			}
		default:
			return cfg, fmt.Errorf("kv: unknown config key %q: %w", key, ErrInvalidArgument)
		}
	}
	return cfg, nil
}

// parseCheckpointValue handles "<name>" or "<name>,debug=(checkpoint_read_timestamp=<hex>)"
// nested inside the checkpoint= value (the debug clause arrives as part of
// val because splitTopLevel does not split before a ",debug=(" clause).
func parseCheckpointValue(val string) (name string, debugTS Timestamp, hasDebug bool, err error) {
	name = val
	if idx := strings.Index(val, ",debug=("); idx >= 0 {
		name = val[:idx]
		rest := val[idx+len(",debug=("):]
		rest = strings.TrimSuffix(rest, ")")
		k, v, ok := strings.Cut(rest, "=")
		if !ok || strings.TrimSpace(k) != "checkpoint_read_timestamp" {
			return "", 0, false, fmt.Errorf("kv: malformed checkpoint debug clause %q: %w", val, ErrInvalidArgument)
		}
		ts, perr := parseHexTimestamp(strings.TrimSpace(v))
		if perr != nil {
			return "", 0, false, perr
		}
		debugTS, hasDebug = ts, true
	}
	return name, debugTS, hasDebug, nil
}

// splitTopLevel splits s on commas that are not inside parentheses. A comma
// directly followed by "debug=(" is not a split point either, so a
// ",debug=(...)" clause stays attached to the token before it.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 && !strings.HasPrefix(s[i+1:], "debug=(") {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

func parseHexTimestamp(val string) (Timestamp, error) {
	n, err := strconv.ParseUint(val, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("kv: invalid hex timestamp %q: %w", val, ErrInvalidArgument)
	}
	return Timestamp(n), nil
}
