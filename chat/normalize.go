package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrNoActions indicates the transcript yielded no parseable action records.
var ErrNoActions = errors.New("no actions found in chat file")

// wrapper keys identifying a single action object at the top level.
const (
	keyReplayAction = "replayChatItemAction"
	keyLiveAction   = "addChatItemAction"
)

// LoadActions reads a transcript file and normalizes it into raw actions.
func LoadActions(path string) ([]Action, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chat file: %w", err)
	}
	actions, err := ParseActions(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return actions, nil
}

// ParseActions accepts the three container shapes live-chat capture tools
// produce and returns the contained actions in input order:
//
//  1. a single object with an "actions" list
//  2. a single action object (carries a recognized wrapper key)
//  3. a bare list of action objects
//  4. line-delimited JSON, one action per line (unparseable lines dropped)
//
// It fails only when every strategy yields zero actions.
func ParseActions(raw []byte) ([]Action, error) {
	trimmed := strings.TrimSpace(string(raw))

	var top any
	if err := json.Unmarshal([]byte(trimmed), &top); err == nil {
		switch v := top.(type) {
		case map[string]any:
			if list, ok := listAt(v, "actions"); ok {
				return toActions(list), nil
			}
			if _, ok := v[keyReplayAction]; ok {
				return []Action{v}, nil
			}
			if _, ok := v[keyLiveAction]; ok {
				return []Action{v}, nil
			}
			// Unrecognized object shape; fall through to the JSONL path.
		case []any:
			return toActions(v), nil
		}
	}

	// JSONL fallback: parse line by line, tolerate garbage lines.
	var actions []Action
	dropped := 0
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			dropped++
			continue
		}
		actions = append(actions, obj)
	}
	if dropped > 0 {
		slog.Debug("dropped unparseable transcript lines", slog.Int("count", dropped))
	}
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	return actions, nil
}

func toActions(list []any) []Action {
	actions := make([]Action, 0, len(list))
	for _, v := range list {
		if m, ok := asMap(v); ok {
			actions = append(actions, m)
		}
	}
	return actions
}
