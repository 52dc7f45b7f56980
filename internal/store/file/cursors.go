package file

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// cursorFile holds all distribution cursors in one JSON document guarded by
// a process-wide mutex, which makes Advance atomic for concurrent callers.
type cursorFile struct {
	mu   sync.Mutex
	path string
	pos  map[string]int
}

func newCursorFile(path string) (*cursorFile, error) {
	c := &cursorFile{path: path, pos: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("read cursors: %w", err)
	}
	if err := json.Unmarshal(data, &c.pos); err != nil {
		return nil, fmt.Errorf("decode cursors: %w", err)
	}
	return c, nil
}

// Advance claims the current roster index for tenantID and moves the cursor
// forward, wrapping stale positions modulo rosterLen. The claim is valid the
// moment the in-memory cursor moves; a failed persist only degrades restart
// recovery, so it is logged and the claimed index is still returned.
func (c *cursorFile) Advance(tenantID string, rosterLen int) (int, error) {
	if rosterLen <= 0 {
		return 0, fmt.Errorf("advance cursor: empty roster")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.pos[tenantID] % rosterLen
	c.pos[tenantID] = (idx + 1) % rosterLen

	data, err := json.MarshalIndent(c.pos, "", "  ")
	if err != nil {
		slog.Error("cursor encode failed, position held in memory only",
			"tenant_id", tenantID, "error", err)
		return idx, nil
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		slog.Error("cursor persist failed, position held in memory only",
			"tenant_id", tenantID, "error", err)
	}
	return idx, nil
}
