package scriptctx

import (
	"os"

	"github.com/vmihailenco/msgpack/v5"
)

// snapshotDoc is the internal crash-recovery sidecar shape (SPEC_FULL.md
// §2 "supplement" — not the external, human/tool-readable running log,
// which stays JSON). msgpack keeps this compact. It is written only when
// WriteSnapshot is called; RecordStep writes the running log alone.
type snapshotDoc struct {
	ScriptName  string
	StartedAt   int64
	Steps       []StepRecord
	Metadata    map[string]any
	Variables   map[string]any
}

// WriteSnapshot serializes the context to path as msgpack, for resuming
// a killed script process's bookkeeping without reparsing the human-
// facing running log.
func (c *ScriptContext) WriteSnapshot(path string) error {
	c.mu.Lock()
	doc := snapshotDoc{
		ScriptName: c.ScriptName,
		StartedAt:  c.StartedAt.Unix(),
		Steps:      append([]StepRecord(nil), c.steps...),
		Metadata:   c.Metadata,
		Variables:  c.Variables,
	}
	c.mu.Unlock()

	b, err := msgpack.Marshal(doc)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshotSteps reads back the step history from a msgpack sidecar
// written by WriteSnapshot, for crash-recovery reporting.
func LoadSnapshotSteps(path string) ([]StepRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc snapshotDoc
	if err := msgpack.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc.Steps, nil
}
