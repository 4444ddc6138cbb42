package broker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"

	apperrors "kite-riskdesk/internal/errors"
	"kite-riskdesk/internal/fields"
)

// Snapshot document layout. Positions may also be a Kite positions
// response ({"net": [...], "day": [...]}), in which case net is used.
var (
	capitalChain   = fields.Chain{"capital", "equity.net", "margins.equity.net"}
	positionsChain = fields.Chain{"positions", "positions.net", "net"}
	gttsChain      = fields.Chain{"gtts", "triggers", "conditional_orders", "orders"}
)

// FileSource reads a snapshot saved as JSON or YAML. The file is parsed
// once, on first use.
type FileSource struct {
	path string

	once sync.Once
	snap *Snapshot
	err  error
}

// NewFileSource creates a snapshot source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Positions implements SnapshotSource.
func (f *FileSource) Positions(ctx context.Context) ([]fields.Record, error) {
	s, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.Positions, nil
}

// ConditionalOrders implements SnapshotSource.
func (f *FileSource) ConditionalOrders(ctx context.Context) ([]fields.Record, error) {
	s, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.GTTs, nil
}

// Capital implements SnapshotSource.
func (f *FileSource) Capital(ctx context.Context) (float64, error) {
	s, err := f.load(ctx)
	if err != nil {
		return 0, err
	}
	return s.Capital, nil
}

func (f *FileSource) load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.once.Do(func() {
		f.snap, f.err = ReadSnapshot(f.path)
	})
	return f.snap, f.err
}

// ReadSnapshot parses a snapshot file. The format follows the extension:
// .json, or .yaml/.yml.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewRecordError("snapshot", -1, path, "cannot read snapshot", err)
	}

	var doc map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = sonic.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%s: %w (want .json, .yaml or .yml)", path, apperrors.ErrSnapshotFormat)
	}
	if err != nil {
		return nil, apperrors.NewRecordError("snapshot", -1, path, "cannot parse snapshot", err)
	}
	return snapshotFromDoc(fields.Record(doc)), nil
}

func snapshotFromDoc(doc fields.Record) *Snapshot {
	return &Snapshot{
		Capital:   capitalChain.FloatOr(doc, 0),
		Positions: recordList(positionsChain, doc),
		GTTs:      recordList(gttsChain, doc),
	}
}

// recordList keeps one entry per list element so diagnostics indexes match
// the file; elements that are not objects become nil records.
func recordList(c fields.Chain, doc fields.Record) []fields.Record {
	list, ok := c.List(doc)
	if !ok {
		return nil
	}
	out := make([]fields.Record, len(list))
	for i, v := range list {
		out[i], _ = fields.AsRecord(v)
	}
	return out
}

// WriteSnapshot saves s in the format implied by path's extension, for
// replay with FileSource.
func WriteSnapshot(path string, s *Snapshot) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = sonic.ConfigStd.MarshalIndent(s, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		return fmt.Errorf("%s: %w (want .json, .yaml or .yml)", path, apperrors.ErrSnapshotFormat)
	}
	if err != nil {
		return apperrors.Wrap(err, "encoding snapshot")
	}
	return os.WriteFile(path, data, 0600)
}
