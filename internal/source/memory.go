package source

import (
	"context"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

// Memory serves records held in memory. Files are loaded into one.
type Memory struct {
	rows []pipeline.Record
}

// NewMemory wraps rows. The slice is not copied and must not be modified afterwards.
func NewMemory(rows []pipeline.Record) *Memory {
	return &Memory{rows: rows}
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(m.rows), nil
}

func (m *Memory) Fetch(ctx context.Context, req pipeline.PageRequest) ([]pipeline.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, _, err := pipeline.Page(m.rows, req)
	return rows, err
}
