package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/clawscli/mesa/internal/log"
)

// Source produces rows.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]Column, []Row, error)
}

// CSVSource loads rows from a CSV file whose first record is the header.
type CSVSource struct {
	Path string
}

func (s CSVSource) Name() string { return s.Path }

func (s CSVSource) Load(ctx context.Context) ([]Column, []Row, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read header %s: %w", s.Path, err)
	}
	cols := ColumnsFromHeader(header)

	var rows []Row
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read %s line %d: %w", s.Path, line, err)
		}
		fields := make(map[string]string, len(cols))
		for i, c := range cols {
			if i < len(rec) {
				fields[c.ID] = rec[i]
			}
		}
		rows = append(rows, Row{ID: s.Path + ":" + strconv.Itoa(line), Fields: fields})
	}
	return cols, rows, nil
}

// Synthetic generates Count deterministic rows, useful for exercising the
// window on large datasets.
type Synthetic struct {
	Count int
}

func (s Synthetic) Name() string { return "synthetic" }

var syntheticRegions = []string{"us-east-1", "us-west-2", "eu-west-1", "ap-northeast-1"}
var syntheticStates = []string{"running", "stopped", "pending", "terminated"}

func (s Synthetic) Load(ctx context.Context) ([]Column, []Row, error) {
	cols := []Column{
		{ID: "id", Label: "ID", Width: 10, Sortable: true},
		{ID: "name", Label: "NAME", Width: 24, Sortable: true},
		{ID: "region", Label: "REGION", Width: 16, Sortable: true},
		{ID: "state", Label: "STATE", Width: 12, Sortable: true},
		{ID: "size", Label: "SIZE", Width: 8, Sortable: true},
	}
	rows := make([]Row, 0, s.Count)
	for i := range s.Count {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		id := strconv.Itoa(i)
		rows = append(rows, Row{
			ID: id,
			Fields: map[string]string{
				"id":     id,
				"name":   fmt.Sprintf("row-%06d", i),
				"region": syntheticRegions[i%len(syntheticRegions)],
				"state":  syntheticStates[(i/3)%len(syntheticStates)],
				"size":   strconv.Itoa((i * 37) % 1000),
			},
		})
	}
	return cols, rows, nil
}

// Result is the merged output of LoadAll.
type Result struct {
	Columns []Column
	Rows    []Row
}

// LoadAll loads every source concurrently and concatenates the rows in
// source order. Columns are the union of all source columns in first-seen
// order. The first failing source cancels the others.
func LoadAll(ctx context.Context, sources ...Source) (Result, error) {
	type loaded struct {
		cols []Column
		rows []Row
	}
	parts := make([]loaded, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			cols, rows, err := src.Load(ctx)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			parts[i] = loaded{cols: cols, rows: rows}
			log.Debug("source loaded", "source", src.Name(), "rows", len(rows))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	seen := make(map[string]bool)
	for _, p := range parts {
		for _, c := range p.cols {
			if !seen[c.ID] {
				seen[c.ID] = true
				res.Columns = append(res.Columns, c)
			}
		}
		res.Rows = append(res.Rows, p.rows...)
	}
	return res, nil
}
