// Package catalog loads the video catalog from Parquet files.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
	domcat "github.com/kailas-cloud/vidsearch/internal/domain/catalog"
)

// Layout selects how embedding columns are located in the schema.
type Layout string

// Supported layouts.
const (
	// LayoutPrefix resolves embedding columns by name: <prefix><i>.
	LayoutPrefix Layout = "prefix"
	// LayoutPositional resolves embedding columns as contiguous leaf ranges.
	LayoutPositional Layout = "positional"
)

// Default column names.
const (
	DefaultTitleColumn      = "title"
	DefaultVideoIDColumn    = "video_id"
	DefaultTitlePrefix      = "title_embedding_"
	DefaultTranscriptPrefix = "transcript_embedding_"
)

const readBatchSize = 256

// Config describes the Parquet source.
type Config struct {
	Path          string
	TitleColumn   string
	VideoIDColumn string
	Layout        Layout

	// Prefix layout.
	TitlePrefix      string
	TranscriptPrefix string

	// Positional layout. Dimensions is also enforced in prefix layout when > 0.
	TitleOffset      int
	TranscriptOffset int
	Dimensions       int
}

// Loader reads a catalog from a Parquet file.
type Loader struct {
	cfg    Config
	items  prometheus.Gauge
	logger *zap.Logger
}

// NewLoader creates a Loader. items is reported with the loaded row count; nil disables it.
func NewLoader(cfg Config, items prometheus.Gauge, logger *zap.Logger) *Loader {
	if cfg.TitleColumn == "" {
		cfg.TitleColumn = DefaultTitleColumn
	}
	if cfg.VideoIDColumn == "" {
		cfg.VideoIDColumn = DefaultVideoIDColumn
	}
	if cfg.Layout == "" {
		cfg.Layout = LayoutPrefix
	}
	if cfg.TitlePrefix == "" {
		cfg.TitlePrefix = DefaultTitlePrefix
	}
	if cfg.TranscriptPrefix == "" {
		cfg.TranscriptPrefix = DefaultTranscriptPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{cfg: cfg, items: items, logger: logger}
}

// Load reads every row of the file into an immutable catalog.
// All failures wrap domain.ErrCatalogLoad.
func (l *Loader) Load(ctx context.Context) (*domcat.Catalog, error) {
	start := time.Now()

	cat, err := l.load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogLoad) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrCatalogLoad, l.cfg.Path, err)
	}

	if l.items != nil {
		l.items.Set(float64(cat.Len()))
	}
	l.logger.Info("Catalog loaded",
		zap.String("path", l.cfg.Path),
		zap.Int("rows", cat.Len()),
		zap.Int("dimension", cat.Dimension()),
		zap.Duration("duration", time.Since(start)),
	)
	return cat, nil
}

func (l *Loader) load(ctx context.Context) (*domcat.Catalog, error) {
	h, err := openParquet(l.cfg.Path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	cols, err := l.resolveColumns(h.pf.Schema().Columns())
	if err != nil {
		return nil, err
	}

	items := make([]domcat.Item, 0, int(h.pf.NumRows()))
	for gi, rg := range h.pf.RowGroups() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err = readRowGroup(rg, cols, items)
		if err != nil {
			return nil, fmt.Errorf("row group %d: %w", gi, err)
		}
	}

	return domcat.New(items, cols.dimension)
}

// column roles in a flat schema.
const (
	roleNone int8 = iota
	roleTitle
	roleVideoID
	roleTitleEmb
	roleTranscriptEmb
)

type columnRole struct {
	role int8
	pos  int // position within the embedding
}

// catalogColumns maps leaf column indexes to their role.
type catalogColumns struct {
	roles     []columnRole
	dimension int
}

func (l *Loader) resolveColumns(paths [][]string) (catalogColumns, error) {
	cols := catalogColumns{roles: make([]columnRole, len(paths))}

	titleIdx, videoIdx := -1, -1
	for i, path := range paths {
		if len(path) != 1 {
			continue
		}
		switch path[0] {
		case l.cfg.TitleColumn:
			titleIdx = i
		case l.cfg.VideoIDColumn:
			videoIdx = i
		}
	}
	if titleIdx < 0 {
		return cols, fmt.Errorf("column %q not found in parquet schema", l.cfg.TitleColumn)
	}
	if videoIdx < 0 {
		return cols, fmt.Errorf("column %q not found in parquet schema", l.cfg.VideoIDColumn)
	}
	cols.roles[titleIdx] = columnRole{role: roleTitle}
	cols.roles[videoIdx] = columnRole{role: roleVideoID}

	var err error
	switch l.cfg.Layout {
	case LayoutPrefix:
		err = l.resolvePrefixed(paths, &cols)
	case LayoutPositional:
		err = l.resolvePositional(paths, &cols)
	default:
		err = fmt.Errorf("unknown layout %q", l.cfg.Layout)
	}
	return cols, err
}

func (l *Loader) resolvePrefixed(paths [][]string, cols *catalogColumns) error {
	title := make(map[int]int)
	transcript := make(map[int]int)
	for i, path := range paths {
		if len(path) != 1 {
			continue
		}
		if pos, ok := suffixIndex(path[0], l.cfg.TitlePrefix); ok {
			title[pos] = i
		} else if pos, ok := suffixIndex(path[0], l.cfg.TranscriptPrefix); ok {
			transcript[pos] = i
		}
	}

	d := len(title)
	if d == 0 {
		return fmt.Errorf("no %s* columns in parquet schema", l.cfg.TitlePrefix)
	}
	if l.cfg.Dimensions > 0 && d != l.cfg.Dimensions {
		return domain.NewDimensionMismatch("title_embedding columns", l.cfg.Dimensions, d)
	}
	if len(transcript) != d {
		return domain.NewDimensionMismatch("transcript_embedding columns", d, len(transcript))
	}

	for pos := range d {
		ti, ok := title[pos]
		if !ok {
			return fmt.Errorf("missing column %s%d", l.cfg.TitlePrefix, pos)
		}
		si, ok := transcript[pos]
		if !ok {
			return fmt.Errorf("missing column %s%d", l.cfg.TranscriptPrefix, pos)
		}
		cols.roles[ti] = columnRole{role: roleTitleEmb, pos: pos}
		cols.roles[si] = columnRole{role: roleTranscriptEmb, pos: pos}
	}
	cols.dimension = d
	return nil
}

func (l *Loader) resolvePositional(paths [][]string, cols *catalogColumns) error {
	d := l.cfg.Dimensions
	if d <= 0 {
		return errors.New("positional layout requires dimensions > 0")
	}
	ranges := []struct {
		name   string
		offset int
		role   int8
	}{
		{"title_offset", l.cfg.TitleOffset, roleTitleEmb},
		{"transcript_offset", l.cfg.TranscriptOffset, roleTranscriptEmb},
	}
	for _, r := range ranges {
		if r.offset < 0 || r.offset+d > len(paths) {
			return fmt.Errorf("%s %d with %d dimensions exceeds %d columns", r.name, r.offset, d, len(paths))
		}
		for pos := range d {
			idx := r.offset + pos
			if cols.roles[idx].role != roleNone {
				return fmt.Errorf("column %d (%s) is used twice", idx, strings.Join(paths[idx], "."))
			}
			cols.roles[idx] = columnRole{role: r.role, pos: pos}
		}
	}
	cols.dimension = d
	return nil
}

// suffixIndex parses "<prefix><n>" and returns n.
func suffixIndex(name, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func readRowGroup(rg parquet.RowGroup, cols catalogColumns, items []domcat.Item) ([]domcat.Item, error) {
	rows := parquet.NewRowGroupReader(rg)
	defer rows.Close()
	buf := make([]parquet.Row, readBatchSize)

	for {
		n, readErr := rows.ReadRows(buf)
		for i := range n {
			item, err := rowToItem(buf[i], cols)
			if err != nil {
				return items, fmt.Errorf("row %d: %w", len(items), err)
			}
			items = append(items, item)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return items, nil
			}
			return items, fmt.Errorf("read rows: %w", readErr)
		}
	}
}

func rowToItem(row parquet.Row, cols catalogColumns) (domcat.Item, error) {
	d := cols.dimension
	titleEmb := make([]float32, d)
	transcriptEmb := make([]float32, d)
	var title, videoID string
	filled := 0

	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(cols.roles) {
			continue
		}
		r := cols.roles[col]
		switch r.role {
		case roleTitle:
			if !v.IsNull() {
				title = v.String()
			}
		case roleVideoID:
			if !v.IsNull() {
				videoID = v.String()
			}
		case roleTitleEmb, roleTranscriptEmb:
			f, err := toFloat32(v)
			if err != nil {
				return domcat.Item{}, fmt.Errorf("column %d: %w", col, err)
			}
			if r.role == roleTitleEmb {
				titleEmb[r.pos] = f
			} else {
				transcriptEmb[r.pos] = f
			}
			filled++
		}
	}

	if filled != 2*d {
		return domcat.Item{}, fmt.Errorf("expected %d embedding values, got %d", 2*d, filled)
	}
	return domcat.NewItem(title, videoID, titleEmb, transcriptEmb), nil
}

func toFloat32(v parquet.Value) (float32, error) {
	if v.IsNull() {
		return 0, errors.New("null embedding value")
	}
	switch v.Kind() {
	case parquet.Float:
		return v.Float(), nil
	case parquet.Double:
		return float32(v.Double()), nil
	case parquet.Int32:
		return float32(v.Int32()), nil
	case parquet.Int64:
		return float32(v.Int64()), nil
	default:
		return 0, fmt.Errorf("unsupported embedding type %s", v.Kind())
	}
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	if path == "" {
		return nil, errors.New("path is required")
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
