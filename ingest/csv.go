package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/rushteam/procurekit/core"
)

// File 导入 CSV 文件。
func (l *Loader) File(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, core.WrapError(core.ModuleIngest, core.ErrorCodeNotFound, "open "+path, err)
	}
	defer f.Close()
	return l.CSV(ctx, f)
}

// CSV 按表头列名映射属性，逐块读取并写入，内存中最多保留一个块。
func (l *Loader) CSV(ctx context.Context, r io.Reader) (Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Report{}, wrapRead(ErrNoHeader)
		}
		return Report{}, wrapRead(err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	if !slices.Contains(header, l.catalog.IDField()) {
		return Report{}, wrapRead(ErrNoHeader)
	}

	var total Report
	buf := make([]map[string]any, 0, l.chunkSize)
	flush := func() error {
		rep, err := l.chunk(ctx, buf)
		total.add(rep)
		buf = buf[:0]
		return err
	}

	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				total.Read++
				total.Rejected++
				l.logger.Warn("malformed csv row", "line", perr.Line, "err", perr.Err)
				continue
			}
			return total, wrapRead(err)
		}
		raw := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				raw[col] = row[i]
			}
		}
		buf = append(buf, raw)
		if len(buf) == l.chunkSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if len(buf) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	l.logger.Info("csv ingested", "read", total.Read, "loaded", total.Loaded, "rejected", total.Rejected, "failed", total.Failed)
	return total, nil
}
