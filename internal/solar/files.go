package solar

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
	"github.com/parquet-go/parquet-go"

	"github.com/KI7MT/ki7mt-eef/internal/eef"
)

// File formats understood by ReadFile and WriteFile.
const (
	FormatCSV     = "csv"
	FormatCSVGz   = "csv.gz"
	FormatParquet = "parquet"
	FormatUnknown = "unknown"
)

// ErrUnknownFormat is returned for files that are not CSV, gzip CSV or Parquet.
var ErrUnknownFormat = errors.New("unknown file format")

// windRow is the Parquet layout of a WindSample (Unix seconds).
type windRow struct {
	Time  int64   `parquet:"time"`
	Speed float64 `parquet:"speed"`
	By    float64 `parquet:"by"`
	Bz    float64 `parquet:"bz"`
}

// fieldRow is the Parquet layout of a FieldSample (Unix seconds).
type fieldRow struct {
	Time      int64   `parquet:"time"`
	Longitude float32 `parquet:"longitude"`
	IEFEy     float64 `parquet:"ief_ey"`
	IEFEz     float64 `parquet:"ief_ez"`
	Gain      float64 `parquet:"gain"`
	EEF       float64 `parquet:"eef"`
}

// DetectFormat determines the file format from its name.
func DetectFormat(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(base, ".csv.gz"):
		return FormatCSVGz
	case strings.HasSuffix(base, ".csv"):
		return FormatCSV
	case strings.HasSuffix(base, ".parquet"):
		return FormatParquet
	}
	return FormatUnknown
}

// ReadFile loads a solar-wind series from a CSV, gzip CSV or Parquet file.
func ReadFile(path string) (*Series, error) {
	switch DetectFormat(path) {
	case FormatParquet:
		return ReadParquet(path)
	case FormatCSV, FormatCSVGz:
	default:
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownFormat)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if DetectFormat(path) == FormatCSVGz {
		gz, err := pgzip.NewReaderN(f, 256*1024, runtime.NumCPU())
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ReadCSV(r)
}

// ReadCSV parses a comma-separated series with a header naming the
// time, speed, by and bz columns in any order. Blank lines and lines
// starting with '#' are skipped. Times are RFC 3339 or Unix seconds.
func ReadCSV(r io.Reader) (*Series, error) {
	scanner := bufio.NewScanner(r)
	series := &Series{}
	cols := map[string]int{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")

		if len(cols) == 0 {
			for i, name := range fields {
				cols[strings.ToLower(strings.TrimSpace(name))] = i
			}
			for _, name := range []string{"time", "speed", "by", "bz"} {
				if _, ok := cols[name]; !ok {
					return nil, fmt.Errorf("line %d: header has no %q column", lineNo, name)
				}
			}
			continue
		}

		sample, err := parseWindFields(fields, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		series.Append(sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no header line found")
	}
	return series, nil
}

func parseWindFields(fields []string, cols map[string]int) (WindSample, error) {
	get := func(name string) (string, error) {
		i := cols[name]
		if i >= len(fields) {
			return "", fmt.Errorf("missing %s field", name)
		}
		return strings.TrimSpace(fields[i]), nil
	}

	var s WindSample
	raw, err := get("time")
	if err != nil {
		return s, err
	}
	if s.Time, err = eef.ParseInstant(raw); err != nil {
		return s, err
	}

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"speed", &s.Speed},
		{"by", &s.By},
		{"bz", &s.Bz},
	} {
		raw, err := get(f.name)
		if err != nil {
			return s, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return s, nil
}

// ReadParquet loads a solar-wind series from a Parquet file with
// time (Unix seconds), speed, by and bz columns.
func ReadParquet(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parquet open: %w", err)
	}

	reader := parquet.NewGenericReader[windRow](pf)
	defer reader.Close()

	series := &Series{}
	rows := make([]windRow, 1024)
	for {
		n, err := reader.Read(rows)
		for _, r := range rows[:n] {
			series.Append(WindSample{
				Time:  time.Unix(r.Time, 0).UTC(),
				Speed: r.Speed,
				By:    r.By,
				Bz:    r.Bz,
			})
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parquet read: %w", err)
		}
		if n == 0 {
			break
		}
	}
	return series, nil
}

// WriteFile writes output rows in the given format, replacing path
// atomically.
func WriteFile(path, format string, rows []FieldSample) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file failed: %w", err)
	}

	switch format {
	case FormatCSV:
		err = WriteCSV(f, rows)
	case FormatCSVGz:
		gz := gzip.NewWriter(f)
		err = WriteCSV(gz, rows)
		if cerr := gz.Close(); err == nil {
			err = cerr
		}
	case FormatParquet:
		err = WriteParquet(f, rows)
	default:
		err = fmt.Errorf("%s: %w", format, ErrUnknownFormat)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename failed: %w", err)
	}
	return nil
}

// WriteCSV writes rows with a time,longitude,ief_ey,ief_ez,gain,eef
// header. The gain column is empty when gain was disabled.
func WriteCSV(w io.Writer, rows []FieldSample) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("time,longitude,ief_ey,ief_ez,gain,eef\n")

	line := make([]byte, 0, 128)
	for _, r := range rows {
		line = line[:0]
		line = r.Time.UTC().AppendFormat(line, time.RFC3339)
		line = append(line, ',')
		line = strconv.AppendFloat(line, float64(r.Longitude), 'g', -1, 32)
		line = append(line, ',')
		line = strconv.AppendFloat(line, r.IEFEy, 'g', -1, 64)
		line = append(line, ',')
		line = strconv.AppendFloat(line, r.IEFEz, 'g', -1, 64)
		line = append(line, ',')
		if !math.IsNaN(r.Gain) {
			line = strconv.AppendFloat(line, r.Gain, 'g', -1, 64)
		}
		line = append(line, ',')
		line = strconv.AppendFloat(line, r.EEF, 'g', -1, 64)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteParquet writes rows as a single Parquet file.
func WriteParquet(w io.Writer, rows []FieldSample) error {
	out := make([]fieldRow, len(rows))
	for i, r := range rows {
		out[i] = fieldRow{
			Time:      r.Time.Unix(),
			Longitude: r.Longitude,
			IEFEy:     r.IEFEy,
			IEFEz:     r.IEFEz,
			Gain:      r.Gain,
			EEF:       r.EEF,
		}
	}

	pw := parquet.NewGenericWriter[fieldRow](w)
	if _, err := pw.Write(out); err != nil {
		return fmt.Errorf("parquet write: %w", err)
	}
	return pw.Close()
}
