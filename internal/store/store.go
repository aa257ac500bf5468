// Package store moves solar-wind input and EEF output in and out of
// ClickHouse.
//
// Reads go through clickhouse-go (database/sql style driver with struct
// scanning); inserts use the ch-go native columnar protocol.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/ch-go"
	"github.com/ClickHouse/ch-go/proto"
	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/KI7MT/ki7mt-eef/internal/solar"
)

// BatchLimit is the number of rows sent per insert.
const BatchLimit = 50000

// FieldColumns lists the columns of the EEF output table in insert order.
var FieldColumns = []string{"time", "longitude", "ief_ey", "ief_ez", "gain", "eef", "source"}

// FieldBatch holds columnar data for native ClickHouse insert.
// Matches schema: solar.eef_5m (time, longitude, ief_ey, ief_ez, gain, eef, source)
type FieldBatch struct {
	Time      *proto.ColDateTime
	Longitude *proto.ColFloat32
	IEFEy     *proto.ColFloat64
	IEFEz     *proto.ColFloat64
	Gain      *proto.ColFloat64
	EEF       *proto.ColFloat64
	Source    *proto.ColStr
}

func NewFieldBatch() *FieldBatch {
	return &FieldBatch{
		Time:      new(proto.ColDateTime),
		Longitude: new(proto.ColFloat32),
		IEFEy:     new(proto.ColFloat64),
		IEFEz:     new(proto.ColFloat64),
		Gain:      new(proto.ColFloat64),
		EEF:       new(proto.ColFloat64),
		Source:    new(proto.ColStr),
	}
}

func (b *FieldBatch) Reset() {
	b.Time.Reset()
	b.Longitude.Reset()
	b.IEFEy.Reset()
	b.IEFEz.Reset()
	b.Gain.Reset()
	b.EEF.Reset()
	b.Source.Reset()
}

func (b *FieldBatch) Len() int {
	return b.Time.Rows()
}

func (b *FieldBatch) Input() proto.Input {
	return proto.Input{
		{Name: "time", Data: b.Time},
		{Name: "longitude", Data: b.Longitude},
		{Name: "ief_ey", Data: b.IEFEy},
		{Name: "ief_ez", Data: b.IEFEz},
		{Name: "gain", Data: b.Gain},
		{Name: "eef", Data: b.EEF},
		{Name: "source", Data: b.Source},
	}
}

func (b *FieldBatch) Append(s solar.FieldSample, source string) {
	b.Time.Append(s.Time)
	b.Longitude.Append(s.Longitude)
	b.IEFEy.Append(s.IEFEy)
	b.IEFEz.Append(s.IEFEz)
	b.Gain.Append(s.Gain)
	b.EEF.Append(s.EEF)
	b.Source.Append(source)
}

// InsertQuery returns the INSERT statement body for a FieldBatch.
func InsertQuery(table string) string {
	return fmt.Sprintf("INSERT INTO %s (time, longitude, ief_ey, ief_ez, gain, eef, source) VALUES", table)
}

// Flush sends the batch to table and resets it. An empty batch is a no-op.
func (b *FieldBatch) Flush(ctx context.Context, conn *ch.Client, table string) error {
	if b.Len() == 0 {
		return nil
	}
	if err := conn.Do(ctx, ch.Query{
		Body:  InsertQuery(table),
		Input: b.Input(),
	}); err != nil {
		return err
	}
	b.Reset()
	return nil
}

// InsertRows writes rows in BatchLimit chunks and returns the number of
// rows sent.
func InsertRows(ctx context.Context, conn *ch.Client, table, source string, rows []solar.FieldSample) (int, error) {
	batch := NewFieldBatch()
	inserted := 0
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		batch.Append(r, source)
		if batch.Len() >= BatchLimit {
			n := batch.Len()
			if err := batch.Flush(ctx, conn, table); err != nil {
				return inserted, fmt.Errorf("insert at row %d: %w", inserted, err)
			}
			inserted += n
		}
	}
	n := batch.Len()
	if err := batch.Flush(ctx, conn, table); err != nil {
		return inserted, fmt.Errorf("final insert: %w", err)
	}
	return inserted + n, nil
}

// DialNative opens a native-protocol connection for inserts.
func DialNative(ctx context.Context, addr, database string) (*ch.Client, error) {
	return ch.Dial(ctx, ch.Options{
		Address:     addr,
		Database:    database,
		Compression: ch.CompressionLZ4,
	})
}

// Options configures the query connection.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Open opens a clickhouse-go connection for reads and pings it.
func Open(ctx context.Context, opts Options) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return conn, nil
}

// WindQuery returns the SELECT for a time range of solar-wind rows.
// It takes two parameters: inclusive start and exclusive end.
func WindQuery(table string) string {
	return fmt.Sprintf("SELECT time, speed, by, bz FROM %s WHERE time >= ? AND time < ? ORDER BY time", table)
}

// WindSource loads cleaned solar-wind rows from a ClickHouse table with
// columns time, speed, by, bz.
type WindSource struct {
	Conn  driver.Conn
	Table string
}

// Load returns the rows in [start, end) ordered by time.
func (w *WindSource) Load(ctx context.Context, start, end time.Time) (*solar.Series, error) {
	var rows []solar.WindSample
	if err := w.Conn.Select(ctx, &rows, WindQuery(w.Table), start.UTC(), end.UTC()); err != nil {
		return nil, fmt.Errorf("select %s: %w", w.Table, err)
	}
	return solar.NewSeries(rows), nil
}
