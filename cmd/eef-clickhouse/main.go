// eef-clickhouse - EEF backfill from ClickHouse solar-wind tables
//
// Reads a cleaned 5-minute solar-wind range from solar.wind_5m, runs the
// prompt-penetration model once per requested longitude (in parallel;
// each run sees the whole range) and inserts the results into
// solar.eef_5m.
//
// ReplacingMergeTree on (longitude, time) handles re-runs over the same range.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/eef-clickhouse ./cmd/eef-clickhouse

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-eef/internal/common"
	"github.com/KI7MT/ki7mt-eef/internal/eef"
	"github.com/KI7MT/ki7mt-eef/internal/metrics"
	"github.com/KI7MT/ki7mt-eef/internal/solar"
	"github.com/KI7MT/ki7mt-eef/internal/store"
)

var Version = "1.0.0"

const sourceTag = "eef-clickhouse"

// parseLongitudes reads a comma-separated list of longitudes.
func parseLongitudes(s string) ([]float64, error) {
	var lons []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("longitude %q: %w", part, err)
		}
		lons = append(lons, v)
	}
	if len(lons) == 0 {
		return nil, errors.New("no longitudes given")
	}
	return lons, nil
}

// runLongitude computes one longitude sector and returns its output rows.
func runLongitude(series *solar.Series, base eef.Config, lon float64, stats *common.Stats) ([]solar.FieldSample, error) {
	cfg := base.WithLongitude(lon)

	t0 := time.Now()
	res, err := eef.Run(series.Input(), cfg)
	elapsed := time.Since(t0)
	stats.Record(series.Len(), elapsed, err)
	metrics.ObserveRun(series.Len(), elapsed, err)
	if err != nil {
		return nil, err
	}
	return solar.FieldRows(res, eef.NormalizeLongitude(lon))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Printf("Metrics on http://%s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Metrics server error: %v", err)
	}
}

func main() {
	env := common.DefaultConfig()

	chHost := flag.String("ch-host", env.ClickHouseAddr(), "ClickHouse native protocol address")
	chDB := flag.String("ch-db", env.ClickHouseDatabase, "ClickHouse database")
	windTable := flag.String("wind-table", "wind_5m", "Solar-wind input table")
	eefTable := flag.String("eef-table", "eef_5m", "EEF output table")
	startStr := flag.String("start", "", "Start instant (inclusive), e.g. 2015-03-15")
	endStr := flag.String("end", "", "End instant (exclusive, default: now)")
	lonList := flag.String("lons", "-76.87", "Comma-separated station longitudes in degrees east")
	noDelay := flag.Bool("no-delay", false, "Do not apply the propagation delay")
	verbose := flag.Bool("verbose", false, "Log a processing summary per longitude")
	dryRun := flag.Bool("dry-run", false, "Compute only, no ClickHouse insert")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address while running")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "eef-clickhouse v%s - EEF Backfill (ClickHouse)\n\n", Version)
		fmt.Fprintf(os.Stderr, "Reads %s.%s, computes the equatorial electric field per longitude\n", env.ClickHouseDatabase, "wind_5m")
		fmt.Fprintf(os.Stderr, "and inserts into %s.%s.\n\n", env.ClickHouseDatabase, "eef_5m")
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -start 2015-03-15 -end 2015-03-20 -lons -76.87,77.47,121.5\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -start 2003-10-28 -end 2003-11-01 -dry-run -verbose\n", os.Args[0])
	}
	flag.Parse()

	log.Println("=========================================================")
	log.Printf("eef-clickhouse v%s - EEF Backfill", Version)
	log.Println("=========================================================")

	if *startStr == "" {
		log.Fatal("-start is required")
	}
	start, err := eef.ParseInstant(*startStr)
	if err != nil {
		log.Fatalf("Invalid start: %v", err)
	}
	end := time.Now().UTC().Truncate(eef.StandardCadence)
	if *endStr != "" {
		end, err = eef.ParseInstant(*endStr)
		if err != nil {
			log.Fatalf("Invalid end: %v", err)
		}
	}
	if !end.After(start) {
		log.Fatalf("End %s is not after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	lons, err := parseLongitudes(*lonList)
	if err != nil {
		log.Fatalf("Invalid -lons: %v", err)
	}
	log.Printf("Range:      %s to %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	log.Printf("Longitudes: %v", lons)

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("\nShutdown requested...")
		cancel()
	}()

	// Load the full range once; the filters must see it in one piece.
	log.Printf("Connecting to ClickHouse at %s...", *chHost)
	conn, err := store.Open(ctx, store.Options{
		Addr:     *chHost,
		Database: *chDB,
		Username: env.ClickHouseUser,
		Password: env.ClickHousePassword,
	})
	if err != nil {
		log.Fatalf("ClickHouse connection failed: %v", err)
	}
	source := &store.WindSource{Conn: conn, Table: fmt.Sprintf("%s.%s", *chDB, *windTable)}

	t0 := time.Now()
	series, err := source.Load(ctx, start, end)
	conn.Close()
	if err != nil {
		log.Fatalf("Load error: %v", err)
	}
	log.Printf("Loaded %d samples in %v", series.Len(), time.Since(t0).Round(time.Millisecond))
	if series.Len() == 0 {
		log.Fatal("No solar-wind data in range")
	}
	if err := series.CheckRegular(); err != nil {
		log.Fatalf("Input is not clean: %v", err)
	}

	base := eef.DefaultConfig()
	base.Start = series.Start()
	base.Cadence = series.Cadence()
	if base.Cadence == 0 {
		base.Cadence = eef.StandardCadence
	}
	base.ApplyDelay = !*noDelay
	base.Verbose = *verbose
	base.Logger = env.NewLogger()
	if base.Cadence != eef.StandardCadence {
		metrics.CadenceAdvisory()
	}

	stats := common.NewStats(5 * time.Second)
	stats.StartReporter()

	tableFQN := fmt.Sprintf("%s.%s", *chDB, *eefTable)
	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	failed := 0

	for _, lon := range lons {
		wg.Add(1)
		go func(lon float64) {
			defer wg.Done()

			rows, err := runLongitude(series, base, lon, stats)
			if err != nil {
				log.Printf("[lon %.2f] Model error: %v", lon, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			if *dryRun {
				log.Printf("[lon %.2f] %d rows (dry run)", lon, len(rows))
				return
			}

			// ch.Client is not safe for concurrent use; one per sector.
			client, err := store.DialNative(ctx, *chHost, *chDB)
			if err != nil {
				log.Printf("[lon %.2f] Connect error: %v", lon, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			defer client.Close()

			n, err := store.InsertRows(ctx, client, tableFQN, sourceTag, rows)
			metrics.RowsInserted(n)
			mu.Lock()
			inserted += n
			if err != nil {
				failed++
			}
			mu.Unlock()
			if err != nil {
				log.Printf("[lon %.2f] Insert error after %d rows: %v", lon, n, err)
				return
			}
			log.Printf("[lon %.2f] Inserted %d rows", lon, n)
		}(lon)
	}
	wg.Wait()
	stats.StopReporter()

	sn := stats.Snapshot()
	log.Println()
	log.Println("=========================================================")
	log.Println("Backfill Complete")
	log.Println("=========================================================")
	log.Printf("Samples:    %d per longitude", series.Len())
	log.Printf("Runs:       %d ok, %d failed", sn.SeriesDone, failed)
	log.Printf("Rows:       %d inserted", inserted)
	log.Printf("Elapsed:    %v", sn.Elapsed.Round(time.Millisecond))
	log.Printf("Source:     %s", sourceTag)
	log.Println("=========================================================")
	log.Println()
	log.Printf("Run OPTIMIZE TABLE %s FINAL to merge duplicates.", tableFQN)

	if failed > 0 {
		os.Exit(1)
	}
}
