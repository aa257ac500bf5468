// eef-model - Equatorial electric field from cleaned solar-wind files
//
// Reads one or more solar-wind series (time, speed, by, bz) from CSV,
// gzip CSV or Parquet, runs the prompt-penetration model on each file as
// a whole, and writes time, longitude, IEF components, local-time gain and
// EEF next to the input or into -out.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/eef-model ./cmd/eef-model

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KI7MT/ki7mt-eef/internal/common"
	"github.com/KI7MT/ki7mt-eef/internal/eef"
	"github.com/KI7MT/ki7mt-eef/internal/solar"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

// job is one input file and where its output goes.
type job struct {
	inPath  string
	outPath string
}

// options are the settings shared by every file.
type options struct {
	base         eef.Config
	cadenceFixed bool
	startFixed   bool
	outFormat    string
}

func outputPath(inPath, outDir, format string) string {
	base := filepath.Base(inPath)
	for _, ext := range []string{".csv.gz", ".csv", ".parquet"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(inPath)
	}
	return filepath.Join(dir, base+".eef."+format)
}

// configFor fills in what the file itself determines: the start instant
// and, unless fixed, the cadence.
func configFor(opts options, series *solar.Series) eef.Config {
	cfg := opts.base
	if !opts.startFixed {
		cfg.Start = series.Start()
	}
	if !opts.cadenceFixed {
		if c := series.Cadence(); c > 0 {
			cfg.Cadence = c
		}
	}
	return cfg
}

func processFile(j job, opts options, stats *common.Stats) error {
	name := filepath.Base(j.inPath)

	series, err := solar.ReadFile(j.inPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if err := series.CheckRegular(); err != nil {
		return err
	}
	if series.Len() == 0 {
		return fmt.Errorf("no samples")
	}

	cfg := configFor(opts, series)
	t0 := time.Now()
	res, err := eef.Run(series.Input(), cfg)
	stats.Record(series.Len(), time.Since(t0), err)
	if err != nil {
		return err
	}

	lon := 0.0
	if cfg.Longitude != nil {
		lon = eef.NormalizeLongitude(*cfg.Longitude)
	}
	rows, err := solar.FieldRows(res, lon)
	if err != nil {
		return err
	}
	if err := solar.WriteFile(j.outPath, opts.outFormat, rows); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	log.Printf("[%s] %d samples, cadence %v, first output %s -> %s",
		name, series.Len(), cfg.Cadence, res.Times[0].Format(time.RFC3339), filepath.Base(j.outPath))
	return nil
}

func main() {
	configPath := flag.String("config", "", "YAML model configuration file")
	outDir := flag.String("out", "", "Output directory (default: next to each input)")
	outFormat := flag.String("out-format", solar.FormatCSV, "Output format: csv, csv.gz or parquet")
	lonStr := flag.String("lon", "", "Station longitude in degrees east (required unless -no-gain)")
	startStr := flag.String("start", "", "Start instant of the first sample (default: first input timestamp)")
	cadence := flag.Duration("cadence", 0, "Sample cadence (default: inferred from input)")
	noGain := flag.Bool("no-gain", false, "Do not apply the local-time gain")
	noDelay := flag.Bool("no-delay", false, "Do not apply the propagation delay")
	delay := flag.Duration("delay", eef.DefaultDelay, "Propagation delay")
	verbose := flag.Bool("verbose", false, "Log a processing summary per file")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of files processed in parallel")
	reportEvery := flag.Duration("report", 0, "Progress report interval (0 disables)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "eef-model v%s - Equatorial Electric Field Model\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] files...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Converts cleaned solar-wind series into the prompt-penetration\n")
		fmt.Fprintf(os.Stderr, "equatorial electric field.\n\n")
		fmt.Fprintf(os.Stderr, "Input columns: time,speed,by,bz (CSV, CSV.gz or Parquet)\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -lon -76.87 omni_5m_2015-03-17.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config jicamarca.yaml -out-format parquet -out /tmp/eef *.parquet\n", os.Args[0])
	}
	flag.Parse()

	env := common.DefaultConfig()
	logger := env.NewLogger()

	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	opts := options{base: eef.DefaultConfig(), outFormat: *outFormat}
	opts.base.Logger = logger

	if *configPath != "" {
		m, err := common.LoadModelFile(*configPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
		if err := m.Apply(&opts.base); err != nil {
			log.Fatalf("Config error: %v", err)
		}
		opts.cadenceFixed = m.CadenceSeconds != nil
		opts.startFixed = m.StartInstant != ""
	}

	if *lonStr != "" {
		lon, err := strconv.ParseFloat(*lonStr, 64)
		if err != nil {
			log.Fatalf("Invalid -lon: %v", err)
		}
		opts.base.Longitude = &lon
	}
	if *startStr != "" {
		start, err := eef.ParseInstant(*startStr)
		if err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
		opts.base.Start = start
		opts.startFixed = true
	}
	if setFlags["cadence"] {
		opts.base.Cadence = *cadence
		opts.cadenceFixed = true
	}
	if setFlags["no-gain"] {
		opts.base.ApplyGain = !*noGain
	}
	if setFlags["no-delay"] {
		opts.base.ApplyDelay = !*noDelay
	}
	if setFlags["delay"] {
		opts.base.Delay = *delay
	}
	if setFlags["verbose"] {
		opts.base.Verbose = *verbose
	}

	switch opts.outFormat {
	case solar.FormatCSV, solar.FormatCSVGz, solar.FormatParquet:
	default:
		log.Fatalf("Invalid -out-format %q", opts.outFormat)
	}
	if opts.base.ApplyGain && opts.base.Longitude == nil {
		log.Fatal("A longitude is required for the local-time gain (-lon or longitude_degrees), or use -no-gain")
	}

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			log.Fatalf("Cannot create output directory: %v", err)
		}
	}
	if *workers < 1 {
		*workers = 1
	}

	log.Println("=========================================================")
	log.Printf("EEF Model v%s", Version)
	log.Println("=========================================================")
	if opts.base.Longitude != nil {
		log.Printf("Longitude:  %.3f", *opts.base.Longitude)
	}
	log.Printf("Gain:       %v", opts.base.ApplyGain)
	log.Printf("Delay:      %v (applied: %v)", opts.base.Delay, opts.base.ApplyDelay)
	log.Printf("Files:      %d (workers: %d)", len(files), *workers)

	stats := common.NewStats(*reportEvery)
	stats.StartReporter()

	jobs := make(chan job)
	var failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := processFile(j, opts, stats); err != nil {
					log.Printf("[%s] ERROR: %v", filepath.Base(j.inPath), err)
					failed.Add(1)
				}
			}
		}()
	}

	startTime := time.Now()
	for _, path := range files {
		jobs <- job{inPath: path, outPath: outputPath(path, *outDir, opts.outFormat)}
	}
	close(jobs)
	wg.Wait()
	stats.StopReporter()

	sn := stats.Snapshot()
	log.Println()
	log.Println("=========================================================")
	log.Println("Final Statistics")
	log.Println("=========================================================")
	log.Printf("Files OK:  %d", int64(len(files))-failed.Load())
	log.Printf("Failed:    %d", failed.Load())
	log.Printf("Samples:   %d", sn.Samples)
	log.Printf("Elapsed:   %v", time.Since(startTime).Round(time.Millisecond))
	log.Println("=========================================================")

	if failed.Load() > 0 {
		os.Exit(1)
	}
}
