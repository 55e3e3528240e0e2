package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"harvest-fleet-monitor/internal/api"
	"harvest-fleet-monitor/internal/config"
	"harvest-fleet-monitor/internal/db"
	"harvest-fleet-monitor/internal/generator"
	"harvest-fleet-monitor/internal/influx"
	"harvest-fleet-monitor/internal/models"
	"harvest-fleet-monitor/internal/pipeline"
	"harvest-fleet-monitor/pkg/logger"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	cfg        *config.Config
	database   *db.Database
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "harvest-monitor",
		Short: "Harvest Fleet Monitor - harvester and transporter telemetry reports",
		Long: `A CLI tool for processing harvester and transporter telemetry exports.
Computes idle time, mechanical availability, energy efficiency and GPS usage
per operator and per machine, writes spreadsheet reports and keeps a daily
summary per machine in SQLite, readable through a REST API.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (default from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config (default config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Add commands
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(machinesCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and applies the global flags
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	if cfg.LogDir != "" {
		if err := logger.EnableFileLogging(cfg.LogDir, "harvest-monitor"); err != nil {
			return fmt.Errorf("log file error: %w", err)
		}
	}
	return nil
}

// initDB initializes database connection
func initDB() error {
	var err error
	database, err = db.New(cfg.DBPath)
	return err
}

// processCmd processes telemetry exports into reports
func processCmd() *cobra.Command {
	var equipment string
	var outDir string
	var operatorMap string
	var store bool
	var toInflux bool

	cmd := &cobra.Command{
		Use:   "process [file...]",
		Short: "Process telemetry exports into workbooks and daily records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var t models.EquipmentType
			if equipment != "" {
				var err error
				if t, err = models.ParseEquipmentType(equipment); err != nil {
					return err
				}
			}
			if outDir != "" {
				cfg.OutputDir = outDir
			}
			if cmd.Flags().Changed("store") {
				cfg.StoreEnabled = store
			}
			if cmd.Flags().Changed("influx") {
				cfg.Influx.Enabled = toInflux
			}
			if operatorMap != "" {
				cfg.OperatorMap = operatorMap
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var ops *config.OperatorMap
			if cfg.OperatorMap != "" {
				var err error
				if ops, err = config.LoadOperatorMap(cfg.OperatorMap); err != nil {
					return err
				}
				logger.Infof("loaded %d operator remaps from %s", ops.Len(), cfg.OperatorMap)
			}

			var st pipeline.Store
			if cfg.StoreEnabled {
				if err := initDB(); err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				defer database.Close()
				st = database
			}

			var sink pipeline.Sink
			if cfg.Influx.Enabled {
				w := influx.NewWriter(cfg.Influx)
				defer w.Close()
				sink = w
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			p := pipeline.NewProcessor(cfg, ops, t, st, sink)
			results, err := p.ProcessFiles(ctx, args)

			for _, r := range results {
				if r.Run.Status == models.RunFailed {
					fmt.Printf("  ✗ %s: %s\n", r.File, r.Run.Error)
					continue
				}
				fmt.Printf("  ✓ %s (%s): %d rows kept, %d excluded, %d records\n",
					r.File, r.Run.EquipmentType, r.Run.RowsKept, r.Run.RowsExcluded, r.Run.Records)
				fmt.Printf("      workbook:    %s\n", r.Workbook)
				if r.Coordinates != "" {
					fmt.Printf("      coordinates: %s\n", r.Coordinates)
				}
			}

			failed := pipeline.Failed(results)
			fmt.Printf("\nProcessed %d files in %v", len(results)-failed, time.Since(start).Round(time.Millisecond))
			if failed > 0 {
				fmt.Printf(", %d failed", failed)
			}
			fmt.Println()

			if err != nil && (failed == len(args) || ctx.Err() != nil) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&equipment, "type", "t", "", "Equipment type (harvester, transporter); detected from the file name when empty")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from config)")
	cmd.Flags().StringVar(&operatorMap, "operators", "", "Operator remap JSON file")
	cmd.Flags().BoolVar(&store, "store", true, "Upsert daily records into the database")
	cmd.Flags().BoolVar(&toInflux, "influx", false, "Write summaries to InfluxDB")
	return cmd
}

// serverCmd starts the REST API server
func serverCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			server := api.NewServer(database)
			addr := fmt.Sprintf(":%d", port)

			fmt.Printf("Harvest Fleet Monitor API Server\n")
			fmt.Printf("   Listening on http://localhost%s\n", addr)
			fmt.Printf("   Database: %s\n\n", cfg.DBPath)
			fmt.Println("Available endpoints:")
			fmt.Println("  GET    /health")
			fmt.Println("  GET    /metrics")
			fmt.Println("  GET    /api/v1/records")
			fmt.Println("  GET    /api/v1/records/{date}/{front}/{machine}")
			fmt.Println("  PUT    /api/v1/records/{date}/{front}/{machine}")
			fmt.Println("  DELETE /api/v1/records/{date}/{front}/{machine}")
			fmt.Println("  GET    /api/v1/machines")
			fmt.Println("  GET    /api/v1/runs")
			fmt.Println("  GET    /api/v1/stats")
			fmt.Println()

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Infof("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Server port")
	return cmd
}

// recordsCmd queries stored daily records
func recordsCmd() *cobra.Command {
	var date, from, to string
	var front string
	var machine int
	var limit int
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "records",
		Short: "Query stored daily records",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := models.RecordQuery{Front: front, Machine: machine, Limit: limit}

			if date != "" {
				from, to = date, date
			}
			if from != "" {
				d, err := civil.ParseDate(from)
				if err != nil {
					return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
				}
				q.From = d
			}
			if to != "" {
				d, err := civil.ParseDate(to)
				if err != nil {
					return fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
				}
				q.To = d
			}

			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			start := time.Now()
			results, err := database.QueryDailyRecords(q)
			if err != nil {
				return fmt.Errorf("query error: %w", err)
			}
			elapsed := time.Since(start)

			switch outputFormat {
			case "json":
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			default:
				fmt.Printf("Found %d records (query time: %v)\n\n", len(results), elapsed)
				fmt.Printf("%-10s %-12s %-8s %8s %8s %8s %8s %8s\n",
					"Date", "Front", "Machine", "Hours", "Idle%", "Avail", "Effic", "GPS")
				fmt.Println(strings.Repeat("-", 78))
				for _, r := range results {
					for _, p := range r.Params {
						fmt.Printf("%-10s %-12s %-8d %8.2f %7.1f%% %7.1f%% %7.1f%% %7.1f%%\n",
							r.Date, r.Front, r.Machine, p.TotalHours,
							p.IdlePct*100, p.Availability*100, p.EnergyEfficiency*100, p.GPSUsagePct*100)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "Day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&front, "front", "f", "", "Filter by front (e.g. \"Frente 3\")")
	cmd.Flags().IntVarP(&machine, "machine", "m", 0, "Filter by machine number")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum records to return")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

// machinesCmd lists the machines in the store
func machinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "machines",
		Short: "List machines with stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			machines, err := database.ListMachines()
			if err != nil {
				return fmt.Errorf("error listing machines: %w", err)
			}

			if len(machines) == 0 {
				fmt.Println("No records found. Use 'harvest-monitor process' to load exports.")
				return nil
			}

			fmt.Printf("%-8s %-14s %-6s %-10s\n", "Machine", "Front", "Days", "Last day")
			fmt.Println(strings.Repeat("-", 42))
			for _, m := range machines {
				fmt.Printf("%-8d %-14s %-6d %-10s\n", m.Machine, m.Front, m.Days, m.LastDate)
			}

			return nil
		},
	}
}

// runsCmd lists the processing log
func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the processing log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			runs, err := database.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("error listing runs: %w", err)
			}

			for _, r := range runs {
				fmt.Printf("[%s] %-6s %-12s %s read=%d kept=%d excluded=%d skipped=%d records=%d\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.EquipmentType, r.File,
					r.RowsRead, r.RowsKept, r.RowsExcluded, r.RowsSkipped, r.Records)
				if r.Error != "" {
					fmt.Printf("     error: %s\n", r.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum runs to show")
	return cmd
}

// statsCmd shows database statistics
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			stats, err := database.GetStats()
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}

			fmt.Println("Harvest Fleet Monitor Statistics")
			fmt.Println("================================")
			fmt.Printf("  Daily Records:  %v\n", stats["total_records"])
			fmt.Printf("  Machines:       %v\n", stats["total_machines"])
			fmt.Printf("  Fronts:         %v\n", stats["total_fronts"])
			if first, ok := stats["first_date"]; ok {
				fmt.Printf("  Days:           %v to %v\n", first, stats["last_date"])
			}
			fmt.Printf("  Runs:           %v (%v failed)\n", stats["total_runs"], stats["failed_runs"])
			fmt.Printf("  Database:       %s\n", cfg.DBPath)

			return nil
		},
	}
}

// generateCmd writes a synthetic export
func generateCmd() *cobra.Command {
	var equipment string
	var machines int
	var hours int
	var front int
	var seed int64
	var startDate string
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a sample telemetry export",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := models.ParseEquipmentType(equipment)
			if err != nil {
				return err
			}
			opts := generator.Options{Equipment: t, Machines: machines, Hours: hours, Front: front, Seed: seed}
			if startDate != "" {
				d, err := civil.ParseDate(startDate)
				if err != nil {
					return fmt.Errorf("invalid start date (use YYYY-MM-DD): %w", err)
				}
				opts.Start = d.In(time.UTC).Add(6 * time.Hour)
			}
			if output == "" {
				output = fmt.Sprintf("%ss_sample.txt", groupFile(t))
			}

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("error creating output file: %w", err)
			}
			defer file.Close()

			rows, err := generator.Generate(file, opts)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Generated %d rows for %d machines in %s\n", rows, machines, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&equipment, "type", "t", "harvester", "Equipment type (harvester, transporter)")
	cmd.Flags().IntVarP(&machines, "machines", "n", 5, "Number of machines")
	cmd.Flags().IntVar(&hours, "hours", 12, "Hours of one-minute samples per machine")
	cmd.Flags().IntVar(&front, "front", 3, "Front number")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().StringVar(&startDate, "start", "", "First day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file")
	return cmd
}

// groupFile names generated files so the type is detected again on processing
func groupFile(t models.EquipmentType) string {
	if t == models.Harvester {
		return "colhedora"
	}
	return "transbordo"
}
