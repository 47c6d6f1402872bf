package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/frhanjav/vm-monitor/internal/agent"
	"github.com/frhanjav/vm-monitor/internal/api"
	"github.com/frhanjav/vm-monitor/internal/auth"
	"github.com/frhanjav/vm-monitor/internal/config"
	"github.com/frhanjav/vm-monitor/internal/monitor"
	"github.com/frhanjav/vm-monitor/internal/recommend"
)

// registrar is the collector surface enrollment needs.
type registrar interface {
	Register(ctx context.Context, instanceName, cloudProvider string) (*api.RegistrationResponse, error)
}

// enroll registers a freshly generated identity with the collector and
// persists it only after the collector has acknowledged it. A failed
// registration — transport or API — leaves no configuration behind: the
// agent must never hold an identity the collector does not know. Returns
// the path the configuration was written to.
func enroll(ctx context.Context, cfg *config.Config, client registrar, save func(*config.Config) (string, error), logger *zap.Logger) (string, error) {
	logger.Info("Registering instance with collector", zap.String("api_url", cfg.APIURL))
	resp, err := client.Register(ctx, cfg.InstanceName, string(cfg.CloudProvider))
	if err != nil {
		return "", fmt.Errorf("registration failed, configuration not saved: %w", err)
	}
	logger.Info("Instance registered", zap.String("message", resp.Message))
	return save(cfg)
}

// runInit enrolls this host: generates an identity and credential, detects
// the cloud provider, registers with the collector, and persists the
// configuration.
func runInit(args []string) error {
	flags := pflag.NewFlagSet("init", pflag.ExitOnError)
	apiURL := flags.String("api-url", "", "Remote collector base URL (required)")
	name := flags.String("name", "", "User-defined name for this instance (required)")
	interval := flags.Duration("interval", 60*time.Second, "Monitoring interval")
	batchSize := flags.Int("batch-size", 10, "Snapshots to batch before sending")
	logLevel := flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *apiURL == "" || *name == "" {
		return fmt.Errorf("--api-url and --name are required")
	}

	logger := initLogger(*logLevel)
	defer logger.Sync()
	ctx := context.Background()

	if _, err := config.Load(); err == nil {
		logger.Warn("Existing configuration found, re-initializing will overwrite it")
	}

	instanceID := uuid.NewString()
	apiKey, err := auth.GenerateCredential()
	if err != nil {
		return err
	}
	logger.Info("Generated instance identity", zap.String("instance_id", instanceID))

	logger.Info("Detecting cloud provider...")
	provider := config.DetectCloudProvider(ctx, logger)

	cfg := &config.Config{
		InstanceID:    instanceID,
		InstanceName:  *name,
		APIURL:        *apiURL,
		APIKey:        apiKey,
		CloudProvider: provider,
		Monitoring: config.MonitoringSettings{
			Interval:  config.Duration{Duration: *interval},
			BatchSize: *batchSize,
		},
		InitializedAt: time.Now().UTC(),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := api.New(cfg.APIURL, cfg.InstanceID, cfg.APIKey, logger)
	if err != nil {
		return err
	}

	path, err := enroll(ctx, cfg, client, config.Save, logger)
	if err != nil {
		return err
	}

	fmt.Println("vm-monitor agent initialized successfully!")
	fmt.Printf("  Instance ID:   %s\n", instanceID)
	fmt.Printf("  Instance Name: %s\n", *name)
	fmt.Printf("  API URL:       %s\n", *apiURL)
	fmt.Printf("  API Key:       %s\n", maskKey(apiKey))
	fmt.Printf("  Config file:   %s\n", path)
	return nil
}

// runStart runs the monitoring loop until SIGINT or SIGTERM.
func runStart(args []string) error {
	flags := pflag.NewFlagSet("start", pflag.ExitOnError)
	interval := flags.Duration("interval", 0, "Override the configured monitoring interval")
	logLevel := flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	runInterval := cfg.Monitoring.Interval.Duration
	if *interval > 0 {
		runInterval = *interval
	}

	logger := initLogger(*logLevel)
	defer logger.Sync()

	logger.Info("Starting vm-monitor agent",
		zap.String("version", version),
		zap.String("instance_id", cfg.InstanceID))

	client, err := api.New(cfg.APIURL, cfg.InstanceID, cfg.APIKey, logger)
	if err != nil {
		return err
	}
	sampler := monitor.NewSampler(cfg.InstanceID, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("vm-monitor agent started. Interval: %s, Batch size: %d. Press Ctrl+C to stop.\n",
		runInterval, cfg.Monitoring.BatchSize)

	ag := agent.New(sampler, client, runInterval, cfg.Monitoring.BatchSize, logger)
	ag.Run(ctx)

	logger.Info("Agent stopped")
	return nil
}

// runStatus prints the stored configuration, probes collector connectivity,
// and shows a live snapshot. Probe failure is reported, never fatal.
func runStatus(args []string) error {
	flags := pflag.NewFlagSet("status", pflag.ExitOnError)
	logLevel := flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logger := initLogger(*logLevel)
	defer logger.Sync()
	ctx := context.Background()

	fmt.Println("vm-monitor agent status:")
	fmt.Println()

	cfg, err := config.Load()
	if errors.Is(err, config.ErrNotFound) {
		fmt.Println("Not initialized. Run 'vm-monitor init' to configure the agent.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Println("Configuration:")
	fmt.Printf("  Instance ID:    %s\n", cfg.InstanceID)
	fmt.Printf("  Instance Name:  %s\n", cfg.InstanceName)
	fmt.Printf("  API URL:        %s\n", cfg.APIURL)
	fmt.Printf("  API Key:        %s\n", maskKey(cfg.APIKey))
	fmt.Printf("  Cloud Provider: %s\n", cfg.CloudProvider)
	fmt.Printf("  Interval:       %s\n", cfg.Monitoring.Interval.Duration)
	fmt.Printf("  Batch Size:     %d\n", cfg.Monitoring.BatchSize)
	fmt.Printf("  Initialized At: %s\n", cfg.InitializedAt.Format(time.RFC3339))
	fmt.Println()

	client, err := api.New(cfg.APIURL, cfg.InstanceID, cfg.APIKey, logger)
	if err != nil {
		return err
	}
	if err := client.CheckStatus(ctx); err != nil {
		fmt.Printf("Collector connection: error - %v\n", err)
	} else {
		fmt.Println("Collector connection: connected")
	}
	fmt.Println()

	sampler := monitor.NewSampler(cfg.InstanceID, logger)
	snap := sampler.Sample(ctx)

	fmt.Println("Current system metrics:")
	fmt.Printf("  Timestamp:  %s\n", snap.Timestamp.Format(time.RFC3339))
	fmt.Printf("  CPU:        %.2f%% (%d cores)\n", snap.CPU.UsagePercent, snap.CPU.CoreCount)
	fmt.Printf("  Memory:     %.2f GB / %.2f GB used (%.2f GB available)\n",
		gb(snap.Memory.UsedMemory), gb(snap.Memory.TotalMemory), gb(snap.Memory.AvailableMemory))
	fmt.Printf("  Swap:       %.2f GB / %.2f GB used\n",
		gb(snap.Memory.UsedSwap), gb(snap.Memory.TotalSwap))
	fmt.Printf("  Uptime:     %d seconds\n", snap.System.Uptime)
	fmt.Printf("  Disks:      %d\n", len(snap.Disks))
	fmt.Printf("  Interfaces: %d\n", len(snap.Network))
	return nil
}

// runRecommend samples usage for a window, then prints the most
// cost-efficient instance types that could carry the observed workload.
func runRecommend(args []string) error {
	flags := pflag.NewFlagSet("recommend", pflag.ExitOnError)
	duration := flags.Duration("duration", 60*time.Second, "How long to sample usage before recommending")
	region := flags.String("region", "", "Filter recommendations by region substring (e.g. 'us-east', 'europe')")
	logLevel := flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logger := initLogger(*logLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Collecting system usage data for %s. Please wait...\n", *duration)
	usage := recommend.MeasureUsage(ctx, *duration, logger)

	fmt.Println()
	fmt.Println("--- Usage analysis ---")
	fmt.Printf("Average CPU usage:    %.2f%%\n", usage.AvgCPUPercent)
	fmt.Printf("Average memory used:  %.2f GB\n", usage.AvgMemoryUsedGB)
	fmt.Printf("Physical CPU cores:   %d\n", usage.PhysicalCores)
	fmt.Printf("Recommending for ~%.2f vCPUs and %.2f GB memory\n", usage.NeededCores(), usage.NeededMemoryGB())
	fmt.Println()

	catalog, err := recommend.LoadCatalog()
	if err != nil {
		return err
	}

	recs := recommend.Recommend(catalog, usage, *region)
	if len(recs) == 0 {
		fmt.Println("No suitable instances found. Try a wider region filter.")
		return nil
	}

	fmt.Println("Top instance recommendations (lower score is better):")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tINSTANCE\tREGION\tVCPUS\tMEMORY (GB)\tCOST ($/H)\tSCORE")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f\t%.4f\t%.6f\n",
			rec.Instance.Provider,
			rec.Instance.InstanceName,
			rec.Instance.Region,
			rec.Instance.VCPUs,
			rec.Instance.MemoryGB,
			rec.Instance.HourlyCost,
			rec.CostPerNeededResource)
	}
	return w.Flush()
}

// gb converts bytes to gigabytes for display.
func gb(bytes uint64) float64 {
	return float64(bytes) / (1024 * 1024 * 1024)
}
