// Package main is the entry point for the vm-monitor agent. It provides four
// subcommands: init (enroll this host with the collector), start (run the
// monitoring loop), status (configuration and connectivity diagnostics), and
// recommend (suggest cheaper instance types from observed usage).
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time via -ldflags.
var version = "dev"

const usageText = `vm-monitor — host telemetry agent

Usage:
  vm-monitor init --api-url URL --name NAME [--interval DUR] [--batch-size N]
  vm-monitor start [--interval DUR]
  vm-monitor status
  vm-monitor recommend [--duration DUR] [--region REGION]
  vm-monitor version

Run "vm-monitor <command> --help" for command flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "recommend":
		err = runRecommend(os.Args[2:])
	case "version", "--version":
		fmt.Printf("vm-monitor %s\n", version)
	case "help", "--help", "-h":
		fmt.Print(usageText)
	default:
		fmt.Fprintf(os.Stderr, "vm-monitor: unknown command %q\n\n%s", os.Args[1], usageText)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "vm-monitor: %v\n", err)
		os.Exit(1)
	}
}

// initLogger creates a console zap logger at the given level.
func initLogger(levelName string) *zap.Logger {
	var level zapcore.Level
	switch levelName {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core)
}

// maskKey shows only a short prefix of a credential for display.
func maskKey(key string) string {
	if len(key) <= 8 {
		return key
	}
	return key[:8] + "... (masked)"
}
