package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "DOM_HARNESS"

// prefixEnvVars prefixes the environment variable name with the app prefix
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Manifest = &cli.StringFlag{
		Name:     "manifest",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("MANIFEST"),
		Usage:    "Path to the environment manifest file (eg. 'environments.yaml')",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between harness runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	CaptureTimeout = &cli.DurationFlag{
		Name:    "capture-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("CAPTURE_TIMEOUT"),
		Usage:   "Default console capture timeout per environment. Set to 0 to use the built-in default.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store run artifacts (console captures and summaries)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "The lowest log level that will be output",
	}
	DocsDir = &cli.StringFlag{
		Name:    "docs-dir",
		Value:   "",
		EnvVars: prefixEnvVars("DOCS_DIR"),
		Usage:   "Directory of test documents to serve over HTTP (disabled when empty)",
	}
	DocsAddr = &cli.StringFlag{
		Name:    "docs-addr",
		Value:   "0.0.0.0:8090",
		EnvVars: prefixEnvVars("DOCS_ADDR"),
		Usage:   "Listen address for the test document server",
	}
)

var requiredFlags = []cli.Flag{
	Manifest,
}

var optionalFlags = []cli.Flag{
	RunInterval,
	CaptureTimeout,
	LogDir,
	LogLevel,
	DocsDir,
	DocsAddr,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
