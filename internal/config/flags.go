package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// ParseFlags parses the process command line.
//
// Flags:
//
//	-host note service base URL
//	-token developer auth token
//	-d local database DSN
//	-settings settings YAML file path
//	-secrets secret store backend ("keyring" or "file")
//	-secrets-file encrypted secrets file path
//	-c/-config json file path with configs
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-rps client-side requests per second
//	-max-chunk-entries max entries of one sync chunk
//	-thumbnails download note thumbnails
//	-thumbnail-dir thumbnail output directory
//	-interval periodic sync interval (e.g., "15m")
//	-log log file path
//	-log-level log level
func ParseFlags() (*StructuredConfig, error) {
	return parseFlagArgs(os.Args[1:])
}

func parseFlagArgs(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)

	var (
		host               string
		developerToken     string
		databaseDSN        string
		settingsPath       string
		secretsBackend     string
		secretsFile        string
		jsonConfigPath     string
		requestTimeout     time.Duration
		requestsPerSecond  float64
		maxChunkEntries    int
		downloadThumbnails bool
		thumbnailDir       string
		interval           time.Duration
		logPath            string
		logLevel           string
		logConsole         bool
	)

	fs.StringVar(&host, "host", "", "Note service base URL")
	fs.StringVar(&developerToken, "token", "", "Developer auth token")
	fs.StringVar(&databaseDSN, "d", "", "Local database DSN")
	fs.StringVar(&settingsPath, "settings", "", "Settings file path")
	fs.StringVar(&secretsBackend, "secrets", "", "Secret store backend: keyring or file")
	fs.StringVar(&secretsFile, "secrets-file", "", "Encrypted secrets file path")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	fs.Float64Var(&requestsPerSecond, "rps", 0, "Client-side requests per second")
	fs.IntVar(&maxChunkEntries, "max-chunk-entries", 0, "Max entries of one sync chunk")
	fs.BoolVar(&downloadThumbnails, "thumbnails", false, "Download note thumbnails")
	fs.StringVar(&thumbnailDir, "thumbnail-dir", "", "Thumbnail output directory")
	fs.DurationVar(&interval, "interval", 0, "Periodic sync interval (e.g., 15m)")
	fs.StringVar(&logPath, "log", "", "Log file path")
	fs.StringVar(&logLevel, "log-level", "", "Log level")
	fs.BoolVar(&logConsole, "log-console", false, "Mirror log entries to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return &StructuredConfig{
		App: App{
			DeveloperToken: developerToken,
		},
		Adapter: Adapter{
			Host:              host,
			RequestTimeout:    requestTimeout,
			RequestsPerSecond: requestsPerSecond,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			SettingsPath: settingsPath,
			Secrets: Secrets{
				Backend:  secretsBackend,
				FilePath: secretsFile,
			},
		},
		Sync: Sync{
			MaxChunkEntries:    maxChunkEntries,
			DownloadThumbnails: downloadThumbnails,
			ThumbnailDir:       thumbnailDir,
			Interval:           interval,
		},
		Log: Log{
			Path:    logPath,
			Level:   logLevel,
			Console: logConsole,
		},
		JSONFilePath: jsonConfigPath,
	}, nil
}
