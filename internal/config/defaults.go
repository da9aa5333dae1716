package config

const (
	defaultSpoolDir       = "~/.local/share/librarian/spool"
	defaultContentDir     = "~/.local/share/librarian/content"
	defaultCoversDir      = "~/.local/share/librarian/covers"
	defaultLogDir         = "~/.local/share/librarian/logs"
	defaultDatabasesDir   = "~/.local/share/librarian/databases"
	defaultSocket         = "~/.local/share/librarian/librariand.sock"
	defaultSpoolMaxAge    = 30
	defaultSpoolExtension = ".zip"
	defaultSpoolPoll      = 30
	defaultScanDelay      = 1
	defaultThumbWidth     = 200
	defaultThumbHeight    = 150
	defaultThumbQuality   = 75
	defaultThumbTimeout   = 5
	defaultCacheBackend   = "in-memory"
	defaultCacheTTL       = 300
	defaultCacheEntries   = 1000
	defaultTunerSocket    = "/var/run/ondd.ctrl"
	defaultTunerPoll      = 30
	defaultTunerTimeout   = 5
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SpoolDir:   defaultSpoolDir,
			ContentDir: defaultContentDir,
			CoversDir:  defaultCoversDir,
			LogDir:     defaultLogDir,
			Socket:     defaultSocket,
		},
		Databases: Databases{
			Dir: defaultDatabasesDir,
		},
		Spool: Spool{
			MaxAgeDays:   defaultSpoolMaxAge,
			Extension:    defaultSpoolExtension,
			PollSeconds:  defaultSpoolPoll,
			WatchEnabled: true,
		},
		Scan: Scan{
			DelaySeconds: defaultScanDelay,
			MaxDepth:     0,
		},
		Thumbs: Thumbs{
			FFmpegBinary:   "ffmpeg",
			FFprobeBinary:  "ffprobe",
			Width:          defaultThumbWidth,
			Height:         defaultThumbHeight,
			Quality:        defaultThumbQuality,
			TimeoutSeconds: defaultThumbTimeout,
		},
		Cache: Cache{
			Backend:    defaultCacheBackend,
			DefaultTTL: defaultCacheTTL,
			MaxEntries: defaultCacheEntries,
		},
		Tuner: Tuner{
			Socket:         defaultTunerSocket,
			PollSeconds:    defaultTunerPoll,
			TimeoutSeconds: defaultTunerTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Ingest:         true,
			Rejected:       true,
			TunerAlerts:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
