package config

const (
	defaultDataDir             = "~/.local/share/concierge"
	defaultLogDir              = "~/.local/share/concierge/logs"
	defaultTicketCategory      = "Tickets"
	defaultTaskCategory        = "Tasks"
	defaultTranscriptLimit     = 200
	defaultOverduePollInterval = 60
	defaultStorageBackend      = StorageJSON
	defaultAPIBind             = "127.0.0.1:7488"
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	// maxTranscriptLimit bounds history fetches; transcripts are truncated to
	// the embed description limit anyway.
	maxTranscriptLimit = 1000
)

var defaultTicketReasons = []string{"billing", "account_issues", "payment_issues"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Tickets: Tickets{
			Category:        defaultTicketCategory,
			Reasons:         append([]string(nil), defaultTicketReasons...),
			TranscriptLimit: defaultTranscriptLimit,
		},
		Tasks: Tasks{
			Category:            defaultTaskCategory,
			OverduePollInterval: defaultOverduePollInterval,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			TaskOverdue:    true,
			TaskCompleted:  true,
			TicketClosed:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
