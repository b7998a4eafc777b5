package config

const (
	defaultDataDir             = "~/.local/share/mediaqc"
	defaultLogDir              = "~/.local/share/mediaqc/logs"
	defaultUploadDir           = "~/.local/share/mediaqc/uploads"
	defaultStagingDir          = "~/.local/share/mediaqc/staging"
	defaultAPIBind             = "127.0.0.1:7823"
	defaultMaxConcurrent       = 3
	defaultQueuedStuckMinutes  = 10
	defaultRunningStuckMinutes = 30
	defaultProgressPageSize    = 100
	defaultBasicTimeout        = 60
	defaultFullTimeout         = 600
	defaultDownloadTimeout     = 300
	defaultDispatchInterval    = 5
	defaultReconcileInterval   = 60
	defaultErrorRetryInterval  = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			UploadDir:  defaultUploadDir,
			StagingDir: defaultStagingDir,
			APIBind:    defaultAPIBind,
		},
		Queue: Queue{
			MaxConcurrent:       defaultMaxConcurrent,
			QueuedStuckMinutes:  defaultQueuedStuckMinutes,
			RunningStuckMinutes: defaultRunningStuckMinutes,
			ProgressPageSize:    defaultProgressPageSize,
		},
		Analyzer: Analyzer{
			BasicTimeoutSeconds:    defaultBasicTimeout,
			FullTimeoutSeconds:     defaultFullTimeout,
			DownloadTimeoutSeconds: defaultDownloadTimeout,
		},
		Workflow: Workflow{
			DispatchInterval:   defaultDispatchInterval,
			ReconcileInterval:  defaultReconcileInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
