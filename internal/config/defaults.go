package config

// Default values applied after parse and before validation. Values already
// set by the user are never overwritten.
const (
	DefaultWorkflowDir  = ".conveyor"
	DefaultWorkspaceDir = "./workspace"
	DefaultCacheDir     = "./cache"
	DefaultStorePath    = "./conveyor.db"
	DefaultListenAddr   = ":8099"
	DefaultWorkers      = 2
	DefaultQueueSize    = 64
	DefaultNATSSubject  = "conveyor.runs"
	DefaultNATSStream   = "CONVEYOR"
	DefaultLogLevel     = "info"
)

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.WorkflowDir == "" {
		cfg.WorkflowDir = DefaultWorkflowDir
	}
	if cfg.Workspace.Directory == "" {
		cfg.Workspace.Directory = DefaultWorkspaceDir
	}
	if cfg.Cache.Directory == "" {
		cfg.Cache.Directory = DefaultCacheDir
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Daemon.ListenAddr == "" {
		cfg.Daemon.ListenAddr = DefaultListenAddr
	}
	if cfg.Daemon.Workers <= 0 {
		cfg.Daemon.Workers = DefaultWorkers
	}
	if cfg.Daemon.QueueSize <= 0 {
		cfg.Daemon.QueueSize = DefaultQueueSize
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject
	}
	if cfg.NATS.Stream == "" {
		cfg.NATS.Stream = DefaultNATSStream
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
}
