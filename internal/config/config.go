package config

import "time"

// Default configuration values.
const (
	defaultServiceName     = "serp-analyzer"
	defaultServiceVersion  = "1.0.0"
	defaultServicePort     = 8082
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultDBUser          = "postgres"
	defaultDBName          = "serp_analyzer"
	defaultDBSSLMode       = "disable"
	defaultDBMaxConns      = 25
	defaultDBMaxIdleConns  = 5
	defaultLogLevel        = "info"
	defaultPollIntervalSec = 60
	defaultScheduleRPS     = 2
	defaultScheduleBurst   = 4

	defaultMinImpressions      = 50
	defaultSimilarityThreshold = 0.5
	defaultMaxClusters         = 50
	defaultMaxIterations       = 100
	defaultTopQueryCap         = 500
	defaultSearchWindow        = 50
	defaultSamplePairs         = 3
	defaultMinClusterSize      = 2

	defaultQuickWinMinImpressions = 100
	defaultQuickWinMaxPosition    = 20.0
	defaultMaxCannibalReports     = 25
)

// Config holds all configuration for the analyzer service.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Engine    EngineConfig    `yaml:"engine"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Auth      AuthConfig      `yaml:"auth"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	Port    int    `env:"ANALYZER_PORT" yaml:"port"`
	Debug   bool   `env:"APP_DEBUG"     yaml:"debug"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `env:"POSTGRES_HOST"     yaml:"host"`
	Port            int           `env:"POSTGRES_PORT"     yaml:"port"`
	User            string        `env:"POSTGRES_USER"     yaml:"user"`
	Password        string        `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database        string        `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode         string        `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
	MaxConnections  int           `yaml:"max_connections"`
	MaxIdleConns    int           `yaml:"max_idle_connections"`
	ConnMaxLifetime time.Duration `yaml:"connection_max_lifetime"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" yaml:"level"`
	Output string `yaml:"output"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `env:"AUTH_JWT_SECRET" yaml:"jwt_secret"`
}

// SchedulerConfig holds background re-analysis settings.
type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"`
	RunsPerSec   int           `yaml:"runs_per_second"`
	Burst        int           `yaml:"burst"`
}

// EngineConfig holds the analysis knobs exposed to callers.
type EngineConfig struct {
	Cannibalization CannibalizationConfig `yaml:"cannibalization"`
	Clusterer       ClustererConfig       `yaml:"clusterer"`
	Reporting       ReportingConfig       `yaml:"reporting"`
}

// CannibalizationConfig holds cannibalization detection settings.
type CannibalizationConfig struct {
	// MinImpressions is the minimum combined impressions a query needs
	// before it can produce a cluster.
	MinImpressions int `yaml:"min_impressions"`
}

// ClustererConfig holds keyword clustering settings. The caps bound the
// cost of the approximate agglomerative merge; they are part of the
// engine's latency contract, not tuning hints.
type ClustererConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxClusters         int     `yaml:"max_clusters"`
	MaxIterations       int     `yaml:"max_iterations"`
	TopQueryCap         int     `yaml:"top_query_cap"`
	SearchWindow        int     `yaml:"search_window"`
	SamplePairs         int     `yaml:"sample_pairs"`
	MinClusterSize      int     `yaml:"min_cluster_size"`
}

// ReportingConfig holds thresholds consumed by the dashboard's reporting
// layer; the API passes them through, the engine never reads them.
type ReportingConfig struct {
	QuickWinMinImpressions int     `yaml:"quick_win_min_impressions"`
	QuickWinMaxPosition    float64 `yaml:"quick_win_max_position"`
	MaxCannibalReports     int     `yaml:"max_cannibalization_reports"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)
	// Env always wins, including over defaults.
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Default returns a config populated with defaults only, for tests and
// embedded use.
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

func setDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setDatabaseDefaults(&cfg.Database)
	setLoggingDefaults(&cfg.Logging)
	setEngineDefaults(&cfg.Engine)
	setSchedulerDefaults(&cfg.Scheduler)
	// Auth has no defaults; an empty secret disables route protection.
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setDatabaseDefaults(d *DatabaseConfig) {
	if d.Host == "" {
		d.Host = defaultDBHost
	}
	if d.Port == 0 {
		d.Port = defaultDBPort
	}
	if d.User == "" {
		d.User = defaultDBUser
	}
	if d.Database == "" {
		d.Database = defaultDBName
	}
	if d.SSLMode == "" {
		d.SSLMode = defaultDBSSLMode
	}
	if d.MaxConnections == 0 {
		d.MaxConnections = defaultDBMaxConns
	}
	if d.MaxIdleConns == 0 {
		d.MaxIdleConns = defaultDBMaxIdleConns
	}
	if d.ConnMaxLifetime == 0 {
		d.ConnMaxLifetime = time.Hour
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
}

func setSchedulerDefaults(s *SchedulerConfig) {
	if s.PollInterval == 0 {
		s.PollInterval = defaultPollIntervalSec * time.Second
	}
	if s.RunsPerSec == 0 {
		s.RunsPerSec = defaultScheduleRPS
	}
	if s.Burst == 0 {
		s.Burst = defaultScheduleBurst
	}
}

func setEngineDefaults(e *EngineConfig) {
	if e.Cannibalization.MinImpressions == 0 {
		e.Cannibalization.MinImpressions = defaultMinImpressions
	}
	c := &e.Clusterer
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}
	if c.MaxClusters == 0 {
		c.MaxClusters = defaultMaxClusters
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.TopQueryCap == 0 {
		c.TopQueryCap = defaultTopQueryCap
	}
	if c.SearchWindow == 0 {
		c.SearchWindow = defaultSearchWindow
	}
	if c.SamplePairs == 0 {
		c.SamplePairs = defaultSamplePairs
	}
	if c.MinClusterSize == 0 {
		c.MinClusterSize = defaultMinClusterSize
	}
	r := &e.Reporting
	if r.QuickWinMinImpressions == 0 {
		r.QuickWinMinImpressions = defaultQuickWinMinImpressions
	}
	if r.QuickWinMaxPosition == 0 {
		r.QuickWinMaxPosition = defaultQuickWinMaxPosition
	}
	if r.MaxCannibalReports == 0 {
		r.MaxCannibalReports = defaultMaxCannibalReports
	}
}
