package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type StorageConfig struct {
	Driver       string        `yaml:"driver" validate:"required|in:memory,postgres,sqlite"`
	Dsn          string        `yaml:"dsn"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	Ttl     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type DashboardConfig struct {
	Timezone           string  `yaml:"timezone"`
	DefaultWindowHours float64 `yaml:"defaultWindowHours"`
}

type TwitchConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ClientId     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	ApiBase      string `yaml:"apiBase"`
	AuthBase     string `yaml:"authBase"`
}

type YoutubeConfig struct {
	Enabled bool   `yaml:"enabled"`
	ApiKey  string `yaml:"apiKey"`
	ApiBase string `yaml:"apiBase"`
}

type TiktokConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseUrl string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

type ProducersConfig struct {
	Interval   time.Duration `yaml:"interval"`
	CacheSize  int           `yaml:"cacheSize"`
	LiveTTL    time.Duration `yaml:"liveTTL"`
	ResolveTTL time.Duration `yaml:"resolveTTL"`
	Twitch     TwitchConfig  `yaml:"twitch"`
	Youtube    YoutubeConfig `yaml:"youtube"`
	Tiktok     TiktokConfig  `yaml:"tiktok"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server          `yaml:"webServer"`
	Storage     StorageConfig   `yaml:"storage"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Dashboard   DashboardConfig `yaml:"dashboard"`
	Producers   ProducersConfig `yaml:"producers"`
}
