package providers

import (
	"fmt"
	"path/filepath"
	"streamwatch/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.queryTimeout", 10*time.Second)
	v.SetDefault("cache.ttl", 5*time.Second)
	v.SetDefault("dashboard.timezone", "UTC")
	v.SetDefault("dashboard.defaultWindowHours", 1)
	v.SetDefault("producers.interval", 60*time.Second)
	v.SetDefault("producers.cacheSize", 8)
	v.SetDefault("producers.liveTTL", 60*time.Second)
	v.SetDefault("producers.resolveTTL", 120*time.Second)
	v.SetDefault("producers.twitch.apiBase", "https://api.twitch.tv/helix")
	v.SetDefault("producers.twitch.authBase", "https://id.twitch.tv/oauth2")
	v.SetDefault("producers.youtube.apiBase", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("producers.tiktok.baseUrl", "https://www.tiktok.com")
	v.SetDefault("producers.tiktok.timeout", 10*time.Second)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config
	v := viper.New()
	setDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.BindEnv("logger.level", "STREAMWATCH_LOG_LEVEL")
	v.BindEnv("storage.driver", "STREAMWATCH_STORAGE_DRIVER")
	v.BindEnv("storage.dsn", "STREAMWATCH_STORAGE_DSN")
	v.BindEnv("persistence.saveInterval", "STREAMWATCH_SAVE_INTERVAL")
	v.BindEnv("cache.enabled", "STREAMWATCH_CACHE_ENABLED")
	v.BindEnv("cache.size", "STREAMWATCH_CACHE_SIZE")
	v.BindEnv("producers.interval", "STREAMWATCH_POLL_INTERVAL")
	v.BindEnv("producers.twitch.clientId", "TWITCH_CLIENT_ID")
	v.BindEnv("producers.twitch.clientSecret", "TWITCH_CLIENT_SECRET")
	v.BindEnv("producers.youtube.apiKey", "YOUTUBE_API_KEY")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "StreamWatch"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
