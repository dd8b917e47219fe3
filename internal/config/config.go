package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Server   ServerConfig `mapstructure:"server"`
	TTS      TTSConfig    `mapstructure:"tts"`
	Store    StoreConfig  `mapstructure:"store"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
}

type TTSConfig struct {
	Command           string `mapstructure:"command"`
	DefaultLanguage   string `mapstructure:"default_language"`
	DefaultSpeakerWAV string `mapstructure:"default_speaker_wav"`
	MaxUnitLength     int    `mapstructure:"max_unit_length"`
	ChunkSize         int    `mapstructure:"chunk_size"`
}

type StoreConfig struct {
	OutputDir        string `mapstructure:"output_dir"`
	RetentionSeconds int    `mapstructure:"retention_seconds"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      ":8000",
			ShutdownTimeout: 30,
			RequestTimeout:  120,
			Workers:         1,
			MaxTextBytes:    5000,
		},
		TTS: TTSConfig{
			Command:           "",
			DefaultLanguage:   "en",
			DefaultSpeakerWAV: "",
			MaxUnitLength:     500,
			ChunkSize:         4096,
		},
		Store: StoreConfig{
			OutputDir:        "generated_audio",
			RetentionSeconds: 3600,
		},
	}
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("server-shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown drain period in seconds")
	fs.Int("server-request-timeout", defaults.Server.RequestTimeout, "Per-request synthesis deadline in seconds")
	fs.Int("server-workers", defaults.Server.Workers, "Max concurrent synthesis requests admitted by the HTTP layer")
	fs.Int("server-max-text-bytes", defaults.Server.MaxTextBytes, "Maximum request text length in bytes")
	fs.String("tts-command", defaults.TTS.Command, "External synthesis command (mock synthesizer when empty)")
	fs.String("tts-default-language", defaults.TTS.DefaultLanguage, "Language used when a request omits one")
	fs.String("tts-default-speaker-wav", defaults.TTS.DefaultSpeakerWAV, "Default speaker reference audio path")
	fs.Int("tts-max-unit-length", defaults.TTS.MaxUnitLength, "Maximum characters per speakable unit")
	fs.Int("tts-chunk-size", defaults.TTS.ChunkSize, "Default streaming chunk size in bytes")
	fs.String("store-output-dir", defaults.Store.OutputDir, "Directory for generated audio artifacts")
	fs.Int("store-retention-seconds", defaults.Store.RetentionSeconds, "Seconds to keep generated artifacts before deletion")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := v.BindPFlags(opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	registerAliases(v)

	v.SetEnvPrefix("REALTIMETTS")
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("realtimetts")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.request_timeout", c.Server.RequestTimeout)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("tts.command", c.TTS.Command)
	v.SetDefault("tts.default_language", c.TTS.DefaultLanguage)
	v.SetDefault("tts.default_speaker_wav", c.TTS.DefaultSpeakerWAV)
	v.SetDefault("tts.max_unit_length", c.TTS.MaxUnitLength)
	v.SetDefault("tts.chunk_size", c.TTS.ChunkSize)
	v.SetDefault("store.output_dir", c.Store.OutputDir)
	v.SetDefault("store.retention_seconds", c.Store.RetentionSeconds)
}

func registerAliases(v *viper.Viper) {
	v.RegisterAlias("log_level", "log-level")
	v.RegisterAlias("server.listen_addr", "server-listen-addr")
	v.RegisterAlias("server.shutdown_timeout", "server-shutdown-timeout")
	v.RegisterAlias("server.request_timeout", "server-request-timeout")
	v.RegisterAlias("server.workers", "server-workers")
	v.RegisterAlias("server.max_text_bytes", "server-max-text-bytes")
	v.RegisterAlias("tts.command", "tts-command")
	v.RegisterAlias("tts.default_language", "tts-default-language")
	v.RegisterAlias("tts.default_speaker_wav", "tts-default-speaker-wav")
	v.RegisterAlias("tts.max_unit_length", "tts-max-unit-length")
	v.RegisterAlias("tts.chunk_size", "tts-chunk-size")
	v.RegisterAlias("store.output_dir", "store-output-dir")
	v.RegisterAlias("store.retention_seconds", "store-retention-seconds")
}
