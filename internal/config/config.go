package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	// Room engine.
	HistoryLimit     int           `mapstructure:"history_limit" yaml:"history_limit"`
	RoomIdleTTL      time.Duration `mapstructure:"room_idle_ttl" yaml:"room_idle_ttl"`
	EvictionInterval time.Duration `mapstructure:"eviction_interval" yaml:"eviction_interval"`
	PersistQueue     int           `mapstructure:"persist_queue" yaml:"persist_queue"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout" yaml:"persist_timeout"`

	// Websocket connections.
	SendBuffer        int           `mapstructure:"send_buffer" yaml:"send_buffer"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	PingInterval      time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	MessagesPerMinute int           `mapstructure:"messages_per_minute" yaml:"messages_per_minute"`

	// Join tickets handed out by the REST join endpoint.
	TicketSecret string        `mapstructure:"ticket_secret" yaml:"ticket_secret"`
	TicketTTL    time.Duration `mapstructure:"ticket_ttl" yaml:"ticket_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		DatabasePath:      "roomchat.db",
		HistoryLimit:      50,
		RoomIdleTTL:       5 * time.Minute,
		EvictionInterval:  time.Minute,
		PersistQueue:      256,
		PersistTimeout:    3 * time.Second,
		SendBuffer:        64,
		WriteTimeout:      5 * time.Second,
		PingInterval:      20 * time.Second,
		MaxMessageBytes:   32 << 10,
		MessagesPerMinute: 120,
		TicketSecret:      "change-me",
		TicketTTL:         time.Minute,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.RoomIdleTTL != 0 {
		c.RoomIdleTTL = other.RoomIdleTTL
	}
	if other.EvictionInterval != 0 {
		c.EvictionInterval = other.EvictionInterval
	}
	if other.PersistQueue != 0 {
		c.PersistQueue = other.PersistQueue
	}
	if other.PersistTimeout != 0 {
		c.PersistTimeout = other.PersistTimeout
	}
	if other.SendBuffer != 0 {
		c.SendBuffer = other.SendBuffer
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.PingInterval != 0 {
		c.PingInterval = other.PingInterval
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.MessagesPerMinute != 0 {
		c.MessagesPerMinute = other.MessagesPerMinute
	}
	if other.TicketSecret != "" {
		c.TicketSecret = other.TicketSecret
	}
	if other.TicketTTL != 0 {
		c.TicketTTL = other.TicketTTL
	}
}
