// Package config handles configuration loading for the MTOM endpoint and
// client.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax).
//
// # Configuration Sections
//
//   - server: HTTP server settings (port, TLS, base path, limits)
//   - client: outbound endpoint and timeouts
//   - codec: SOAP version, MTOM and Fast Infoset negotiation
//   - logging: slog level and format
//
// # Example Configuration
//
//	server:
//	  port: 8080
//	  basePath: /soap
//	  compress: true
//	  tls:
//	    enabled: true
//	    certFile: /etc/ssl/server.crt
//	    keyFile: /etc/ssl/server.key
//
//	codec:
//	  soapVersion: "1.2"
//	  mtom:
//	    enabled: true
//	    threshold: 1024
//	  contentNegotiation: pessimistic
//
//	logging:
//	  level: debug
//	  format: json
//
// See [Load] for loading configuration from a file.
package config

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-mtom/pkg/codec"
	"github.com/sirosfoundation/go-mtom/pkg/message"
	"github.com/sirosfoundation/go-mtom/pkg/transport"
)

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Codec   CodecConfig   `yaml:"codec"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"basePath"`
	TLS      struct {
		Enabled  bool   `yaml:"enabled"`
		CertFile string `yaml:"certFile"`
		KeyFile  string `yaml:"keyFile"`
	} `yaml:"tls"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxRequestBytes int64         `yaml:"maxRequestBytes"`
	Compress        bool          `yaml:"compress"`
}

// ClientConfig holds outbound call settings
type ClientConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Compress bool          `yaml:"compress"`
}

// CodecConfig selects the wire encodings
type CodecConfig struct {
	// SOAPVersion is "1.1" or "1.2"
	SOAPVersion string `yaml:"soapVersion"`
	MTOM        struct {
		Enabled bool `yaml:"enabled"`
		// Binary values shorter than Threshold bytes stay inline
		Threshold int `yaml:"threshold"`
	} `yaml:"mtom"`
	// ContentNegotiation is "none", "pessimistic" or "optimistic"
	ContentNegotiation string `yaml:"contentNegotiation"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML bytes
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults
	cfg.applyDefaults()

	// Validate
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.BasePath == "" {
		c.Server.BasePath = "/"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.MaxRequestBytes == 0 {
		c.Server.MaxRequestBytes = 64 << 20
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 30 * time.Second
	}
	if c.Codec.SOAPVersion == "" {
		c.Codec.SOAPVersion = "1.1"
	}
	if c.Codec.ContentNegotiation == "" {
		c.Codec.ContentNegotiation = message.NegotiationNone.String()
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

func (c *Config) validate() error {
	if _, err := message.ParseSOAPVersion(c.Codec.SOAPVersion); err != nil {
		return fmt.Errorf("codec.soapVersion: %w", err)
	}
	if _, err := message.ParseContentNegotiation(c.Codec.ContentNegotiation); err != nil {
		return fmt.Errorf("codec.contentNegotiation: %w", err)
	}
	if c.Codec.MTOM.Threshold < 0 {
		return fmt.Errorf("codec.mtom.threshold must not be negative, got %d", c.Codec.MTOM.Threshold)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.certFile and server.tls.keyFile are required when TLS is enabled")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got '%s'", c.Logging.Format)
	}
	return nil
}

// CodecOptions converts the codec section into codec options. Values were
// checked by Load.
func (c *Config) CodecOptions(logger *slog.Logger) codec.Config {
	version, _ := message.ParseSOAPVersion(c.Codec.SOAPVersion)
	negotiation, _ := message.ParseContentNegotiation(c.Codec.ContentNegotiation)

	opts := codec.Config{
		Version:     version,
		Negotiation: negotiation,
		Logger:      logger,
	}
	if c.Codec.MTOM.Enabled {
		opts.MTOM = &message.MTOMFeature{Enabled: true, Threshold: c.Codec.MTOM.Threshold}
	}
	return opts
}

// HandlerOptions returns the settings for a transport.Handler
func (c *Config) HandlerOptions(logger *slog.Logger) transport.HandlerConfig {
	return transport.HandlerConfig{
		Codec:           c.CodecOptions(logger),
		Compress:        c.Server.Compress,
		MaxRequestBytes: c.Server.MaxRequestBytes,
	}
}

// ServerTLS returns the server HTTPS settings, loading the key pair when TLS
// is enabled.
func (c *Config) ServerTLS() (*transport.HTTPSConfig, error) {
	https := transport.DefaultHTTPSConfig()
	https.Timeout = c.Server.Timeout
	https.Compress = c.Server.Compress
	if !c.Server.TLS.Enabled {
		return https, nil
	}
	cert, err := tls.LoadX509KeyPair(c.Server.TLS.CertFile, c.Server.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading TLS key pair: %w", err)
	}
	https.Certificates = []tls.Certificate{cert}
	return https, nil
}

// ClientHTTPS returns the client HTTPS settings
func (c *Config) ClientHTTPS() *transport.HTTPSConfig {
	https := transport.DefaultHTTPSConfig()
	https.Timeout = c.Client.Timeout
	https.Compress = c.Client.Compress
	return https
}

// NewLogger creates the configured slog logger writing to w
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return level, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
