// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/fgeck/gowol/internal/models"
	"github.com/fgeck/gowol/internal/services/magicpacket"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"mac":       "wol.mac_address",
	"broadcast": "wol.broadcast_ip",
	"port":      "wol.port",
	"check-arp": "wol.check_arp",
	"ip":        "wol.ip",
	"timeout":   "wol.timeout",
	"interface": "wol.interface",
}

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// BindFlags lets the flags of fs that appear in FlagKeys override file values.
// Only flags the user actually set take precedence.
func (p *Parser) BindFlags(fs *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := p.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

// Load builds the configuration from bound flags alone.
func (p *Parser) Load() (*models.Config, error) {
	return p.parse()
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	cfg.WOL = models.WOLConfig{
		MACAddress:  p.v.GetString("wol.mac_address"),
		BroadcastIP: p.v.GetString("wol.broadcast_ip"),
		Port:        p.v.GetInt("wol.port"),
		IP:          p.v.GetString("wol.ip"),
		Interface:   p.v.GetString("wol.interface"),
	}

	if cfg.WOL.MACAddress == "" {
		return nil, fmt.Errorf("wol.mac_address is required")
	}

	// Set defaults.
	if cfg.WOL.BroadcastIP == "" {
		cfg.WOL.BroadcastIP = models.DefaultBroadcastIP
	}
	if net.ParseIP(cfg.WOL.BroadcastIP) == nil {
		return nil, fmt.Errorf("wol.broadcast_ip must be an IP address: %s", cfg.WOL.BroadcastIP)
	}
	if cfg.WOL.Port == 0 {
		cfg.WOL.Port = models.DefaultPort
	}
	if cfg.WOL.Port < 1 || cfg.WOL.Port > 65535 {
		return nil, fmt.Errorf("wol.port must be between 1 and 65535")
	}

	// check_arp stays nil unless set, so the capability default applies.
	if p.v.IsSet("wol.check_arp") {
		checkARP := p.v.GetBool("wol.check_arp")
		cfg.WOL.CheckARP = &checkARP
	}

	cfg.WOL.Timeout = models.DefaultTimeout
	if p.v.IsSet("wol.timeout") {
		seconds := p.v.GetInt("wol.timeout")
		if seconds < 0 {
			return nil, fmt.Errorf("wol.timeout must not be negative")
		}
		cfg.WOL.Timeout = time.Duration(seconds) * time.Second
	}

	// Parse optional SSH shutdown config.
	if p.v.IsSet("ssh_shutdown") { //nolint:nestif // config parsing with defaults
		cfg.SSHShutdown = &models.SSHShutdownConfig{
			Host:          p.v.GetString("ssh_shutdown.host"),
			Port:          p.v.GetInt("ssh_shutdown.port"),
			Username:      p.v.GetString("ssh_shutdown.username"),
			KeyPath:       p.expandEnv(p.v.GetString("ssh_shutdown.key_path")),
			ShutdownDelay: p.v.GetInt("ssh_shutdown.shutdown_delay"),
			OS:            p.v.GetString("ssh_shutdown.os"),
		}

		if cfg.SSHShutdown.Host == "" {
			cfg.SSHShutdown.Host = cfg.WOL.IP
		}
		if cfg.SSHShutdown.Host == "" {
			return nil, fmt.Errorf("ssh_shutdown.host is required when wol.ip is not set")
		}
		if cfg.SSHShutdown.Port == 0 {
			cfg.SSHShutdown.Port = 22
		}
		if cfg.SSHShutdown.Username == "" {
			cfg.SSHShutdown.Username = "root"
		}
		if cfg.SSHShutdown.KeyPath == "" {
			return nil, fmt.Errorf("ssh_shutdown.key_path is required when ssh_shutdown is configured")
		}
		if !p.v.IsSet("ssh_shutdown.shutdown_delay") {
			cfg.SSHShutdown.ShutdownDelay = 1
		}
		if cfg.SSHShutdown.OS == "" {
			cfg.SSHShutdown.OS = "linux"
		}
		validOS := map[string]bool{"linux": true, "windows": true}
		if !validOS[cfg.SSHShutdown.OS] {
			return nil, fmt.Errorf("ssh_shutdown.os must be one of: linux, windows")
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.WOL.MACAddress == "" {
		return fmt.Errorf("wol.mac_address is required")
	}

	if _, err := magicpacket.ParseHardwareAddr(cfg.WOL.MACAddress); err != nil {
		return err
	}

	if cfg.WOL.CheckARP != nil && *cfg.WOL.CheckARP && cfg.WOL.IP == "" {
		return fmt.Errorf("wol.ip is required when wol.check_arp is enabled")
	}

	if cfg.WOL.IP != "" {
		ip := net.ParseIP(cfg.WOL.IP)
		if ip == nil || ip.To4() == nil {
			return fmt.Errorf("wol.ip must be an IPv4 address: %s", cfg.WOL.IP)
		}
	}

	return nil
}
