package config

import (
	"fmt"
	"io"
	"os"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"pulsedec/pkg/compactor"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/framing"
	"pulsedec/pkg/source"
)

// Config defines the struct of global config and the struct of the configuration file.
type Config struct {
	// Protocol selects the decoder (manchester|sync).
	Protocol   string                   `yaml:"protocol"`
	Input      source.Config            `yaml:"input"`
	Manchester decoder.ManchesterConfig `yaml:"manchester"`
	Sync       SyncConfig               `yaml:"sync"`
	Flag       FlagConfig               `yaml:"-"`
	Debug      DebugConfig              `yaml:"debug"`
	Webserver  WebserverConfig          `yaml:"webserver"`
	MQTT       MQTTConfig               `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters).
type FlagConfig struct {
	ConfigFile string
	Debug      string
	Protocol   string
}

// SyncConfig defines the compaction and framing of the sync decoder.
type SyncConfig struct {
	compactor.Config `yaml:",inline"`
	// Pattern is the sync pattern as 8 '0'/'1' characters.
	Pattern  string `yaml:"pattern"`
	MinMatch int    `yaml:"minmatch"`
	MaxBits  int    `yaml:"maxbits"`
	KeepBits int    `yaml:"keepbits"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file.
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file.
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file.
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		Protocol: string(decoder.ProtocolManchester),
		Input: source.Config{
			Kind:       source.KindSerial,
			Device:     "/dev/ttyACM0",
			Baud:       115200,
			Chip:       "gpiochip0",
			Terminator: "none",
			Rate:       1000,
			ChunkSize:  source.DefaultChunkSize,
		},
		Manchester: decoder.ManchesterConfig{
			Threshold:  4000,
			RunLimit:   20,
			SampleRate: 10000,
		},
		Sync: SyncConfig{
			Config:   compactor.Config{SamplesPerBit: 4, Shift: 2},
			Pattern:  "10101010",
			MinMatch: 5,
			MaxBits:  8000,
			KeepBits: 4000,
		},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"metrics": true,
			},
		},
		MQTT: MQTTConfig{
			Topic: "/pulsedec/frame",
		},
	}
}

// LoadConfig reads the configuration file (if defined) and applies the command line flags.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if c.Flag.Protocol != "" {
		c.Protocol = c.Flag.Protocol
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	dec := yaml.NewDecoder(file)
	if err = dec.Decode(c); err != nil {
		return err
	}

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	default:
		return fmt.Errorf("unknown debug level %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}

// Decoder returns the decoder configuration of the selected protocol.
func (c *Config) Decoder() (decoder.Protocol, decoder.ManchesterConfig, decoder.SyncConfig, error) {
	p := decoder.Protocol(c.Protocol)

	pattern, err := framing.ParsePattern(c.Sync.Pattern)
	if err != nil {
		return p, c.Manchester, decoder.SyncConfig{}, err
	}

	sc := decoder.SyncConfig{
		Compactor: c.Sync.Config,
		Framing: framing.Config{
			Pattern:  pattern,
			MinMatch: c.Sync.MinMatch,
			MaxBits:  c.Sync.MaxBits,
			KeepBits: c.Sync.KeepBits,
		},
	}
	return p, c.Manchester, sc, nil
}
