package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/wneessen/go-mail"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

const defaultSMTPPort = 587

var (
	ErrMissingArguments = errors.New("to_email, from_email and sub_dir are required")
	ErrInvalidAddress   = errors.New("invalid email address")
)

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	Args struct {
		ToEmail   string `positional-arg-name:"to_email" description:"Digest recipient address"`
		FromEmail string `positional-arg-name:"from_email" description:"Digest sender address"`
		SubDir    string `positional-arg-name:"sub_dir" description:"Directory containing subscriptions.xml"`
	} `positional-args:"yes"`

	// Directories
	LogDir     string `short:"l" long:"log-dir" env:"NIBBLER_LOG_DIR" description:"Directory for the dated log file (default: working directory)"`
	SMTPConfig string `short:"s" long:"smtp-config" env:"NIBBLER_SMTP_CONFIG" description:"YAML file with SMTP settings; without it the digest is written to a file"`
	DBDir      string `short:"d" long:"db-dir" env:"NIBBLER_DB_DIR" description:"Directory for nibbler.db (default: working directory)"`
	EmailDir   string `short:"e" long:"email-dir" env:"NIBBLER_EMAIL_DIR" description:"Directory for the .eml digest file (default: working directory)"`

	// HTML normalization
	TransparentTags []string `long:"transparent-tag" env:"NIBBLER_TRANSPARENT_TAGS" env-delim:"," default:"span" description:"Tag removed from article HTML with its children kept (repeatable)"`
	OpaqueTags      []string `long:"opaque-tag" env:"NIBBLER_OPAQUE_TAGS" env-delim:"," default:"br" description:"Tag removed from article HTML with everything inside it (repeatable)"`

	// Digest image attributes
	ImageWidth  int `long:"image-width" env:"NIBBLER_IMAGE_WIDTH" default:"480" description:"Width forced onto digest images"`
	ImageHeight int `long:"image-height" env:"NIBBLER_IMAGE_HEIGHT" default:"320" description:"Height forced onto digest images"`
	ImageBorder int `long:"image-border" env:"NIBBLER_IMAGE_BORDER" default:"0" description:"Border forced onto digest images"`

	// Fetching
	UserAgent      string `long:"user-agent" env:"NIBBLER_USER_AGENT" default:"RSS Nibbler/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout   int    `long:"fetch-timeout" env:"NIBBLER_FETCH_TIMEOUT" default:"30" description:"Per-request timeout in seconds"`
	ExtractContent bool   `long:"extract-content" env:"NIBBLER_EXTRACT_CONTENT" description:"Fetch the article page when a feed entry carries no text"`

	// Application metadata
	Debug       bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	ShowVersion bool `short:"V" long:"version" description:"Print the version and exit"`
}

// Load parses args (without the program name). It returns nil, nil when the
// caller asked for help or the version and nothing else should run.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.Usage = "[OPTIONS] to_email from_email sub_dir"

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.ShowVersion {
		fmt.Println(GetVersion())
		return nil, nil
	}

	if raw.Args.ToEmail == "" || raw.Args.FromEmail == "" || raw.Args.SubDir == "" {
		return nil, ErrMissingArguments
	}

	if err := validateAddresses(raw.Args.ToEmail, raw.Args.FromEmail); err != nil {
		return nil, err
	}

	if raw.FetchTimeout <= 0 {
		return nil, fmt.Errorf("fetch timeout must be positive, got %d", raw.FetchTimeout)
	}

	cfg := &Cfg{
		ToEmail:         raw.Args.ToEmail,
		FromEmail:       raw.Args.FromEmail,
		EmailDirSet:     raw.EmailDir != "",
		TransparentTags: raw.TransparentTags,
		OpaqueTags:      raw.OpaqueTags,
		ImageWidth:      raw.ImageWidth,
		ImageHeight:     raw.ImageHeight,
		ImageBorder:     raw.ImageBorder,
		UserAgent:       raw.UserAgent,
		FetchTimeout:    time.Duration(raw.FetchTimeout) * time.Second,
		ExtractContent:  raw.ExtractContent,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	var err error
	if cfg.SubDir, err = resolveDir(raw.Args.SubDir); err != nil {
		return nil, err
	}
	if cfg.LogDir, err = resolveDir(raw.LogDir); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = resolveDir(raw.DBDir); err != nil {
		return nil, err
	}
	if cfg.EmailDir, err = resolveDir(raw.EmailDir); err != nil {
		return nil, err
	}

	if raw.SMTPConfig != "" {
		smtp, err := LoadSMTP(raw.SMTPConfig)
		if err != nil {
			return nil, err
		}
		cfg.SMTP = smtp
	}

	return cfg, nil
}

// LoadSMTP reads a YAML file with a top-level "smtp" map.
func LoadSMTP(path string) (*SMTP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read SMTP config: %w", err)
	}

	var doc struct {
		SMTP SMTP `yaml:"smtp"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse SMTP config %s: %w", path, err)
	}

	if doc.SMTP.Host == "" {
		return nil, fmt.Errorf("SMTP config %s: host is required", path)
	}
	if doc.SMTP.Port == 0 {
		doc.SMTP.Port = defaultSMTPPort
	}

	return &doc.SMTP, nil
}

// validateAddresses rejects addresses the digest message would refuse, before
// any article is stored.
func validateAddresses(to, from string) error {
	msg := mail.NewMsg()
	if err := msg.To(to); err != nil {
		return fmt.Errorf("%w: to_email %q: %w", ErrInvalidAddress, to, err)
	}
	if err := msg.From(from); err != nil {
		return fmt.Errorf("%w: from_email %q: %w", ErrInvalidAddress, from, err)
	}
	return nil
}

// resolveDir returns dir as an absolute path, defaulting to the working
// directory.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to resolve working directory: %w", err)
		}
		return wd, nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}
