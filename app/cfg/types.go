package cfg

import "time"

// Cfg is resolved once at startup and not modified afterwards.
type Cfg struct {
	// Addressing
	ToEmail   string
	FromEmail string

	// Directories, all absolute
	SubDir      string
	LogDir      string
	DBDir       string
	EmailDir    string
	EmailDirSet bool

	// Delivery; nil means write the digest to a file
	SMTP *SMTP

	// HTML normalization
	TransparentTags []string
	OpaqueTags      []string

	// Digest image attributes
	ImageWidth  int
	ImageHeight int
	ImageBorder int

	// Fetching
	UserAgent      string
	FetchTimeout   time.Duration
	ExtractContent bool

	// Application metadata
	Debug   bool
	Version string
}

type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}
