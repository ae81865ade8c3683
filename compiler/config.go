package compiler

import (
	"os"

	"github.com/BurntSushi/toml"
	"tlog.app/go/errors"
)

type (
	// Mode selects what Generate produces.
	Mode int

	Config struct {
		Mode Mode `toml:"mode"`

		// Alloc names the storage allocation strategy: "stack" or "reg".
		Alloc string `toml:"alloc"`

		// Verify checks the IR invariants before printing it.
		// Assembly generation always verifies.
		Verify bool `toml:"verify"`
	}
)

const (
	ModeAsm Mode = iota
	ModeIR
	ModeAST
)

var modeNames = []string{
	ModeAsm: "asm",
	ModeIR:  "ir",
	ModeAST: "ast",
}

func DefaultConfig() Config {
	return Config{
		Mode:   ModeAsm,
		Alloc:  "stack",
		Verify: true,
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(name string) (Config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return Config{}, errors.Wrap(err, "read config")
	}

	return ParseConfig(data)
}

func ParseConfig(data []byte) (cfg Config, err error) {
	cfg = DefaultConfig()

	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}

	return cfg, nil
}

func ParseMode(s string) (Mode, error) {
	for m, n := range modeNames {
		if n == s {
			return Mode(m), nil
		}
	}

	return 0, errors.New("unknown mode: %q", s)
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "mode?"
	}

	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) (err error) {
	*m, err = ParseMode(string(b))
	return err
}
