package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"revu/internal/api"
	"revu/internal/util"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "REVU"

const (
	DefaultTimeout = 15 * time.Second
	configDirName  = ".revu"
)

// Config holds CLI configuration.
type Config struct {
	Establishment string        `validate:"required"`
	APIURL        string        `validate:"required,url"`
	DBPath        string        `validate:"required"`
	LogDir        string        `validate:"required"`
	Timeout       time.Duration `validate:"gte=0"`
	EditPath      string        `validate:"required,startswith=/"`
	Debug         bool
	// Month is zero unless the view should open on a single month.
	Month time.Time
}

// RunFunc starts the review list with a resolved configuration.
type RunFunc func(cfg *Config) error

// NewRootCommand builds the revu command tree. run is invoked by the root
// command once flags, environment and .env files are resolved.
func NewRootCommand(version string, run RunFunc) *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "revu [establishment]",
		Short: "Browse and moderate the reviews of an establishment",
		Long: `revu lists the reviews of one establishment from the review backend.
Reviews can be narrowed to a single month, and the signed-in user can edit or
delete the reviews their role allows.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, args)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	flags := root.Flags()
	flags.String("api-url", api.DefaultBaseURL, "Review backend base URL")
	flags.String("log-dir", "", "Directory for log files (default: ~/.revu/logs)")
	flags.Duration("timeout", DefaultTimeout, "HTTP request timeout, 0 disables it")
	flags.Bool("debug", false, "Enable debug logging")
	flags.String("edit-path", api.DefaultEditPath, "Backend path used to save review edits")
	flags.String("month", "", `Open on one month instead of all reviews (e.g. "2024-01", "Jan 2024")`)
	root.PersistentFlags().String("db", "", "Path to SQLite database file (default: ~/.revu/revu.db)")

	bindFlags(v, root)

	root.AddCommand(
		newSignInCommand(v),
		newSignOutCommand(v),
	)

	return root
}

func bindFlags(v *viper.Viper, root *cobra.Command) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"api-url", "log-dir", "timeout", "debug", "edit-path", "month"} {
		_ = v.BindPFlag(name, root.Flags().Lookup(name))
	}
	_ = v.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	_ = v.BindEnv("establishment")
}

// loadDotEnv reads .env files from the working directory. Variables already
// present in the environment are not overwritten.
func loadDotEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func loadConfig(v *viper.Viper, args []string) (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Establishment: strings.TrimSpace(v.GetString("establishment")),
		APIURL:        strings.TrimSpace(v.GetString("api-url")),
		Timeout:       v.GetDuration("timeout"),
		EditPath:      strings.TrimSpace(v.GetString("edit-path")),
		Debug:         v.GetBool("debug"),
	}
	if len(args) > 0 {
		cfg.Establishment = strings.TrimSpace(args[0])
	}

	if month := v.GetString("month"); month != "" {
		t, err := util.ParseMonthInput(month)
		if err != nil {
			return nil, fmt.Errorf("invalid --month %q: %w", month, err)
		}
		cfg.Month = t
	}

	dbPath, err := resolveDBPath(v)
	if err != nil {
		return nil, err
	}
	cfg.DBPath = dbPath

	cfg.LogDir = v.GetString("log-dir")
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(filepath.Dir(cfg.DBPath), "logs")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", describeValidation(err))
	}

	return cfg, nil
}

// resolveDBPath returns the database path and makes sure its directory exists.
func resolveDBPath(v *viper.Viper) (string, error) {
	dbPath := v.GetString("db")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, configDirName, "revu.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dbPath, nil
}

var configFieldNames = map[string]string{
	"Establishment": "establishment (argument or REVU_ESTABLISHMENT)",
	"APIURL":        "--api-url",
	"DBPath":        "--db",
	"LogDir":        "--log-dir",
	"Timeout":       "--timeout",
	"EditPath":      "--edit-path",
}

func describeValidation(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := configFieldNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "url":
			msgs = append(msgs, name+" must be a URL")
		case "startswith":
			msgs = append(msgs, name+" must start with "+fe.Param())
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
