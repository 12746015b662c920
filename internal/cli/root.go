package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/rohmanhakim/deck-voice/internal/build"
	"github.com/rohmanhakim/deck-voice/internal/config"
	"github.com/rohmanhakim/deck-voice/internal/metadata"
	"github.com/rohmanhakim/deck-voice/internal/pipeline"
	"github.com/rohmanhakim/deck-voice/internal/source"
	"github.com/rohmanhakim/deck-voice/pkg/hashutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const defaultEnvFile = ".env"

var (
	cfgFile            string
	envFile            string
	baseDelay          time.Duration
	jitter             time.Duration
	randomSeed         int64
	throttleCooldown   time.Duration
	maxThrottleRetries int
	baseURL            string
	voice              string
	timeout            time.Duration
	userAgent          string
	patterns           []string
	recursive          bool
	includeCategories  []string
	excludeCategories  []string
	textField          string
	outputDir          string
	hashAlgo           string
	dryRun             bool
	logLevel           string

	// changedFlags holds the flags set explicitly on the command line.
	// Only those override the config file and the environment.
	changedFlags = map[string]bool{}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deck-voice [DIR|FILE...]",
	Short: "Pre-generate speech audio for flashcard decks.",
	Long: `deck-voice scans HTML flashcard decks for their embedded data blocks,
collects every text to be voiced and fetches one audio file per distinct text
from a text-to-speech service into a local cache directory.

Texts already present in the cache are never fetched again, requests are
spaced out politely, and throttled requests are retried after a cool-down.
With no argument the current directory is scanned.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		markChangedFlags(cmd.Flags())
		return run(cmd.Context(), cmd.ErrOrStderr(), args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", build.Name, build.FullVersion(), build.BuildTime)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// An interrupt cancels the run; the fragment in flight is discarded.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config-file", "", "config file path, JSON, YAML or TOML (e.g., ./deck-voice.yaml)")
	flags.StringVar(&envFile, "env-file", defaultEnvFile, "dotenv file loaded into the environment when present")
	flags.DurationVar(&baseDelay, "delay", 0, "minimum gap between two synthesis requests (default 8s)")
	flags.DurationVar(&jitter, "jitter", 0, "random extra delay added to --delay")
	flags.Int64Var(&randomSeed, "random-seed", 0, "seed for jitter (default: current time)")
	flags.DurationVar(&throttleCooldown, "cooldown", 0, "wait after a 429 before retrying the same text (default 5m)")
	flags.IntVar(&maxThrottleRetries, "max-throttle-retries", 0, "give up on a text after this many throttled retries (0 retries forever)")
	flags.StringVar(&baseURL, "base-url", "", "synthesis endpoint (default "+config.DefaultBaseURL+")")
	flags.StringVar(&voice, "voice", "", "voice identifier (default "+config.DefaultVoice+")")
	flags.DurationVar(&timeout, "timeout", 0, "timeout of a single request (0 for none)")
	flags.StringVar(&userAgent, "user-agent", "", "user agent string for requests")
	flags.StringSliceVar(&patterns, "pattern", nil, "deck file name pattern, repeatable (default *.html)")
	flags.BoolVar(&recursive, "recursive", false, "search directories recursively")
	flags.StringSliceVar(&includeCategories, "include-category", nil, "data block to extract, repeatable (default VOCAB,SENTENCES,QUESTIONS)")
	flags.StringSliceVar(&excludeCategories, "exclude-category", nil, "data block never extracted, repeatable (default QUIZ)")
	flags.StringVar(&textField, "text-field", "", "entry field holding the text to voice (default en)")
	flags.StringVar(&outputDir, "output-dir", "", "audio cache directory (default assets/audio)")
	flags.StringVar(&hashAlgo, "hash-algo", "", "content hash recorded per artifact: blake3 or sha256")
	flags.BoolVar(&dryRun, "dry-run", false, "report what would be fetched without any request or write")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default info)")

	rootCmd.AddCommand(versionCmd)
}

func markChangedFlags(flags *pflag.FlagSet) {
	flags.Visit(func(f *pflag.Flag) {
		changedFlags[f.Name] = true
	})
}

func run(ctx context.Context, logOutput io.Writer, roots []string) error {
	cfg, err := InitConfigWithError()
	if err != nil {
		return err
	}

	logger := newLogger(logOutput, cfg.LogLevel())
	recorder := metadata.NewRecorder(logger)

	if len(roots) == 0 {
		roots = []string{"."}
	}
	paths, discoverErr := source.Discover(roots, cfg.Patterns(), cfg.Recursive())
	if discoverErr != nil {
		return discoverErr
	}
	if len(paths) == 0 {
		logger.Warn("no deck found", "roots", roots, "patterns", cfg.Patterns())
		return nil
	}
	logger.Info("decks found", "count", len(paths), "output", cfg.OutputDir(), "dryRun", cfg.DryRun())

	orchestrator := pipeline.NewOrchestrator(cfg, recorder, recorder)
	summary, runErr := orchestrator.RunPaths(ctx, paths)
	if runErr != nil {
		return fmt.Errorf("run aborted: %w", runErr)
	}
	if n := summary.Count(pipeline.StateFailed); n > 0 {
		logger.Warn("some texts could not be voiced, run again to retry them", "failed", n)
	}
	return nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "deck-voice",
		Level:           parsed,
	})
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() config.Config {
	cfg, err := InitConfigWithError()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// InitConfigWithError layers defaults, the config file, the environment and
// explicit flags, in that order, returning any errors.
// This makes it easier to test error cases.
func InitConfigWithError() (config.Config, error) {
	configBuilder := config.WithDefault()

	if cfgFile != "" {
		if err := configBuilder.ApplyConfigFile(cfgFile); err != nil {
			return config.Config{}, fmt.Errorf("error initializing config from file: %w", err)
		}
	}

	if err := loadEnvFile(); err != nil {
		return config.Config{}, err
	}
	if err := configBuilder.ApplyEnv(nil); err != nil {
		return config.Config{}, err
	}

	// Override with CLI flag values where explicitly provided
	if changedFlags["delay"] {
		configBuilder = configBuilder.WithBaseDelay(baseDelay)
	}
	if changedFlags["jitter"] {
		configBuilder = configBuilder.WithJitter(jitter)
	}
	if changedFlags["random-seed"] {
		configBuilder = configBuilder.WithRandomSeed(randomSeed)
	}
	if changedFlags["cooldown"] {
		configBuilder = configBuilder.WithThrottleCooldown(throttleCooldown)
	}
	if changedFlags["max-throttle-retries"] {
		configBuilder = configBuilder.WithMaxThrottleRetries(maxThrottleRetries)
	}
	if changedFlags["base-url"] {
		parsedURL, err := url.Parse(baseURL)
		if err != nil {
			return config.Config{}, fmt.Errorf("%w: error parsing base URL %s: %s", config.ErrInvalidConfig, baseURL, err)
		}
		configBuilder = configBuilder.WithBaseURL(*parsedURL)
	}
	if changedFlags["voice"] {
		configBuilder = configBuilder.WithVoice(voice)
	}
	if changedFlags["timeout"] {
		configBuilder = configBuilder.WithTimeout(timeout)
	}
	if changedFlags["user-agent"] {
		configBuilder = configBuilder.WithUserAgent(userAgent)
	}
	if changedFlags["pattern"] {
		configBuilder = configBuilder.WithPatterns(patterns)
	}
	if changedFlags["recursive"] {
		configBuilder = configBuilder.WithRecursive(recursive)
	}
	if changedFlags["include-category"] {
		configBuilder = configBuilder.WithIncludeCategories(includeCategories)
	}
	if changedFlags["exclude-category"] {
		configBuilder = configBuilder.WithExcludeCategories(excludeCategories)
	}
	if changedFlags["text-field"] {
		configBuilder = configBuilder.WithTextField(textField)
	}
	if changedFlags["output-dir"] {
		configBuilder = configBuilder.WithOutputDir(outputDir)
	}
	if changedFlags["hash-algo"] {
		configBuilder = configBuilder.WithHashAlgo(hashutil.HashAlgo(hashAlgo))
	}
	if changedFlags["dry-run"] {
		configBuilder = configBuilder.WithDryRun(dryRun)
	}
	if changedFlags["log-level"] {
		configBuilder = configBuilder.WithLogLevel(logLevel)
	}

	cfg, err := configBuilder.Build()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// loadEnvFile seeds the process environment from the dotenv file. Variables
// already set win. A missing file is only an error when named explicitly.
func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !changedFlags["env-file"] {
		return nil
	}
	return fmt.Errorf("error loading env file %s: %w", envFile, err)
}

func ResetFlags() {
	cfgFile = ""
	envFile = defaultEnvFile
	baseDelay = 0
	jitter = 0
	randomSeed = 0
	throttleCooldown = 0
	maxThrottleRetries = 0
	baseURL = ""
	voice = ""
	timeout = 0
	userAgent = ""
	patterns = nil
	recursive = false
	includeCategories = nil
	excludeCategories = nil
	textField = ""
	outputDir = ""
	hashAlgo = ""
	dryRun = false
	logLevel = ""
	changedFlags = map[string]bool{}
}

// Test helper functions to set flag values from tests. Each marks its flag as
// explicitly set.
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetEnvFileForTest(path string) {
	envFile = path
	changedFlags["env-file"] = true
}

func SetBaseDelayForTest(delay time.Duration) {
	baseDelay = delay
	changedFlags["delay"] = true
}

func SetJitterForTest(j time.Duration) {
	jitter = j
	changedFlags["jitter"] = true
}

func SetRandomSeedForTest(seed int64) {
	randomSeed = seed
	changedFlags["random-seed"] = true
}

func SetThrottleCooldownForTest(cooldown time.Duration) {
	throttleCooldown = cooldown
	changedFlags["cooldown"] = true
}

func SetMaxThrottleRetriesForTest(retries int) {
	maxThrottleRetries = retries
	changedFlags["max-throttle-retries"] = true
}

func SetBaseURLForTest(raw string) {
	baseURL = raw
	changedFlags["base-url"] = true
}

func SetVoiceForTest(v string) {
	voice = v
	changedFlags["voice"] = true
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
	changedFlags["timeout"] = true
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
	changedFlags["user-agent"] = true
}

func SetPatternsForTest(p []string) {
	patterns = p
	changedFlags["pattern"] = true
}

func SetRecursiveForTest(r bool) {
	recursive = r
	changedFlags["recursive"] = true
}

func SetIncludeCategoriesForTest(categories []string) {
	includeCategories = categories
	changedFlags["include-category"] = true
}

func SetExcludeCategoriesForTest(categories []string) {
	excludeCategories = categories
	changedFlags["exclude-category"] = true
}

func SetTextFieldForTest(field string) {
	textField = field
	changedFlags["text-field"] = true
}

func SetOutputDirForTest(dir string) {
	outputDir = dir
	changedFlags["output-dir"] = true
}

func SetHashAlgoForTest(algo string) {
	hashAlgo = algo
	changedFlags["hash-algo"] = true
}

func SetDryRunForTest(dry bool) {
	dryRun = dry
	changedFlags["dry-run"] = true
}

func SetLogLevelForTest(level string) {
	logLevel = level
	changedFlags["log-level"] = true
}

// RunForTest executes the root command with args, writing logs to out.
func RunForTest(ctx context.Context, out io.Writer, args []string) error {
	return run(ctx, out, args)
}
