package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nhatthm/politescrape/internal/app/cli"
	"github.com/nhatthm/politescrape/internal/crawler"
	"github.com/nhatthm/politescrape/internal/footprint"
	"github.com/nhatthm/politescrape/internal/logger"
)

const (
	appName   = "politescrape"
	envPrefix = "POLITESCRAPE"

	defaultEnvFile  = ".env"
	defaultLogLevel = "info"
)

// Keys of the settings. They are the flag names, the config file keys and, upper-cased with _ instead of -, the
// environment variables after the POLITESCRAPE_ prefix.
const (
	keyConfig        = "config"
	keyEnvFile       = "env-file"
	keyFile          = "file"
	keyConcurrency   = "concurrency"
	keyDelay         = "delay"
	keyTimeout       = "timeout"
	keyMaxRetries    = "max-retries"
	keyBackoff       = "backoff"
	keyUserAgent     = "user-agent"
	keyHeader        = "header"
	keyHeaders       = "headers"
	keyRobotsTimeout = "robots-timeout"
	keyIgnoreRobots  = "ignore-robots"
	keyLimitRobots   = "limit-robots"
	keyExtractor     = "extractor"
	keyOutput        = "output"
	keyFormat        = "format"
	keyPretty        = "pretty"
	keyMetricsFile   = "metrics-file"
	keyLogLevel      = "log-level"
	keyVerbose       = "verbose"
	keyQuiet         = "quiet"
	keyFootprint     = "footprint-interval"
)

// errInvalidHeader indicates that a header flag is not in the "Name: value" form.
var errInvalidHeader = errors.New("invalid header")

// newFlagSet defines the flags of the command with their default values.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	defaults := crawler.DefaultConfig()

	fs.String(keyConfig, "", "Path to the config file. Default to politescrape.yaml in the working directory or in "+configDir()+".")
	fs.String(keyEnvFile, defaultEnvFile, "Path to a dotenv file to load before reading the environment.")
	fs.StringP(keyFile, "f", "", "Path to the input file that contains a list of urls, one on each line.")

	fs.IntP(keyConcurrency, "c", defaults.Concurrency, "Maximum number of requests in flight.")
	fs.Duration(keyDelay, defaults.Delay, "Pause before every request.")
	fs.DurationP(keyTimeout, "t", defaults.Timeout, "Timeout of a single request.")
	fs.IntP(keyMaxRetries, "r", defaults.MaxRetries, "Number of retries after a failed request.")
	fs.Duration(keyBackoff, defaults.BackoffFactor, "Base of the exponential backoff between retries.")
	fs.StringP(keyUserAgent, "A", defaults.UserAgent, "User agent of the requests, also used for robots.txt.")
	fs.StringArrayP(keyHeader, "H", nil, `Extra request header in the form "Name: value". Can be repeated.`)
	fs.Duration(keyRobotsTimeout, defaults.PolicyTimeout, "Timeout for fetching a robots.txt.")
	fs.Bool(keyIgnoreRobots, false, "Do not check robots.txt.")
	fs.Bool(keyLimitRobots, false, "Count the robots.txt requests against the concurrency.")

	fs.StringP(keyExtractor, "e", cli.DefaultExtractor, "Extractor of the records, one of: meta, links.")
	fs.StringP(keyOutput, "o", cli.DefaultOutput, `Path of the export, "-" for stdout.`)
	fs.String(keyFormat, string(cli.FormatCSV), "Format of the export, one of: csv, json.")
	fs.Bool(keyPretty, false, "Indent the JSON export.")
	fs.String(keyMetricsFile, "", "Write the metrics of the crawl to this file, in the prometheus text format.")

	fs.String(keyLogLevel, defaultLogLevel, "Minimum level of the log messages, one of: debug, info, warn, error.")
	fs.BoolP(keyVerbose, "v", false, "Print out all the log messages, same as --log-level=debug.")
	fs.BoolP(keyQuiet, "q", false, "Do not print out any log message.")
	fs.Duration(keyFootprint, footprint.DefaultInterval, "Interval of the resource usage reports, at debug level.")

	return fs
}

// newViper binds the flags and the environment variables. Flags win over the environment, which wins over the config
// file.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("could not bind flags: %w", err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v, nil
}

// readConfigFile reads the config file of the path. Without a path, politescrape.yaml is looked up in the working
// directory and in the XDG config directory, and a missing file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(filepath.Clean(path))

		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("could not read config file: %w", err)
		}

		return nil
	}

	v.SetConfigName(appName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(configDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}

		return fmt.Errorf("could not read config file: %w", err)
	}

	return nil
}

// configDir returns the XDG config directory of the application.
func configDir() string {
	return filepath.Join(xdg.ConfigHome, appName)
}

// loadConfig builds the configuration of the application from the settings.
//
// The -H flags are read from the flag set because a header value may contain commas and spaces. The "headers" map of
// the config file only adds the headers that are not set by a flag.
func loadConfig(fs *pflag.FlagSet, v *viper.Viper) (cli.Config, error) {
	values, err := fs.GetStringArray(keyHeader)
	if err != nil {
		return cli.Config{}, fmt.Errorf("could not read headers: %w", err)
	}

	headers, err := parseHeaders(values)
	if err != nil {
		return cli.Config{}, err
	}

	for name, value := range v.GetStringMapString(keyHeaders) {
		name = http.CanonicalHeaderKey(name)

		if _, ok := headers[name]; !ok {
			headers[name] = value
		}
	}

	level, err := logger.ParseLevel(v.GetString(keyLogLevel))
	if err != nil {
		return cli.Config{}, err
	}

	if v.GetBool(keyVerbose) {
		level = logger.DebugLevel
	}

	cfg := cli.Config{
		Crawler: crawler.Config{
			Concurrency:        v.GetInt(keyConcurrency),
			Delay:              v.GetDuration(keyDelay),
			Timeout:            v.GetDuration(keyTimeout),
			MaxRetries:         v.GetInt(keyMaxRetries),
			BackoffFactor:      v.GetDuration(keyBackoff),
			UserAgent:          v.GetString(keyUserAgent),
			Headers:            headers,
			PolicyTimeout:      v.GetDuration(keyRobotsTimeout),
			IgnoreRobots:       v.GetBool(keyIgnoreRobots),
			LimitPolicyFetches: v.GetBool(keyLimitRobots),
		},
		Extractor:   strings.ToLower(v.GetString(keyExtractor)),
		Output:      v.GetString(keyOutput),
		Format:      cli.Format(strings.ToLower(v.GetString(keyFormat))),
		Pretty:      v.GetBool(keyPretty),
		MetricsFile: v.GetString(keyMetricsFile),
		LogLevel:    level,
		Quiet:       v.GetBool(keyQuiet),

		FootprintInterval: v.GetDuration(keyFootprint),
	}

	return cfg, nil
}

// parseHeaders parses the headers in the form "Name: value". The names are canonicalized.
func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))

	for _, h := range values {
		name, value, ok := strings.Cut(h, ":")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf("%w %q, expected \"Name: value\"", errInvalidHeader, h)
		}

		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}

	return headers, nil
}
