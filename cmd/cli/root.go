package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nhatthm/politescrape/internal/app/cli"
)

const (
	long = `Crawl websites politely and export one record per page.

Every request waits for the delay, runs under a timeout and is retried with an exponential backoff. The urls that
robots.txt disallows are skipped. The records are exported as CSV, with the sorted fields of the first record as the
header, or as JSON.

The urls are taken from the arguments, then from --file, then from stdin when it is piped. They can be with or without
scheme, but must have a hostname. If the scheme is missing, default to https.

Every flag can also be set with an environment variable, prefixed by POLITESCRAPE_ and in upper case with _ instead
of -, for example POLITESCRAPE_MAX_RETRIES=5, or in the config file.`

	example = `  Crawl all the urls in path/to/file.txt:
    politescrape -c 24 -f path/to/file.txt

  Crawl all the urls in arguments and print the links of each page:
    politescrape -e links --format json -o - google.com facebook.com

  Crawl all the urls in stdin:
    echo -n "google.com" | politescrape -v

  Crawl with timeout and retries:
    politescrape -t 10s -r 5 --backoff 1s google.com`
)

// runMain runs the command and returns the exit code.
func runMain(args []string, stdin io.ReadCloser, stdout, stderr io.Writer) int {
	code := cli.CodeOK

	cmd := newRootCmd(func(cfg cli.Config, urls []string, file string) {
		cfg.OutWriter = stdout
		cfg.ErrWriter = stderr

		code = cli.Run(cfg, urls, file, stdin)
	})

	if args == nil {
		args = []string{}
	}

	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, err.Error())

		return int(cli.CodeErrBadArgs)
	}

	return int(code)
}

// newRootCmd creates the command. The run function receives the configuration, the urls from the arguments and the
// path of the input file.
func newRootCmd(run func(cfg cli.Config, urls []string, file string)) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "politescrape [flags] [url1 url2 ... urlN]",
		Short:         "Crawl websites politely and export one record per page",
		Long:          long,
		Example:       example,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()

			if err := loadEnvFile(fs); err != nil {
				return err
			}

			v, err := newViper(fs)
			if err != nil {
				return err
			}

			if err := readConfigFile(v, v.GetString(keyConfig)); err != nil {
				return err
			}

			cfg, err := loadConfig(fs, v)
			if err != nil {
				return err
			}

			run(cfg, args, v.GetString(keyFile))

			return nil
		},
	}

	cmd.Flags().AddFlagSet(newFlagSet())

	return cmd
}

// loadEnvFile loads the dotenv file into the environment, without overriding the variables that are already set. A
// missing file is only an error when the path is set explicitly.
func loadEnvFile(fs *pflag.FlagSet) error {
	path, err := fs.GetString(keyEnvFile)
	if err != nil {
		return fmt.Errorf("could not read env file flag: %w", err)
	}

	if path == "" {
		return nil
	}

	if err := godotenv.Load(filepath.Clean(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) && !fs.Changed(keyEnvFile) {
			return nil
		}

		return fmt.Errorf("could not load env file: %w", err)
	}

	return nil
}
