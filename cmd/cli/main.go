package main

import (
	"io"
	"os"
)

func main() {
	os.Exit(runMain(os.Args[1:], pipeFromStdIn(os.Stdin), os.Stdout, os.Stderr))
}

// Detect if stdin is piped from another process.
func pipeFromStdIn(in *os.File) io.ReadCloser {
	fi, err := in.Stat()
	if err != nil {
		// Just ignore because we do not know if it is a pipe or not.
		return nil
	}

	if (fi.Mode() & os.ModeNamedPipe) != 0 {
		return io.NopCloser(in)
	}

	return nil
}
