package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhatthm/politescrape/internal/app/cli"
)

// newSite starts a server without robots.txt that serves a page with a title and a description at /path1.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/path1" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, `<html><head><title>Hello</title><meta name="description" content="World"></head>`+
			`<body><a href="/about">About</a></body></html>`)
	}))

	t.Cleanup(srv.Close)

	return srv
}

// unsetEnv removes the variable for the rest of the test, and restores it afterward.
func unsetEnv(t *testing.T, key string) {
	t.Helper()

	t.Setenv(key, "")

	require.NoError(t, os.Unsetenv(key))
}

func TestRunMain_CSV(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain([]string{"-q", "-o", "-", "--delay", "0", "-r", "0", srv.URL + "/path1"}, nil, outBuf, errBuf)

	expected := fmt.Sprintf("description,title,url\nWorld,Hello,%s/path1\n", srv.URL)

	assert.Equal(t, int(cli.CodeOK), code)
	assert.Equal(t, expected, outBuf.String())
	assert.Empty(t, errBuf.String())
}

func TestRunMain_InputFromStdin(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)
	stdin := &readCloser{Buffer: bytes.NewBufferString(srv.URL + "/path1\n")}

	code := runMain([]string{"-q", "-o", "-", "--delay", "0", "-r", "0"}, stdin, outBuf, errBuf)

	assert.Equal(t, int(cli.CodeOK), code)
	assert.Contains(t, outBuf.String(), srv.URL+"/path1")
	assert.True(t, stdin.closed)
}

func TestRunMain_EnvFile(t *testing.T) {
	unsetEnv(t, "POLITESCRAPE_EXTRACTOR")
	unsetEnv(t, "POLITESCRAPE_FORMAT")

	srv := newSite(t)
	envFile := writeFile(t, "test.env", "POLITESCRAPE_EXTRACTOR=links\nPOLITESCRAPE_FORMAT=json\n")
	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain([]string{"-q", "-o", "-", "--delay", "0", "-r", "0", "--env-file", envFile, srv.URL + "/path1"},
		nil, outBuf, errBuf)

	expected := fmt.Sprintf(`[{"external_links_num":0,"internal_links_num":1,"url":"%s/path1"}]`+"\n", srv.URL)

	assert.Equal(t, int(cli.CodeOK), code)
	assert.Equal(t, expected, outBuf.String())
}

func TestRunMain_MissingEnvFile(t *testing.T) {
	t.Parallel()

	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain([]string{"--env-file", "/path/to/missing.env", "example.org"}, nil, outBuf, errBuf)

	assert.Equal(t, int(cli.CodeErrBadArgs), code)
	assert.Contains(t, errBuf.String(), "could not load env file")
	assert.Empty(t, outBuf.String())
}

func TestRunMain_BadFlag(t *testing.T) {
	t.Parallel()

	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain([]string{"--unknown"}, nil, outBuf, errBuf)

	assert.Equal(t, int(cli.CodeErrBadArgs), code)
	assert.Contains(t, errBuf.String(), "unknown flag: --unknown")
}

func TestRunMain_BadConfig(t *testing.T) {
	t.Parallel()

	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain([]string{"-c", "0", "example.org"}, nil, outBuf, errBuf)

	assert.Equal(t, int(cli.CodeErrBadArgs), code)
	assert.Contains(t, errBuf.String(), "concurrency must be greater than 0")
}

func TestRunMain_NoInputSource(t *testing.T) {
	t.Parallel()

	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain(nil, nil, outBuf, errBuf)

	assert.Equal(t, int(cli.CodeErrNoInputSource), code)
	assert.Equal(t, "no input source\n", errBuf.String())
}

func TestRunMain_Help(t *testing.T) {
	t.Parallel()

	outBuf, errBuf := new(bytes.Buffer), new(bytes.Buffer)

	code := runMain([]string{"--help"}, nil, outBuf, errBuf)

	assert.Equal(t, int(cli.CodeOK), code)
	assert.Contains(t, outBuf.String(), "politescrape [flags] [url1 url2 ... urlN]")
	assert.Contains(t, outBuf.String(), "--max-retries")
	assert.Empty(t, errBuf.String())
}

type readCloser struct {
	*bytes.Buffer

	closed bool
}

func (r *readCloser) Close() error {
	r.closed = true

	return nil
}
