//go:build testsignal

package cli_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhatthm/politescrape/internal/app/cli"
)

func Test_Run_SigInt(t *testing.T) {
	t.Parallel()

	slowCh := make(chan struct{}) // Closed when the server is serving the slow request.

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/path1":
			_, _ = w.Write([]byte(titlePage("One"))) // nolint: errcheck

		case "/path2":
			close(slowCh)

			<-r.Context().Done()

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	t.Cleanup(srv.Close)

	var (
		code cli.ExitCode
		wg   sync.WaitGroup
	)

	outBuf := new(safeBuffer)
	errBuf := new(safeBuffer)
	readCh := make(chan struct{})

	wg.Add(1)

	go func() {
		defer wg.Done()

		counter := 0

		code = cli.Run(testConfig(outBuf, errBuf), readerFunc(func(p []byte) (int, error) {
			counter++

			switch counter {
			case 1:
				return copy(p, srv.URL+"/path1\n"), nil

			case 2:
				return copy(p, srv.URL+"/path2\n"), nil

			default:
				<-readCh // Block until the test is over, like a terminal.

				return 0, io.EOF
			}
		}))
	}()

	<-slowCh // Wait until the second page is being fetched.

	// Wait until the first page is scraped.
	assert.Eventually(t, func() bool {
		return strings.Contains(errBuf.String(), "extracted record")
	}, time.Second, 10*time.Millisecond)

	_ = syscall.Kill(syscall.Getpid(), syscall.SIGINT)

	wg.Wait()
	close(readCh)

	// The records collected before the signal are exported.
	expected := fmt.Sprintf("description,title,url\nAbout One,One,%s/path1\n", srv.URL)

	assert.Equal(t, expected, outBuf.String())
	assert.Contains(t, errBuf.String(), "operation canceled")
	assert.Equal(t, cli.CodeErrOperationCanceled, code)
}
