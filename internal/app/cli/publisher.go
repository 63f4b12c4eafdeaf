package cli

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/bool64/ctxd"
)

// sourcePublisher is a function that reads from a source and publishes the urls to a channel.
type sourcePublisher func(ctx context.Context, source io.Reader) <-chan string

// bufferedSourcePublisher creates a new source publisher that reads from a source and publishes the urls to a buffered
// channel.
//
// There is one url per line. The lines are trimmed, and the blank lines and the lines starting with # are skipped.
// The buffer size is double the concurrency.
func bufferedSourcePublisher(concurrency int, log ctxd.Logger) sourcePublisher {
	return func(ctx context.Context, source io.Reader) <-chan string {
		bufSize := concurrency * 2 // nolint: gomnd // Buffer size is double the concurrency.
		linksCh := make(chan string, bufSize)

		log.Debug(ctx, "started buffered publisher", "buffer_size", bufSize)

		go func() {
			defer close(linksCh)

			s := bufio.NewScanner(source)

			for s.Scan() {
				link := strings.TrimSpace(s.Text())

				if link == "" || strings.HasPrefix(link, "#") {
					continue
				}

				log.Debug(ctx, "publishing source", "source", link)

				select {
				case <-ctx.Done():
					log.Debug(ctx, "buffered publisher stopped")

					return

				case linksCh <- link:
				}
			}

			if err := s.Err(); err != nil {
				log.Error(ctx, "could not read input for publishing", "error", err)
			}
		}()

		return linksCh
	}
}
