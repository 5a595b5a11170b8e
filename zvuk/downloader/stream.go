package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/xeptore/zvukgrab/zvuk/api"
)

var (
	// ErrRejected means the stream host refused the request with a
	// non-retryable client error.
	ErrRejected = errors.New("stream host rejected the download request")

	// ErrTruncated means fewer bytes arrived than the stream host declared.
	ErrTruncated = errors.New("stream download was truncated")
)

// streamFetcher writes stream bytes into a staging file with bounded retries
// on transient faults. It never touches a final destination path.
type streamFetcher struct {
	sess        *api.Session
	timeout     time.Duration
	maxAttempts int
}

// fetch downloads streamURL into stagingPath and returns the byte length
// written. Transient failures (timeouts, resets, 5xx, 429) are retried with
// Fibonacci backoff up to the configured attempt budget; a 4xx other than
// rate limiting fails immediately.
func (f *streamFetcher) fetch(ctx context.Context, logger zerolog.Logger, streamURL, stagingPath string) (int64, error) {
	var written int64

	backoff := retry.WithMaxRetries(uint64(f.maxAttempts-1), retry.NewFibonacci(1*time.Second)) //nolint:gosec
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		n, err := f.attempt(ctx, streamURL, stagingPath)
		if nil != err {
			if isTransientFetchErr(err) {
				logger.Warn().Err(err).Msg("Stream download attempt failed, will retry")
				return retry.RetryableError(err)
			}

			return err
		}

		written = n

		return nil
	})
	if nil != err {
		return 0, err
	}

	return written, nil
}

func isTransientFetchErr(err error) bool {
	return errors.Is(err, api.ErrTransient) || errors.Is(err, ErrTruncated)
}

func (f *streamFetcher) attempt(ctx context.Context, streamURL, stagingPath string) (n int64, err error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.sess.Get(reqCtx, streamURL)
	if nil != err {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: stream request timed out", api.ErrTransient)
		}

		if errors.Is(err, context.Canceled) {
			return 0, context.Canceled
		}

		return 0, fmt.Errorf("%w: failed to send stream request: %v", api.ErrTransient, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close stream response body: %v", closeErr))
		}
	}()

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
	case code == http.StatusTooManyRequests, code >= 500:
		return 0, fmt.Errorf("%w: unexpected stream status code %d", api.ErrTransient, code)
	default:
		return 0, fmt.Errorf("%w: status code %d", ErrRejected, code)
	}

	dst, err := os.OpenFile(stagingPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if nil != err {
		return 0, fmt.Errorf("failed to create staging file: %v", err)
	}
	defer func() {
		if closeErr := dst.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close staging file: %v", closeErr))
		}
	}()

	written, err := io.Copy(dst, resp.Body)
	if nil != err {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: stream read timed out after %d bytes", api.ErrTransient, written)
		}

		return 0, fmt.Errorf("%w: stream read failed after %d bytes: %v", api.ErrTransient, written, err)
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		return 0, fmt.Errorf("%w: got %d of %d bytes", ErrTruncated, written, resp.ContentLength)
	}

	if err := dst.Sync(); nil != err {
		return 0, fmt.Errorf("failed to sync staging file: %v", err)
	}

	return written, nil
}
