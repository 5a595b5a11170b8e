package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/xeptore/zvukgrab/must"
)

const getBookChaptersQuery = `
query getBookChapters($ids: [ID!]!) {
  getBooks(ids: $ids) {
    title
    mark
    explicit
    chapters {
      ...PlayerChapterData
    }
  }
}

fragment PlayerChapterData on Chapter {
  id
  title
  availability
  duration
  childParam
  image {
    src
  }
  book {
    id
    title
    mark
    explicit
  }
  bookAuthors {
    id
    rname
    image {
      src
    }
  }
  position
  __typename
}
`

const getStreamQuery = `
query getStream($ids: [ID!]!, $quality: String, $encodeType: String, $includeFlacDrm: Boolean!) {
  mediaContents(ids: $ids, quality: $quality, encodeType: $encodeType) {
    ... on Track {
      __typename
      stream {
        expire
        high
        mid
        flacdrm @include(if: $includeFlacDrm)
      }
    }
    ... on Episode {
      __typename
      stream {
        expire
        mid
      }
    }
    ... on Chapter {
      __typename
      stream {
        expire
        mid
      }
    }
  }
}
`

// BookChapter is one audiobook chapter in server-declared order.
type BookChapter struct {
	ID       string
	Title    string
	Author   string
	Book     string
	Position int
	CoverURL string
}

func (c *Client) postGraphQL(
	ctx context.Context,
	logger zerolog.Logger,
	operation, query string,
	variables map[string]any,
) (b []byte, err error) {
	logger = logger.With().Str("operation", operation).Logger()

	payload, err := json.Marshal(map[string]any{
		"query":         query,
		"variables":     variables,
		"operationName": operation,
	})
	if nil != err {
		return nil, fmt.Errorf("failed to encode graphql request: %v", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.metadataTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.sess.Endpoint(graphqlEndpoint), bytes.NewReader(payload))
	must.NilErr(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.sess.Do(req)
	if nil != err {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: graphql request timed out", ErrTransient)
		}

		if errors.Is(err, context.Canceled) {
			return nil, context.Canceled
		}

		logger.Error().Err(err).Msg("Failed to send graphql request")

		return nil, fmt.Errorf("%w: failed to send graphql request: %v", ErrTransient, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("failed to close graphql response body: %v", closeErr))
		}
	}()

	if err := checkStatus(resp.StatusCode); nil != err {
		return nil, err
	}

	respBytes, err := io.ReadAll(resp.Body)
	if nil != err {
		logger.Error().Err(err).Msg("Failed to read graphql response body")
		return nil, fmt.Errorf("%w: failed to read graphql response body: %v", ErrTransient, err)
	}

	return respBytes, nil
}

// BookChapters fetches the ordered chapter list of the given audiobooks.
func (c *Client) BookChapters(ctx context.Context, logger zerolog.Logger, ids []string) ([]BookChapter, error) {
	respBytes, err := c.postGraphQL(ctx, logger, "getBookChapters", getBookChaptersQuery, map[string]any{
		"ids": ids,
	})
	if nil != err {
		return nil, fmt.Errorf("failed to get book chapters: %w", err)
	}

	var respBody struct {
		Data struct {
			GetBooks []struct {
				Title    string `json:"title"`
				Chapters []struct {
					ID       string     `json:"id"`
					Title    string     `json:"title"`
					Position int        `json:"position"`
					Image    imageModel `json:"image"`
					Book     struct {
						Title string `json:"title"`
					} `json:"book"`
					BookAuthors []struct {
						RName string `json:"rname"`
					} `json:"bookAuthors"`
				} `json:"chapters"`
			} `json:"getBooks"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		logger.Error().Err(err).Msg("Failed to decode book chapters response")
		return nil, fmt.Errorf("failed to decode book chapters response: %v", err)
	}

	if len(respBody.Data.GetBooks) == 0 {
		return nil, fmt.Errorf("%w: no books for ids %s", ErrNotFound, strings.Join(ids, ","))
	}

	var chapters []BookChapter
	for _, book := range respBody.Data.GetBooks {
		for _, chapter := range book.Chapters {
			authors := make([]string, len(chapter.BookAuthors))
			for i, a := range chapter.BookAuthors {
				authors[i] = a.RName
			}

			chapters = append(chapters, BookChapter{
				ID:       chapter.ID,
				Title:    chapter.Title,
				Author:   strings.Join(authors, ", "),
				Book:     chapter.Book.Title,
				Position: chapter.Position,
				CoverURL: chapter.Image.Src,
			})
		}
	}

	return chapters, nil
}

// ChapterStreamLinks fetches mid-tier stream URLs for the given chapter ids.
// The catalog answers in request order, so the result zips positionally with
// ids.
func (c *Client) ChapterStreamLinks(ctx context.Context, logger zerolog.Logger, ids []string) ([]string, error) {
	respBytes, err := c.postGraphQL(ctx, logger, "getStream", getStreamQuery, map[string]any{
		"ids":            ids,
		"includeFlacDrm": false,
	})
	if nil != err {
		return nil, fmt.Errorf("failed to get chapter stream links: %w", err)
	}

	var respBody struct {
		Data struct {
			MediaContents []struct {
				Stream struct {
					Mid string `json:"mid"`
				} `json:"stream"`
			} `json:"mediaContents"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		logger.Error().Err(err).Msg("Failed to decode chapter stream links response")
		return nil, fmt.Errorf("failed to decode chapter stream links response: %v", err)
	}

	if len(respBody.Data.MediaContents) != len(ids) {
		return nil, fmt.Errorf(
			"chapter stream links count mismatch: requested %d, got %d",
			len(ids), len(respBody.Data.MediaContents),
		)
	}

	links := make([]string, len(respBody.Data.MediaContents))
	for i, content := range respBody.Data.MediaContents {
		if content.Stream.Mid == "" {
			return nil, fmt.Errorf("%w: no stream link for chapter %s", ErrNotFound, ids[i])
		}
		links[i] = content.Stream.Mid
	}

	return links, nil
}
