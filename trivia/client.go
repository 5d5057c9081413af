package trivia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Question is immutable once fetched. Choices holds the correct answer at a
// shuffled position; CorrectAnswer is never sent to clients.
type Question struct {
	Text          string
	Choices       []string
	CorrectAnswer string
}

// FetchError reports a provider failure. Transient failures are worth
// retrying; permanent ones (bad request, malformed payload) are not.
type FetchError struct {
	Transient bool
	Err       error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("question fetch failed (%s): %v", kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	baseBackoff time.Duration
}

func NewClient(baseURL string, requestTimeout time.Duration, maxAttempts int) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		baseURL:     baseURL,
		maxAttempts: maxAttempts,
		baseBackoff: 500 * time.Millisecond,
	}
}

// FetchQuestions retrieves a fixed-size question batch for a category.
// Transient provider failures are retried with exponential backoff up to
// maxAttempts; permanent failures are returned immediately.
func (c *Client) FetchQuestions(ctx context.Context, categoryId string, count int, difficulty string) ([]Question, error) {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &FetchError{Transient: true, Err: ctx.Err()}
			}
			backoff *= 2
		}

		questions, err := c.fetchOnce(ctx, categoryId, count, difficulty)
		if err == nil {
			return questions, nil
		}

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && !fetchErr.Transient {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

type providerResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

func (c *Client) fetchOnce(ctx context.Context, categoryId string, count int, difficulty string) ([]Question, error) {
	query := url.Values{}
	query.Set("amount", strconv.Itoa(count))
	query.Set("category", categoryId)
	if difficulty != "" {
		query.Set("difficulty", difficulty)
	}
	query.Set("type", "multiple")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Transient: true, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusTooManyRequests:
		return nil, &FetchError{Transient: true, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, &FetchError{Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}
	}

	var payload providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &FetchError{Err: fmt.Errorf("malformed provider payload: %w", err)}
	}

	if payload.ResponseCode != 0 {
		return nil, &FetchError{Err: fmt.Errorf("provider response code %d", payload.ResponseCode)}
	}
	if len(payload.Results) != count {
		return nil, &FetchError{Err: fmt.Errorf("provider returned %d questions, want %d", len(payload.Results), count)}
	}

	questions := make([]Question, 0, count)
	for _, result := range payload.Results {
		if len(result.IncorrectAnswers) != 3 {
			return nil, &FetchError{Err: fmt.Errorf("question has %d incorrect answers, want 3", len(result.IncorrectAnswers))}
		}

		correct := html.UnescapeString(result.CorrectAnswer)
		choices := make([]string, 0, 4)
		for _, incorrect := range result.IncorrectAnswers {
			choices = append(choices, html.UnescapeString(incorrect))
		}
		choices = append(choices, correct)
		rand.Shuffle(len(choices), func(i, j int) {
			choices[i], choices[j] = choices[j], choices[i]
		})

		questions = append(questions, Question{
			Text:          html.UnescapeString(result.Question),
			Choices:       choices,
			CorrectAnswer: correct,
		})
	}

	return questions, nil
}
