// Package search invokes the remote knowledge-search function and reformats
// its results for speech synthesis.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"voice-webhook-router/internal/apperror"
	"voice-webhook-router/internal/config"
	"voice-webhook-router/internal/sigv4"
)

const (
	// resultCount asked of the remote function per query.
	resultCount = 5
	// maxPassages concatenated into one spoken answer.
	maxPassages = 3
	// minPassageLen filters out near-empty stub articles.
	minPassageLen = 40
)

// Searcher defines the knowledge-search interface consumed by the router.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// Invoker signs and sends search requests to the remote function. The
// timeout stays under the platform's ~10s tool-call budget so there is
// headroom to format a response.
type Invoker struct {
	cfg       *config.Config
	log       *zap.Logger
	overrides []Override
	client    *http.Client
	now       func() time.Time
}

// New creates a search invoker. A nil overrides slice falls back to the
// built-in product table.
func New(cfg *config.Config, logger *zap.Logger, overrides []Override) *Invoker {
	if overrides == nil {
		overrides = DefaultOverrides()
	}
	return &Invoker{
		cfg:       cfg,
		log:       logger,
		overrides: overrides,
		client:    &http.Client{Timeout: cfg.SearchTimeout},
		now:       time.Now,
	}
}

// Search answers query with a single-line caller-facing string. It never
// returns an error: remote failures and timeouts become the canned
// agent-handoff line.
func (s *Invoker) Search(ctx context.Context, query string) string {
	if o, ok := matchOverride(s.overrides, query); ok {
		s.log.Info("search answered by override", zap.String("query", query))
		return o.Answer
	}

	if missing := s.missingConfig(); len(missing) > 0 {
		msg := apperror.ConfigMissing("knowledge search", missing)
		s.log.Error("search skipped", zap.String("reason", msg))
		return msg
	}

	timeout := s.cfg.SearchTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	answer, err := s.invoke(ctx, query)
	if err != nil {
		s.log.Warn("knowledge search failed", zap.String("query", query), zap.Error(err))
		return apperror.SearchUnavailable
	}
	if answer == "" {
		s.log.Info("knowledge search returned no usable passages", zap.String("query", query))
		return apperror.SearchUnavailable
	}

	s.log.Info("knowledge search answered", zap.String("query", query), zap.Int("length", len(answer)))
	return answer
}

func (s *Invoker) missingConfig() []string {
	var missing []string
	if s.cfg.AWSAccessKeyID == "" {
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if s.cfg.AWSSecretAccessKey == "" {
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	}
	if s.cfg.SearchFunctionURL == "" {
		missing = append(missing, "SEARCH_FUNCTION_URL")
	}
	return missing
}

type searchResult struct {
	Meta struct {
		TextCleaned  string `json:"text_cleaned"`
		RawText      string `json:"raw_text"`
		ArticleTitle string `json:"article_title"`
	} `json:"meta"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (s *Invoker) invoke(ctx context.Context, query string) (string, error) {
	payload, err := json.Marshal(map[string]any{"query": query, "k": resultCount})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.SearchFunctionURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	creds := sigv4.Credentials{
		AccessKeyID:     s.cfg.AWSAccessKeyID,
		SecretAccessKey: s.cfg.AWSSecretAccessKey,
	}
	sigv4.SignRequest(req, payload, creds, "lambda", s.cfg.AWSRegion, s.now())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apperror.ErrUpstreamUnreachable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperror.ErrUpstreamUnreachable
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	return formatPassages(body.Results), nil
}

// formatPassages cleans the top ranked results and joins up to maxPassages of
// them into one line. Newlines never survive: the delivery channel does not
// tolerate multi-line tool results.
func formatPassages(results []searchResult) string {
	var passages []string
	for _, r := range results {
		if len(passages) == maxPassages {
			break
		}
		text := r.Meta.TextCleaned
		if text == "" {
			text = r.Meta.RawText
		}
		cleaned := cleanPassage(text)
		if len(cleaned) < minPassageLen {
			continue
		}
		passages = append(passages, cleaned)
	}
	return strings.Join(passages, " ")
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// boilerplate phrases the help-center articles append to every page.
	boilerplate = []string{
		"Was this article helpful?",
		"Still have questions?",
		"Contact our support team",
		"Click here to learn more",
		"Back to top",
		"Related articles",
	}
)

func cleanPassage(text string) string {
	text = htmlTagRe.ReplaceAllString(text, " ")
	for _, phrase := range boilerplate {
		text = strings.ReplaceAll(text, phrase, " ")
	}
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
