package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/animap/animap-backend/internal/domain"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/httpx"
)

// MatchRequest carries everything the model needs to locate one anime on
// the target platform.
type MatchRequest struct {
	AnilistID int
	Titles    []string
	Year      int
	MediaType domain.MediaType
	StartDate *string
	Platform  domain.Platform
}

// Candidate is the model's proposed platform entry. SeasonNumber is only
// populated for TMDB, where one show groups several AniList entries.
type Candidate struct {
	PlatformID   string
	SeasonNumber *int
	Confidence   int
}

// Provider proposes platform matches. A nil candidate with a nil error is
// a confident "this anime does not exist on the platform".
type Provider interface {
	Name() string
	Model() string
	ProposeMatch(ctx context.Context, req MatchRequest) (*Candidate, error)
}

// Default endpoints, all speaking the OpenAI chat completion dialect.
var defaultBaseURLs = map[string]string{
	domain.ProviderOpenAI:   "https://api.openai.com/v1",
	domain.ProviderDeepseek: "https://api.deepseek.com/v1",
	domain.ProviderXai:      "https://api.x.ai/v1",
	domain.ProviderGemini:   "https://generativelanguage.googleapis.com/v1beta/openai",
}

// Config selects and authenticates one upstream model endpoint.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the provider default, e.g. for a proxy.
	BaseURL string
}

func New(cfg Config) (Provider, error) {
	name, err := domain.ParseProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%w: model required", apperrors.ErrInvalidArgument)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: missing API key for provider %s", apperrors.ErrInvalidArgument, name)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURLs[name]
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL

	return &chatProvider{
		name:   name,
		model:  strings.TrimSpace(cfg.Model),
		client: openai.NewClientWithConfig(clientCfg),
	}, nil
}

// IsSystemic reports whether the error dooms the whole job rather than a
// single item. Bad or revoked credentials fail every subsequent call, so
// the runner stops instead of burning the retry budget per anime.
func IsSystemic(err error) bool {
	switch code := httpStatusOf(err); code {
	case 401, 403:
		return true
	}
	return false
}

// IsRetryable reports whether the per-item retry loop should try again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsSystemic(err) {
		return false
	}
	if code := httpStatusOf(err); code != 0 {
		return httpx.IsRetryableHTTPStatus(code)
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return true
	}
	return httpx.IsRetryableError(err)
}

func httpStatusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	var sc httpx.HTTPStatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode()
	}
	return 0
}

// MalformedResponseError marks model output that could not be parsed as
// the expected JSON object. Worth a retry: the next sample usually is.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v; raw=%s", e.Err, e.Raw)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
