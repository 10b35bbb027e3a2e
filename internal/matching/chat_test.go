package matching

import (
	"errors"
	"net"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/animap/animap-backend/internal/domain"
)

func TestParseMatchResult(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		platform domain.Platform
		wantID   string
		wantSN   *int
		wantConf int
		wantNil  bool
		wantErr  bool
	}{
		{
			name:     "string id",
			content:  `{"id": "329906", "confidence": 92}`,
			platform: domain.PlatformBgmTv,
			wantID:   "329906",
			wantConf: 92,
		},
		{
			name:     "numeric id",
			content:  `{"id": 209867, "season_number": 2, "confidence": 88}`,
			platform: domain.PlatformTmdb,
			wantID:   "209867",
			wantSN:   intPtr(2),
			wantConf: 88,
		},
		{
			name:     "null id means no match",
			content:  `{"id": null, "confidence": 95}`,
			platform: domain.PlatformTmdb,
			wantNil:  true,
		},
		{
			name:     "season number ignored off tmdb",
			content:  `{"id": "100", "season_number": 3, "confidence": 70}`,
			platform: domain.PlatformBgmTv,
			wantID:   "100",
			wantConf: 70,
		},
		{
			name:     "markdown fenced json",
			content:  "```json\n{\"id\": \"55\", \"confidence\": 60}\n```",
			platform: domain.PlatformBgmTv,
			wantID:   "55",
			wantConf: 60,
		},
		{
			name:     "confidence clamped",
			content:  `{"id": "1", "confidence": 400}`,
			platform: domain.PlatformBgmTv,
			wantID:   "1",
			wantConf: 100,
		},
		{
			name:     "prose instead of json",
			content:  `The anime is probably id 42.`,
			platform: domain.PlatformBgmTv,
			wantErr:  true,
		},
		{
			name:     "id of wrong type",
			content:  `{"id": {"value": 1}, "confidence": 10}`,
			platform: domain.PlatformBgmTv,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMatchResult(tt.content, tt.platform)
			if tt.wantErr {
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) {
					t.Fatalf("expected MalformedResponseError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMatchResult: %v", err)
			}
			if tt.wantNil {
				if got != nil {
					t.Fatalf("expected nil candidate, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected candidate, got nil")
			}
			if got.PlatformID != tt.wantID {
				t.Fatalf("id: got=%q want=%q", got.PlatformID, tt.wantID)
			}
			if got.Confidence != tt.wantConf {
				t.Fatalf("confidence: got=%d want=%d", got.Confidence, tt.wantConf)
			}
			if (got.SeasonNumber == nil) != (tt.wantSN == nil) {
				t.Fatalf("season_number: got=%v want=%v", got.SeasonNumber, tt.wantSN)
			}
			if got.SeasonNumber != nil && *got.SeasonNumber != *tt.wantSN {
				t.Fatalf("season_number: got=%d want=%d", *got.SeasonNumber, *tt.wantSN)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	start := "2023-09-29"
	system, user, err := buildPrompt(MatchRequest{
		AnilistID: 154587,
		Titles:    []string{"Sousou no Frieren", "Frieren: Beyond Journey's End"},
		Year:      2023,
		MediaType: domain.MediaTV,
		StartDate: &start,
		Platform:  domain.PlatformTmdb,
	})
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}
	if !strings.Contains(system, "season_number") {
		t.Fatalf("tmdb system prompt missing season instructions: %s", system)
	}
	for _, want := range []string{"Sousou no Frieren", "2023", "TV", "2023-09-29", "154587"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}

	if _, _, err := buildPrompt(MatchRequest{Platform: "Netflix", Titles: []string{"x"}}); err == nil {
		t.Fatal("expected error for unknown platform")
	}
}

func TestIsSystemic(t *testing.T) {
	if !IsSystemic(&openai.APIError{HTTPStatusCode: 401}) {
		t.Fatal("401 should be systemic")
	}
	if !IsSystemic(&openai.RequestError{HTTPStatusCode: 403}) {
		t.Fatal("403 should be systemic")
	}
	if IsSystemic(&openai.APIError{HTTPStatusCode: 429}) {
		t.Fatal("429 is transient, not systemic")
	}
	if IsSystemic(nil) {
		t.Fatal("nil is not systemic")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(&openai.APIError{HTTPStatusCode: 429}) {
		t.Fatal("429 should be retryable")
	}
	if !IsRetryable(&openai.RequestError{HTTPStatusCode: 503}) {
		t.Fatal("503 should be retryable")
	}
	if IsRetryable(&openai.APIError{HTTPStatusCode: 401}) {
		t.Fatal("systemic errors are not retryable")
	}
	if IsRetryable(&openai.APIError{HTTPStatusCode: 400}) {
		t.Fatal("400 is not retryable")
	}
	if !IsRetryable(&MalformedResponseError{Raw: "x", Err: errors.New("bad json")}) {
		t.Fatal("malformed output should be retryable")
	}
	if !IsRetryable(&net.DNSError{IsTimeout: true}) {
		t.Fatal("network timeout should be retryable")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Provider: "anthropic", Model: "m", APIKey: "k"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := New(Config{Provider: domain.ProviderOpenAI, Model: "", APIKey: "k"}); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := New(Config{Provider: domain.ProviderGemini, Model: "gemini-2.0-flash", APIKey: ""}); err == nil {
		t.Fatal("expected error for missing key")
	}
	p, err := New(Config{Provider: domain.ProviderDeepseek, Model: "deepseek-chat", APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != domain.ProviderDeepseek || p.Model() != "deepseek-chat" {
		t.Fatalf("provider identity: %s/%s", p.Name(), p.Model())
	}
}

func intPtr(v int) *int { return &v }
