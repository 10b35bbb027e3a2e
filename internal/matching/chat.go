package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/animap/animap-backend/internal/domain"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
)

type chatProvider struct {
	name   string
	model  string
	client *openai.Client
}

func (p *chatProvider) Name() string  { return p.name }
func (p *chatProvider) Model() string { return p.model }

func (p *chatProvider) ProposeMatch(ctx context.Context, req MatchRequest) (*Candidate, error) {
	if len(req.Titles) == 0 {
		return nil, fmt.Errorf("%w: anime %d has no titles", apperrors.ErrInvalidArgument, req.AnilistID)
	}

	system, user, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &MalformedResponseError{Raw: "", Err: fmt.Errorf("no choices returned")}
	}

	return parseMatchResult(resp.Choices[0].Message.Content, req.Platform)
}

const bgmTvSystemPrompt = `You are an expert on anime databases. Given one anime from AniList, find the same entry on bgm.tv (Bangumi).

Use your knowledge of bgm.tv subject ids. Bangumi catalogs each anime season and each movie as its own subject, so pick the subject that covers exactly this entry, not the franchise page.

Respond with a single JSON object and nothing else:
{"id": "<bgm.tv subject id>" | null, "confidence": <0-100>}

Set id to null when you are confident the anime has no bgm.tv entry. Confidence reflects how certain you are of the exact id; use values below 50 when guessing.`

const tmdbSystemPrompt = `You are an expert on anime databases. Given one anime from AniList, find the same entry on TMDB (themoviedb.org).

For movies return the TMDB movie id. For TV anime return the TMDB series id together with the season number inside that series that corresponds to this AniList entry. TMDB groups all seasons of a show under one series id while AniList lists each season separately, so identifying the correct season_number matters as much as the series id.

Respond with a single JSON object and nothing else:
{"id": "<tmdb id>" | null, "season_number": <season within the series> | null, "confidence": <0-100>}

Set id to null when you are confident the anime has no TMDB entry. Omit or null season_number for movies. Confidence reflects how certain you are of the exact id; use values below 50 when guessing.`

func buildPrompt(req MatchRequest) (system string, user string, err error) {
	switch req.Platform {
	case domain.PlatformBgmTv:
		system = bgmTvSystemPrompt
	case domain.PlatformTmdb:
		system = tmdbSystemPrompt
	default:
		return "", "", fmt.Errorf("%w: no prompt for platform %q", apperrors.ErrInvalidArgument, req.Platform)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Titles: %s\n", strings.Join(req.Titles, " / "))
	fmt.Fprintf(&b, "Year: %d\n", req.Year)
	fmt.Fprintf(&b, "Format: %s\n", req.MediaType)
	if req.StartDate != nil && *req.StartDate != "" {
		fmt.Fprintf(&b, "Start date: %s\n", *req.StartDate)
	}
	fmt.Fprintf(&b, "AniList id: %d\n", req.AnilistID)

	return system, b.String(), nil
}

// matchResult tolerates ids returned as JSON numbers or strings; models do
// both depending on the day.
type matchResult struct {
	ID           json.RawMessage `json:"id"`
	SeasonNumber *int            `json:"season_number"`
	Confidence   int             `json:"confidence"`
}

func parseMatchResult(content string, platform domain.Platform) (*Candidate, error) {
	raw := strings.TrimSpace(content)
	// Some models wrap JSON in a markdown fence despite the response format.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var res matchResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, &MalformedResponseError{Raw: content, Err: err}
	}

	id, err := normalizeID(res.ID)
	if err != nil {
		return nil, &MalformedResponseError{Raw: content, Err: err}
	}
	if id == "" {
		return nil, nil
	}

	confidence := res.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	cand := &Candidate{PlatformID: id, Confidence: confidence}
	if platform == domain.PlatformTmdb {
		cand.SeasonNumber = res.SeasonNumber
	}
	return cand, nil
}

func normalizeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return "", nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return "", err
		}
		return strings.TrimSpace(v), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id is neither string nor number: %s", s)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}
