package domain

import (
	"fmt"

	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
)

// Platform identifies the external catalog a mapping points into.
// The string values are part of the wire contract and must not change.
type Platform string

const (
	PlatformBgmTv Platform = "BgmTv"
	PlatformTmdb  Platform = "Tmdb"
)

func Platforms() []Platform {
	return []Platform{PlatformBgmTv, PlatformTmdb}
}

func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformBgmTv, PlatformTmdb:
		return Platform(s), nil
	}
	return "", fmt.Errorf("%w: unknown platform %q", apperrors.ErrInvalidArgument, s)
}

// ReviewStatus is the human/automated judgment on a mapping.
// UnMatched is reserved for mappings without a platform id.
type ReviewStatus string

const (
	ReviewUnMatched ReviewStatus = "UnMatched"
	ReviewReady     ReviewStatus = "Ready"
	ReviewAccepted  ReviewStatus = "Accepted"
	ReviewRejected  ReviewStatus = "Rejected"
	ReviewDropped   ReviewStatus = "Dropped"
)

func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch ReviewStatus(s) {
	case ReviewUnMatched, ReviewReady, ReviewAccepted, ReviewRejected, ReviewDropped:
		return ReviewStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown review status %q", apperrors.ErrInvalidArgument, s)
}

// Matched reports whether the status implies a proposed or confirmed
// platform id. Dropped mappings are counted separately everywhere.
func (s ReviewStatus) Matched() bool {
	switch s {
	case ReviewReady, ReviewAccepted, ReviewRejected:
		return true
	}
	return false
}

type JobStatus string

const (
	JobCreated   JobStatus = "Created"
	JobRunning   JobStatus = "Running"
	JobPaused    JobStatus = "Paused"
	JobCompleted JobStatus = "Completed"
	JobFailed    JobStatus = "Failed"
)

// Provider names accepted at job creation. Wire values are exact;
// "openai" is the single canonical spelling.
const (
	ProviderXai      = "xai"
	ProviderDeepseek = "deepseek"
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
)

func ParseProvider(s string) (string, error) {
	switch s {
	case ProviderXai, ProviderDeepseek, ProviderGemini, ProviderOpenAI:
		return s, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", apperrors.ErrInvalidArgument, s)
}

type MediaType string

const (
	MediaMovie   MediaType = "Movie"
	MediaOVA     MediaType = "OVA"
	MediaONA     MediaType = "ONA"
	MediaSpecial MediaType = "Special"
	MediaTV      MediaType = "TV"
	MediaUnknown MediaType = "Unknown"
)
