package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/snippet-oracle/snippet-oracle/internal/apperror"
	"github.com/snippet-oracle/snippet-oracle/internal/model"
	"github.com/snippet-oracle/snippet-oracle/internal/repository"
)

// MaxProfileLinks bounds the link list on a profile.
const MaxProfileLinks = 5

// UserService owns profile reads and edits.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Profile returns a user's account by handle.
func (s *UserService) Profile(ctx context.Context, username string) (*model.User, error) {
	return s.users.GetUserByName(ctx, username)
}

// UpdateProfile validates and saves the user's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, bio, avatarURL string, links []string) error {
	bio = strings.TrimSpace(bio)
	if len(bio) > model.MaxBioLength {
		return apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be at most %d characters", model.MaxBioLength))
	}
	if avatarURL != "" && !validHTTPURL(avatarURL) {
		return apperror.ValidationFailed("avatarUrl", "avatar must be an http(s) URL")
	}
	if len(links) > MaxProfileLinks {
		return apperror.ValidationFailed("links",
			fmt.Sprintf("at most %d links allowed", MaxProfileLinks))
	}
	cleaned := make([]string, 0, len(links))
	for _, link := range links {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if !validHTTPURL(link) {
			return apperror.ValidationFailed("links", fmt.Sprintf("%q is not an http(s) URL", link))
		}
		cleaned = append(cleaned, link)
	}

	return s.users.UpdateProfile(ctx, userID, bio, avatarURL, cleaned)
}

// SearchUsers serves the @-mention and author autocomplete.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]model.AuthorSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 25 {
		limit = 10
	}
	return s.users.SearchUsers(ctx, query, limit)
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
