package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/secretshare/webserver/internal/storage"
)

const avatarFetchTimeout = 10 * time.Second

// AvatarService mirrors federated profile pictures into object storage
// so they can be served without leaking provider URLs to other users.
// A nil Storage disables the service.
type AvatarService struct {
	storage *storage.Storage
	client  *http.Client
}

func NewAvatarService(st *storage.Storage) *AvatarService {
	return &AvatarService{
		storage: st,
		client:  &http.Client{Timeout: avatarFetchTimeout},
	}
}

// Enabled reports whether avatar storage is configured.
func (s *AvatarService) Enabled() bool {
	return s != nil && s.storage != nil
}

// Mirror downloads the picture at the given URL and stores it under the
// user's avatar key.
func (s *AvatarService) Mirror(ctx context.Context, userID int, pictureURL string) error {
	if !s.Enabled() {
		return errors.New("avatar storage is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pictureURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("avatar fetch failed: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	return s.storage.Put(ctx, avatarKey(userID), resp.Body, resp.ContentLength, contentType)
}

// Open returns a reader for the user's mirrored avatar.
func (s *AvatarService) Open(ctx context.Context, userID int) (io.ReadCloser, error) {
	if !s.Enabled() {
		return nil, errors.New("avatar storage is not configured")
	}
	return s.storage.Get(ctx, avatarKey(userID))
}

func avatarKey(userID int) string {
	return fmt.Sprintf("avatars/%d", userID)
}
