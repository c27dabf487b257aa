package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/storage"
)

var allowedAudioExts = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
	".ogg": "audio/ogg",
}

type mediaStorage interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
}

// MediaService stores version audio files and hands out signed streaming
// URLs so preview clients never see raw file paths.
type MediaService struct {
	storage   mediaStorage
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       config.MediaConfig
	apiPrefix string
	now       func() time.Time
}

// NewMediaService constructs a MediaService.
func NewMediaService(store mediaStorage, signer *storage.SignedURLSigner, apiPrefix string, cfg config.MediaConfig, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{
		storage:   store,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
		apiPrefix: strings.TrimRight(apiPrefix, "/"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores an audio file for a project and returns its streaming URL.
func (s *MediaService) Upload(projectID, filename string, size int64, r io.Reader) (*dto.MediaUploadResponse, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := allowedAudioExts[ext]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported audio format")
	}
	if s.cfg.MaxFileSize > 0 && size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the maximum allowed size")
	}

	relPath := fmt.Sprintf("media/%s/%s-%s", projectID, s.now().Format("20060102-150405"), filepath.Base(filename))
	stored, err := s.storage.SaveStream(relPath, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store audio file")
	}

	token, expiresAt, err := s.signer.Generate(projectID, stored)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign streaming link")
	}

	return &dto.MediaUploadResponse{
		Path:        stored,
		URL:         s.apiPrefix + "/media/" + token,
		ContentType: contentType,
		ExpiresAt:   expiresAt,
	}, nil
}

// Open validates a streaming token and returns the file with its MIME type.
func (s *MediaService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired streaming link")
	}

	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "audio file no longer available")
	}

	contentType, ok := allowedAudioExts[strings.ToLower(filepath.Ext(relPath))]
	if !ok {
		contentType = "application/octet-stream"
	}
	return file, contentType, nil
}
