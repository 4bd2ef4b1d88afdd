package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/AdityaDodda/purchase-kandhari/internal/config"
	"github.com/AdityaDodda/purchase-kandhari/internal/model"
)

// allowedMimeTypes is the upload allowlist. Anything else is rejected
// before it touches the disk.
var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

type AttachmentService interface {
	Upload(ctx context.Context, requestID uint, files []*multipart.FileHeader) ([]model.Attachment, error)
	List(ctx context.Context, requestID uint) ([]model.Attachment, error)
	Get(ctx context.Context, id uint) (*model.Attachment, error)
	// Resolve returns the on-disk path for a stored attachment, refusing
	// anything that escapes the upload directory.
	Resolve(att *model.Attachment) (string, error)
	Delete(ctx context.Context, id uint) error
}

type attachmentService struct {
	db  *gorm.DB
	cfg config.UploadConfig
}

func NewAttachmentService(db *gorm.DB, cfg config.UploadConfig) AttachmentService {
	return &attachmentService{db: db, cfg: cfg}
}

func (s *attachmentService) Upload(ctx context.Context, requestID uint, files []*multipart.FileHeader) ([]model.Attachment, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files provided", ErrInvalidInput)
	}
	if len(files) > s.cfg.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrInvalidInput, s.cfg.MaxFiles)
	}

	var request model.PurchaseRequest
	if err := s.db.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Validate everything before saving anything, so a bad file in the
	// batch does not leave partial uploads behind.
	for _, fh := range files {
		if fh.Size > s.cfg.MaxFileSize {
			return nil, fmt.Errorf("%w: %s exceeds the %d MB limit", ErrInvalidInput, fh.Filename, s.cfg.MaxFileSize>>20)
		}
		if !allowedMimeTypes[fh.Header.Get("Content-Type")] {
			return nil, fmt.Errorf("%w: %s has unsupported type %s", ErrInvalidInput, fh.Filename, fh.Header.Get("Content-Type"))
		}
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare upload directory: %w", err)
	}

	var saved []string
	cleanup := func() {
		for _, p := range saved {
			if err := os.Remove(p); err != nil {
				log.WithError(err).WithField("path", p).Warn("failed to remove orphaned upload")
			}
		}
	}

	attachments := make([]model.Attachment, 0, len(files))
	for _, fh := range files {
		name := uuid.New().String() + filepath.Ext(fh.Filename)
		path := filepath.Join(s.cfg.Dir, name)
		if err := saveMultipartFile(fh, path); err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to save %s: %w", fh.Filename, err)
		}
		saved = append(saved, path)
		attachments = append(attachments, model.Attachment{
			PurchaseRequestID: requestID,
			FileName:          name,
			OriginalName:      fh.Filename,
			FileSize:          fh.Size,
			MimeType:          fh.Header.Get("Content-Type"),
			FilePath:          path,
		})
	}

	if err := s.db.WithContext(ctx).Create(&attachments).Error; err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to record attachments: %w", err)
	}
	return attachments, nil
}

func (s *attachmentService) List(ctx context.Context, requestID uint) ([]model.Attachment, error) {
	var attachments []model.Attachment
	err := s.db.WithContext(ctx).
		Where("purchase_request_id = ?", requestID).
		Order("uploaded_at DESC").
		Find(&attachments).Error
	return attachments, err
}

func (s *attachmentService) Get(ctx context.Context, id uint) (*model.Attachment, error) {
	var att model.Attachment
	if err := s.db.WithContext(ctx).First(&att, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &att, nil
}

func (s *attachmentService) Resolve(att *model.Attachment) (string, error) {
	base, err := filepath.Abs(s.cfg.Dir)
	if err != nil {
		return "", err
	}
	path, err := filepath.Abs(filepath.Join(s.cfg.Dir, filepath.Base(att.FileName)))
	if err != nil {
		return "", err
	}
	if filepath.Dir(path) != base {
		return "", ErrForbidden
	}
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}
	return path, nil
}

func (s *attachmentService) Delete(ctx context.Context, id uint) error {
	att, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&model.Attachment{}, att.ID).Error; err != nil {
		return err
	}
	if path, err := s.Resolve(att); err == nil {
		if err := os.Remove(path); err != nil {
			log.WithError(err).WithField("path", path).Warn("failed to remove attachment file")
		}
	}
	return nil
}

func saveMultipartFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
