package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/percorso-labs/percorso-api/internal/dto"
	"github.com/percorso-labs/percorso-api/internal/models"
	"github.com/percorso-labs/percorso-api/internal/observability"
	"github.com/percorso-labs/percorso-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the attachment exceeded the size limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates the archive inspection rejected the file.
	ErrUploadScanFailed = errors.New("file scanning failed")
)

// Attachment types accepted for exercises: reference images, instruction
// PDFs and zipped starter material.
var allowedAttachmentTypes = map[string]struct{}{
	"image":           {},
	"application/pdf": {},
	"application/zip": {},
}

// FileStorage abstracts the attachment storage backend.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores exercise attachments.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, userID *uint) (dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs the attachment upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/percorso-labs/percorso-api/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, userID *uint) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	payload, fileType, err := s.readAndValidate(span, file)
	if err != nil {
		return dto.UploadResponse{}, err
	}

	name := sanitizeFileName(file.Filename)
	checksum := sha256.Sum256(payload)
	span.SetAttributes(
		attribute.String("upload.sanitized_name", name),
		attribute.String("upload.detected_mime", fileType),
		attribute.Int64("upload.size_bytes", int64(len(payload))),
	)

	url, err := s.storage.Upload(ctx, name, bytes.NewReader(payload))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		return dto.UploadResponse{}, failSpan(span, err, "storage failed")
	}

	record := models.UploadRecord{
		FileName:  name,
		URL:       url,
		MimeType:  fileType,
		SizeBytes: int64(len(payload)),
		Checksum:  hex.EncodeToString(checksum[:]),
		UserID:    userID,
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		return dto.UploadResponse{}, failSpan(span, err, "persistence failed")
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Str("file", name).Str("type", fileType).Int64("bytes", record.SizeBytes).Msg("attachment stored")

	return dto.UploadResponse{
		URL:       url,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
	}, nil
}

// readAndValidate buffers the attachment and enforces the size, type and
// archive guards before anything touches storage.
func (s *uploadService) readAndValidate(span trace.Span, file *multipart.FileHeader) ([]byte, string, error) {
	if file == nil {
		return nil, "", failSpan(span, errors.New("file is required"), "validation failed")
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return nil, "", failSpan(span, ErrUploadTooLarge, "payload too large")
	}

	handle, err := file.Open()
	if err != nil {
		return nil, "", failSpan(span, err, "open failed")
	}
	defer handle.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, "", failSpan(span, err, "read failed")
	}
	// The multipart header size is client supplied, so the buffered length
	// is checked again.
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejected().WithLabelValues("size").Inc()
		return nil, "", failSpan(span, ErrUploadTooLarge, "payload too large")
	}

	payload := buf.Bytes()
	fileType := normalizeMime(mimetype.Detect(payload).String())
	if _, ok := allowedAttachmentTypes[fileType]; !ok {
		observability.UploadRejected().WithLabelValues("type").Inc()
		return nil, "", failSpan(span, ErrUploadTypeNotAllowed, "type not allowed")
	}

	if err := s.inspectArchive(payload, fileType); err != nil {
		observability.UploadRejected().WithLabelValues("scan").Inc()
		return nil, "", failSpan(span, err, "scan failed")
	}

	return payload, fileType, nil
}

// inspectArchive guards against zip bombs by bounding the declared
// uncompressed size of accepted archives.
func (s *uploadService) inspectArchive(payload []byte, fileType string) error {
	if fileType != "application/zip" {
		return nil
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}

	var uncompressed uint64
	for _, f := range reader.File {
		uncompressed += f.UncompressedSize64
		if uncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}

	return nil
}

func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}

func sanitizeFileName(name string) string {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}

	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	switch {
	case strings.HasPrefix(lower, "image/"):
		return "image"
	case lower == "application/x-zip-compressed":
		return "application/zip"
	default:
		return lower
	}
}
