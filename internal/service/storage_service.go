package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/h2non/filetype"
	config "github.com/maheshrc27/tiktok-scheduler/configs"
	"github.com/maheshrc27/tiktok-scheduler/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	sniffLen = 261
)

// ObjectAPI is the part of the S3 client the storage layer uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

func NewS3Client(ctx context.Context, cfg config.S3) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// StoredFile is an accepted upload. LocalPath is a readable copy on disk;
// call Close once it is no longer needed.
type StoredFile struct {
	Media     models.MediaRef
	Filename  string
	LocalPath string
	Size      int64
	staged    bool
}

func (f *StoredFile) Close() error {
	if !f.staged {
		return nil
	}
	return removeQuietly(f.LocalPath)
}

type StorageService interface {
	SaveUpload(ctx context.Context, userID int64, originalName string, r io.Reader) (*StoredFile, error)
	Materialize(ctx context.Context, ref models.MediaRef) (path string, cleanup func(), err error)
	Check(ref models.MediaRef) error
	Delete(ctx context.Context, ref models.MediaRef) error
	DeleteUpload(ctx context.Context, userID int64, filename string) error
	Type() string
	DefaultKind() models.MediaKind
}

type storageService struct {
	cfg  config.Storage
	s3   ObjectAPI
	http *resty.Client
}

// NewStorageService keeps uploads on local disk, or in the bucket when
// cfg.Type is s3 and objects is non-nil.
func NewStorageService(cfg config.Storage, objects ObjectAPI, downloads *resty.Client) StorageService {
	if downloads == nil {
		downloads = resty.New()
	}
	if cfg.Type != StorageS3 || objects == nil {
		cfg.Type = StorageLocal
		objects = nil
	}
	return &storageService{cfg: cfg, s3: objects, http: downloads}
}

func (s *storageService) Type() string {
	return s.cfg.Type
}

func (s *storageService) DefaultKind() models.MediaKind {
	if s.cfg.Type == StorageS3 {
		return models.MediaObject
	}
	return models.MediaLocal
}

func (s *storageService) SaveUpload(ctx context.Context, userID int64, originalName string, r io.Reader) (*StoredFile, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		slog.Info(err.Error())
		return nil, err
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || !filetype.IsVideo(head) {
		return nil, ErrUnsupportedMedia
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = "." + kind.Extension
	}
	filename := "video-" + id + ext

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	localPath := filepath.Join(s.cfg.UploadDir, filename)

	size, err := writeFile(localPath, io.MultiReader(bytes.NewReader(head), r))
	if err != nil {
		return nil, err
	}

	stored := &StoredFile{
		Media:     models.LocalMedia(localPath),
		Filename:  filename,
		LocalPath: localPath,
		Size:      size,
	}
	if s.cfg.Type != StorageS3 {
		return stored, nil
	}

	key := uploadKey(userID, filename)
	if err := s.putObject(ctx, key, localPath, kind.MIME.Value); err != nil {
		removeQuietly(localPath)
		return nil, err
	}
	stored.Media = models.ObjectMedia(key)
	stored.staged = true
	return stored, nil
}

func uploadKey(userID int64, filename string) string {
	return fmt.Sprintf("videos/%d/%s", userID, filename)
}

func (s *storageService) putObject(ctx context.Context, key, path, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer f.Close()

	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3.BucketName),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		slog.Info(err.Error(), "key", key)
		return err
	}
	return nil
}

// Check rejects references the publisher must not read, such as local
// paths outside the upload directory.
func (s *storageService) Check(ref models.MediaRef) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch ref.Kind {
	case models.MediaLocal:
		if !within(s.cfg.UploadDir, ref.Value) {
			return fmt.Errorf("%w: media path outside upload directory", ErrInvalidInput)
		}
	case models.MediaObject:
		if s.s3 == nil {
			return fmt.Errorf("%w: object storage is not configured", ErrInvalidInput)
		}
	case models.MediaURL:
		if !strings.HasPrefix(ref.Value, "https://") && !strings.HasPrefix(ref.Value, "http://") {
			return fmt.Errorf("%w: media url must be http or https", ErrInvalidInput)
		}
	}
	return nil
}

// Materialize returns a local file holding the media. cleanup is always
// non-nil and removes any temporary copy.
func (s *storageService) Materialize(ctx context.Context, ref models.MediaRef) (string, func(), error) {
	noop := func() {}

	if ref.IsZero() {
		return "", noop, ErrNoMedia
	}
	if err := s.Check(ref); err != nil {
		return "", noop, err
	}

	switch ref.Kind {
	case models.MediaLocal:
		if _, err := os.Stat(ref.Value); err != nil {
			slog.Info(err.Error())
			return "", noop, fmt.Errorf("%w: %v", ErrNoMedia, err)
		}
		return ref.Value, noop, nil

	case models.MediaObject:
		tmp, err := s.tempPath(filepath.Ext(ref.Value))
		if err != nil {
			return "", noop, err
		}
		cleanup := func() { removeQuietly(tmp) }
		if err := s.download(ctx, ref.Value, tmp); err != nil {
			cleanup()
			return "", noop, err
		}
		return tmp, cleanup, nil

	case models.MediaURL:
		tmp, err := s.tempPath(".mp4")
		if err != nil {
			return "", noop, err
		}
		cleanup := func() { removeQuietly(tmp) }
		resp, err := s.http.R().SetContext(ctx).SetOutput(tmp).Get(ref.Value)
		if err != nil {
			cleanup()
			slog.Info(err.Error(), "url", ref.Value)
			return "", noop, fmt.Errorf("%w: download media: %v", ErrUploadFailed, err)
		}
		if resp.IsError() {
			cleanup()
			return "", noop, fmt.Errorf("%w: download media: status %d", ErrUploadFailed, resp.StatusCode())
		}
		return tmp, cleanup, nil
	}

	return "", noop, fmt.Errorf("%w: unknown media kind %q", ErrInvalidInput, ref.Kind)
}

func (s *storageService) download(ctx context.Context, key, dst string) error {
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Info(err.Error(), "key", key)
		return fmt.Errorf("%w: %v", ErrNoMedia, err)
	}
	defer out.Body.Close()

	_, err = writeFile(dst, out.Body)
	return err
}

func (s *storageService) tempPath(ext string) (string, error) {
	if err := os.MkdirAll(s.cfg.TempDir, 0o755); err != nil {
		slog.Info(err.Error())
		return "", err
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(s.cfg.TempDir, "temp-"+id+ext), nil
}

func (s *storageService) Delete(ctx context.Context, ref models.MediaRef) error {
	switch ref.Kind {
	case models.MediaLocal:
		if !within(s.cfg.UploadDir, ref.Value) {
			return fmt.Errorf("%w: media path outside upload directory", ErrInvalidInput)
		}
		return removeQuietly(ref.Value)
	case models.MediaObject:
		if s.s3 == nil {
			return nil
		}
		_, err := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.cfg.S3.BucketName),
			Key:    aws.String(ref.Value),
		})
		if err != nil {
			slog.Info(err.Error(), "key", ref.Value)
		}
		return err
	}
	return nil
}

// DeleteUpload removes a file SaveUpload stored for the user. In s3 mode
// the object under the user's prefix is deleted along with any local copy.
func (s *storageService) DeleteUpload(ctx context.Context, userID int64, filename string) error {
	if filename == "" || filepath.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("%w: bad filename", ErrInvalidInput)
	}
	path := filepath.Join(s.cfg.UploadDir, filename)
	if s.cfg.Type == StorageS3 {
		if err := s.Delete(ctx, models.ObjectMedia(uploadKey(userID, filename))); err != nil {
			return err
		}
		return removeQuietly(path)
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrFileNotFound
		}
		slog.Info(err.Error())
		return err
	}
	return nil
}

func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		slog.Info(err.Error())
		removeQuietly(path)
		return 0, err
	}
	return n, nil
}

func removeQuietly(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Info("remove file failed", "path", path, "error", err)
		return err
	}
	return nil
}

func within(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
