// Package backup uploads credential-file archives to an S3-compatible
// object store.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	sc "github.com/dmitrijs2005/credvault/internal/server/config"
	"github.com/dmitrijs2005/credvault/internal/server/filestore"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

type Service struct {
	files  *filestore.Store
	config *sc.Config
	logger logging.Logger
}

func NewService(files *filestore.Store, config *sc.Config, logger logging.Logger) *Service {
	return &Service{
		files:  files,
		config: config,
		logger: logger.With("module", "backup"),
	}
}

// StorageKey places backups under a per-day prefix so repeated uploads for
// the same user do not clobber each other.
func StorageKey(userID string) string {
	d := time.Now()
	return fmt.Sprintf("backups/%d/%d/%d/%s", d.Year(), d.Month(), d.Day(), filestore.ArchiveName(userID))
}

func (s *Service) getClient() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,     // MINIO_ROOT_USER
			s.config.S3RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	}), nil
}

// Upload archives the user's credential files and puts the archive into the
// configured bucket. It returns the storage key of the uploaded object.
// Object-store failures surface as common.ErrorExternal.
func (s *Service) Upload(ctx context.Context, userID string) (string, error) {
	var buf bytes.Buffer
	if err := s.files.ExportArchive(ctx, userID, &buf); err != nil {
		return "", err
	}

	client, err := s.getClient()
	if err != nil {
		return "", fmt.Errorf("%w: configuring object store client: %v", common.ErrorExternal, err)
	}

	bucket := s.config.S3Bucket
	key := StorageKey(userID)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return "", fmt.Errorf("%w: uploading backup: %v", common.ErrorExternal, err)
	}

	s.logger.Info(ctx, "backup uploaded", "user_id", userID, "key", key, "size", buf.Len())
	return key, nil
}
