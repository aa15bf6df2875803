//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../../mocks/mock_s3_api.go -package=mocks
// Package s3 is the object-store side of the courier: chunked uploads with
// progress reporting and prompt operator cancellation, plus the listing
// and deletion calls maintenance relies on.
package s3

import (
	"bytes"
	"context"
	goerrors "errors"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"courier-lab/domain"
	"courier-lab/errors"
)

// API is the subset of the S3 client the store uses. Narrow on purpose so
// tests can substitute a fake.
type API interface {
	PutObject(ctx context.Context, input *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, input *awss3.CreateMultipartUploadInput, opts ...func(*awss3.Options)) (*awss3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, input *awss3.UploadPartInput, opts ...func(*awss3.Options)) (*awss3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, input *awss3.CompleteMultipartUploadInput, opts ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, input *awss3.AbortMultipartUploadInput, opts ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error)
	ListObjectsV2(ctx context.Context, input *awss3.ListObjectsV2Input, opts ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, input *awss3.DeleteObjectInput, opts ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Store implements contract.TransferBackend against an S3 bucket.
type Store struct {
	client   API
	bucket   string
	prefix   string
	partSize int64
	log      *slog.Logger
}

// New builds a Store using the default AWS credential chain.
func New(ctx context.Context, log *slog.Logger, bucket, region, prefix string, partSize int64) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return NewWithClient(log, awss3.NewFromConfig(cfg), bucket, prefix, partSize), nil
}

func NewWithClient(log *slog.Logger, client API, bucket, prefix string, partSize int64) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, partSize: partSize, log: log}
}

// Transfer uploads the request's bytes and returns the object key.
// Cancellation is polled once per part; a detected pause aborts the
// multipart upload and reports ErrTransferCancelled, never a generic
// failure.
func (s *Store) Transfer(ctx context.Context, req domain.TransferRequest) (string, error) {
	key := s.objectKey(req.Name)

	if cancelled(req) {
		return "", errors.ErrTransferCancelled
	}

	if req.Size <= s.partSize {
		return s.putWhole(ctx, key, req)
	}
	return s.putMultipart(ctx, key, req)
}

func (s *Store) putWhole(ctx context.Context, key string, req domain.TransferRequest) (string, error) {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          req.Source,
		ContentType:   aws.String(req.ContentType),
		ContentLength: aws.Int64(req.Size),
	})
	if err != nil {
		if cancelled(req) {
			return "", errors.ErrTransferCancelled
		}
		return "", s.classify(err)
	}
	reportProgress(req.Progress, 1)
	return key, nil
}

func (s *Store) putMultipart(ctx context.Context, key string, req domain.TransferRequest) (string, error) {
	created, err := s.client.CreateMultipartUpload(ctx, &awss3.CreateMultipartUploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	})
	if err != nil {
		if cancelled(req) {
			return "", errors.ErrTransferCancelled
		}
		return "", s.classify(err)
	}
	uploadID := aws.ToString(created.UploadId)

	var parts []awstypes.CompletedPart
	var sent int64
	buffer := make([]byte, s.partSize)
	partNumber := int32(1)

	for sent < req.Size {
		// The cancellation predicate is checked between chunks, so an
		// operator pause interrupts within one part boundary.
		if cancelled(req) {
			s.abort(ctx, key, uploadID)
			return "", errors.ErrTransferCancelled
		}

		n, readErr := io.ReadFull(req.Source, buffer)
		if readErr != nil && !goerrors.Is(readErr, io.ErrUnexpectedEOF) && !goerrors.Is(readErr, io.EOF) {
			s.abort(ctx, key, uploadID)
			return "", fmt.Errorf("reading payload: %w", readErr)
		}
		if n == 0 {
			break
		}

		output, err := s.client.UploadPart(ctx, &awss3.UploadPartInput{
			Bucket:     aws.String(s.bucket),
			Key:        aws.String(key),
			UploadId:   aws.String(uploadID),
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(buffer[:n]),
		})
		if err != nil {
			s.abort(ctx, key, uploadID)
			if cancelled(req) {
				return "", errors.ErrTransferCancelled
			}
			return "", s.classify(err)
		}

		parts = append(parts, awstypes.CompletedPart{
			ETag:       output.ETag,
			PartNumber: aws.Int32(partNumber),
		})
		sent += int64(n)
		partNumber++
		reportProgress(req.Progress, float64(sent)/float64(req.Size))
	}

	_, err = s.client.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		s.abort(ctx, key, uploadID)
		if cancelled(req) {
			return "", errors.ErrTransferCancelled
		}
		return "", s.classify(err)
	}
	return key, nil
}

// cancelled polls the operator-pause predicate. It is re-checked after
// client errors because a pause also cancels the call's context, and the
// SDK can surface ctx.Err() before the next between-parts poll.
func cancelled(req domain.TransferRequest) bool {
	return req.Cancelled != nil && req.Cancelled()
}

func (s *Store) abort(ctx context.Context, key, uploadID string) {
	_, err := s.client.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		s.log.Warn("Failed to abort multipart upload", "key", key, "error", err)
	}
}

// ListObjects enumerates everything under the configured prefix.
func (s *Store) ListObjects(ctx context.Context) ([]domain.StoredObject, error) {
	var objects []domain.StoredObject
	var continuation *string

	for {
		output, err := s.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, s.classify(err)
		}
		for _, object := range output.Contents {
			key := aws.ToString(object.Key)
			objects = append(objects, domain.StoredObject{
				Key:          key,
				Name:         path.Base(key),
				Size:         aws.ToInt64(object.Size),
				LastModified: aws.ToTime(object.LastModified),
			})
		}
		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuation = output.NextContinuationToken
	}
	return objects, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *Store) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// classify folds backend authentication failures into ErrBackendAuth so
// the coordinator can attach a remediation hint; everything else passes
// through verbatim.
func (s *Store) classify(err error) error {
	var apiErr smithy.APIError
	if goerrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "AccessDenied", "AuthorizationHeaderMalformed":
			return fmt.Errorf("%w: %s", errors.ErrBackendAuth, apiErr.ErrorMessage())
		}
	}
	return err
}

func reportProgress(progress chan<- float64, fraction float64) {
	if progress == nil {
		return
	}
	select {
	case progress <- fraction:
	default:
		// The coordinating loop throttles anyway; dropped samples are fine.
	}
}
