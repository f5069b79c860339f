package pdfstore

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store serves files from s3://{bucket}/{prefix}/{name}. The object body
// is read with the request context, so a client disconnect aborts the read.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Store(client S3API, bucket, prefix string) (*S3Store, error) {
	if client == nil {
		return nil, xerrors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, xerrors.New("s3 bucket is required")
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *S3Store) Kind() string { return "s3" }

func (s *S3Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Store) Open(ctx context.Context, name string) (*File, error) {
	if !validName(name) {
		return nil, xerrors.Wrapf(ErrFileMissing, "invalid name %q", name)
	}
	key := s.key(name)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, xerrors.Wrapf(ErrFileMissing, "s3://%s/%s", s.bucket, key)
		}
		return nil, xerrors.Wrapf(err, "get S3 object s3://%s/%s", s.bucket, key)
	}

	f := &File{
		Name: name,
		Size: -1,
		Body: out.Body,
	}
	if out.ContentLength != nil {
		f.Size = *out.ContentLength
	}
	if out.LastModified != nil {
		f.ModTime = *out.LastModified
	}
	return f, nil
}

// Exists uses HeadObject so a presence check does not start a body transfer.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	if !validName(name) {
		return false, nil
	}
	key := s.key(name)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, xerrors.Wrapf(err, "head S3 object s3://%s/%s", s.bucket, key)
	}
	return true, nil
}

// GetObject reports NoSuchKey, HeadObject reports NotFound (no body to carry a code)
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
