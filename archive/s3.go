// Package archive copies finished run outputs to object storage so
// local output directories can be pruned.
package archive

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Archiver mirrors an output directory tree into a bucket under a
// fixed prefix.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Config carries the optional overrides over the standard AWS
// config/credential chain.
type S3Config struct {
	Bucket       string
	Region       string
	Prefix       string
	UsePathStyle bool
}

func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Archive walks localDir and uploads every file under
// {prefix}/{remotePrefix}/{relative path}. Files that fail are logged
// and skipped so one bad object does not abandon the rest.
func (a *S3Archiver) Archive(ctx context.Context, localDir, remotePrefix string) error {
	uploaded := 0
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		key := path.Join(a.prefix, remotePrefix, filepath.ToSlash(rel))
		if err := a.putFile(ctx, p, key); err != nil {
			log.Printf("Warning: failed to archive %s: %v", rel, err)
			return nil
		}
		uploaded++
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk output dir: %w", err)
	}
	log.Printf("Archived %d files under s3://%s/%s", uploaded, a.bucket, path.Join(a.prefix, remotePrefix))
	return nil
}

func (a *S3Archiver) putFile(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	in := &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		in.ContentType = aws.String(ct)
	}
	_, err = a.client.PutObject(ctx, in)
	return err
}
