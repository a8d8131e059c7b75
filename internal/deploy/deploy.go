// Package deploy publishes a built site to S3-compatible object storage.
package deploy

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/retry"
)

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 4

// Types the mime package does not know or reports without a charset.
var contentTypes = map[string]string{
	".atom": "application/atom+xml; charset=utf-8",
	".xml":  "application/xml; charset=utf-8",
	".html": "text/html; charset=utf-8",
}

// Uploader is the part of the S3 client used for publishing.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options control where and how objects are written.
type Options struct {
	Bucket       string
	Prefix       string // key prefix, e.g. "blog"
	CacheControl string
	Concurrency  int
	Retry        retry.Policy
}

// S3Deployer uploads an output directory to a bucket.
type S3Deployer struct {
	client Uploader
	opts   Options
}

// New creates a deployer writing through client.
func New(client Uploader, opts Options) *S3Deployer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Retry == (retry.Policy{}) {
		opts.Retry = retry.DefaultPolicy()
	}
	opts.Prefix = strings.Trim(opts.Prefix, "/")
	return &S3Deployer{client: client, opts: opts}
}

// Target describes the destination for logs.
func (d *S3Deployer) Target() string {
	if d.opts.Prefix == "" {
		return "s3://" + d.opts.Bucket
	}
	return "s3://" + d.opts.Bucket + "/" + d.opts.Prefix
}

// Deploy uploads every regular file below dir and returns the number of
// objects written. Existing objects under other keys are left alone.
func (d *S3Deployer) Deploy(ctx context.Context, dir string) (int, error) {
	files, err := listFiles(dir)
	if err != nil {
		return 0, err
	}

	var uploaded atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Concurrency)
	for _, rel := range files {
		g.Go(func() error {
			if err := d.upload(ctx, dir, rel); err != nil {
				return err
			}
			uploaded.Add(1)
			return nil
		})
	}
	err = g.Wait()
	n := int(uploaded.Load())
	if err != nil {
		return n, err
	}
	slog.Info("Deployed site", slog.String("target", d.Target()), slog.Int("objects", n))
	return n, nil
}

func (d *S3Deployer) upload(ctx context.Context, dir, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// #nosec G304 -- rel comes from walking the output directory
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "read output file").
			WithContext("path", rel).
			Build()
	}
	key := d.Key(rel)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(d.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(ContentType(rel)),
	}
	if d.opts.CacheControl != "" {
		input.CacheControl = aws.String(d.opts.CacheControl)
	}

	return d.opts.Retry.Do(ctx, func() error {
		input.Body = bytes.NewReader(data)
		if _, err := d.client.PutObject(ctx, input); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("Upload failed", slog.String("key", key), logfields.Error(err))
			return errors.NetworkError("upload object").
				WithCause(err).
				WithContext("bucket", d.opts.Bucket).
				WithContext("key", key).
				Build()
		}
		return nil
	})
}

// Key maps a slash-separated output path to its object key.
func (d *S3Deployer) Key(rel string) string {
	return path.Join(d.opts.Prefix, rel)
}

// ContentType picks the Content-Type header for an output file.
func ContentType(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// listFiles returns the regular files below dir as sorted slash paths.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, e fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !e.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk output directory").
			WithContext("path", dir).
			Build()
	}
	sort.Strings(files)
	return files, nil
}
