// Package archive snapshots ingested articles to S3 as JSON, so the raw
// corpus survives vector store resets and re-chunking with new parameters.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"sportsrag/types"
)

// objectAPI is the slice of the S3 client the archive uses, small enough to fake.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Archive writes article snapshots under <prefix>/<source>/<article-id>.json.
type Archive struct {
	client objectAPI
	bucket string
	prefix string
}

// Config holds the settings for the article archive.
type Config struct {
	Bucket string
	Region string
	Prefix string
}

// New builds an Archive using the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Archive, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Archive{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (a *Archive) key(article *types.Article) string {
	source := article.Source
	if source == "" {
		source = "unknown"
	}
	return path.Join(a.prefix, source, article.ID+".json")
}

// Archive stores one article snapshot. Re-archiving the same article
// overwrites the previous snapshot under the same key.
func (a *Archive) Archive(ctx context.Context, article *types.Article) error {
	body, err := json.Marshal(article)
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.key(article)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload article snapshot: %w", err)
	}
	return nil
}

// Fetch retrieves a previously archived article by source and ID.
func (a *Archive) Fetch(ctx context.Context, source, id string) (*types.Article, error) {
	key := path.Join(a.prefix, source, id+".json")
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch article snapshot: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read article snapshot: %w", err)
	}

	var article types.Article
	if err := json.Unmarshal(data, &article); err != nil {
		return nil, fmt.Errorf("failed to decode article snapshot: %w", err)
	}
	return &article, nil
}

// Exists reports whether an article snapshot is already archived.
func (a *Archive) Exists(ctx context.Context, article *types.Article) (bool, error) {
	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(article)),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}
