package uploader

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"

	"github.com/santiagobasulto/markdown-tools/absolutify/keytemplate"
)

// S3Params ...
type S3Params struct {
	Bucket string
	// KeyPrefix is a keytemplate pattern, e.g. "docs/{filename}".
	KeyPrefix string
	ACL       string
	// CloudFrontDomain replaces the default bucket host in public URLs.
	// Must not carry a scheme.
	CloudFrontDomain string
	CacheControl     string
	// ValidateETag re-uploads an existing object when the local content
	// digest differs from the remote ETag.
	ValidateETag bool

	Profile         string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// s3API is the slice of the S3 surface the backend touches. The manager
// uploader needs the multipart operations even though images virtually
// never cross the multipart threshold.
type s3API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3 uploads images to a bucket and builds public URLs for them, optionally
// through a CloudFront domain.
type S3 struct {
	client   s3API
	template keytemplate.Model
	params   S3Params
	// prefix is the evaluated key prefix for one document, set by ForDocument.
	prefix string
	logger log.Logger
}

// NewS3 validates params and builds the AWS client exactly once. The
// returned backend is shared by all workers; the client is never rebuilt.
func NewS3(ctx context.Context, params S3Params, envRepo env.Repository, logger log.Logger) (*S3, error) {
	if params.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket must not be empty", ErrInvalidConfiguration)
	}
	if params.KeyPrefix == "" {
		return nil, fmt.Errorf("%w: key prefix must not be empty", ErrInvalidConfiguration)
	}
	if strings.HasPrefix(params.CloudFrontDomain, "http://") || strings.HasPrefix(params.CloudFrontDomain, "https://") {
		return nil, fmt.Errorf("%w: cloudfront domain must not contain a scheme", ErrInvalidConfiguration)
	}

	cfg, err := loadAWSConfig(ctx, params, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3{
		client:   s3.NewFromConfig(*cfg),
		template: keytemplate.NewModel(envRepo, logger),
		params:   params,
		logger:   logger,
	}, nil
}

// ForDocument evaluates the key prefix template against the markdown
// document path. All images of that document share the evaluated prefix.
func (u *S3) ForDocument(docPath string) (Uploader, error) {
	prefix, err := u.template.Evaluate(u.params.KeyPrefix, docPath)
	if err != nil {
		return nil, fmt.Errorf("evaluate key prefix: %w", err)
	}
	scoped := *u
	scoped.prefix = prefix
	return &scoped, nil
}

// Upload applies the conditional-upload policy. With override=false the
// remote object is checked first: a missing object is uploaded, an existing
// one is kept unless ETag validation is on and the content digests differ.
// With override=true the object is always uploaded.
func (u *S3) Upload(ctx context.Context, localPath string, override bool) (string, error) {
	key := u.objectKey(localPath)
	publicURL := u.objectURL(key)

	if !override {
		upToDate, err := u.remoteUpToDate(ctx, key, localPath)
		if err != nil {
			return "", err
		}
		if upToDate {
			u.logger.Debugf("Skipping %s, already uploaded", filepath.Base(localPath))
			return publicURL, nil
		}
	}

	if err := u.putObject(ctx, key, localPath); err != nil {
		return "", err
	}
	return publicURL, nil
}

func (u *S3) objectKey(localPath string) string {
	name := filepath.Base(localPath)
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}

func (u *S3) objectURL(key string) string {
	host := u.params.CloudFrontDomain
	if host == "" {
		host = fmt.Sprintf("%s.s3.amazonaws.com", u.params.Bucket)
	}
	publicURL := url.URL{Scheme: "https", Host: host, Path: "/" + key}
	return publicURL.String()
}

// remoteUpToDate reports whether the object at key already holds the local
// file's content. A not-found response means the upload must happen; any
// other error from the existence check is fatal.
func (u *S3) remoteUpToDate(ctx context.Context, key string, localPath string) (bool, error) {
	head, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(u.params.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) {
			if _, ok := apiError.(*types.NotFound); ok {
				return false, nil
			}
		}
		return false, &TransportError{Op: fmt.Sprintf("head object %s", key), Err: err}
	}

	remoteETag := ""
	if head.ETag != nil {
		remoteETag = strings.Trim(*head.ETag, `"`)
	}
	if remoteETag == "" || !u.params.ValidateETag {
		return true, nil
	}

	localETag, err := contentDigest(localPath)
	if err != nil {
		return false, fmt.Errorf("digest %s: %w", localPath, err)
	}
	return localETag == remoteETag, nil
}

func (u *S3) putObject(ctx context.Context, key string, localPath string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat image: %w", err)
	}
	u.logger.Debugf("Uploading %s (%s) to s3://%s/%s",
		filepath.Base(localPath), units.HumanSizeWithPrecision(float64(info.Size()), 3), u.params.Bucket, key)

	input := &s3.PutObjectInput{
		Body:   file,
		Bucket: aws.String(u.params.Bucket),
		Key:    aws.String(key),
	}
	if contentType := mime.TypeByExtension(filepath.Ext(localPath)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if u.params.CacheControl != "" {
		input.CacheControl = aws.String(u.params.CacheControl)
	}
	if u.params.ACL != "" {
		input.ACL = types.ObjectCannedACL(u.params.ACL)
	}

	uploader := manager.NewUploader(u.client)
	if _, err := uploader.Upload(ctx, input); err != nil {
		return &TransportError{Op: fmt.Sprintf("upload %s", key), Err: err}
	}
	return nil
}

// The ETag of a plain PutObject is the hex MD5 of the body. Multipart
// uploads report a different format, but images stay below the multipart
// threshold.
func contentDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func loadAWSConfig(ctx context.Context, params S3Params, logger log.Logger) (*aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if params.Region != "" {
		opts = append(opts, config.WithRegion(params.Region))
	}
	if params.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(params.Profile))
	}
	if params.AccessKeyID != "" && params.SecretAccessKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, params.SessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
