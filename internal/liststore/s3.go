package liststore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Snapshot renders every list in the historical whitespace-delimited line
// format. Operators read these dumps directly, so the layout matters:
// "<pattern> <expiry>" for the pattern lists, "<name> <tier>" for
// registrations (hashes are never exported), "<name> <mask>" for
// permissions and "<host> <port>" for linked hubs.
func (s *Store) Snapshot() []byte {
	var buf bytes.Buffer
	for _, kind := range []BanKind{KindBan, KindNickBan, KindAllow} {
		fmt.Fprintf(&buf, "# %s list\n", kind)
		for _, e := range s.Bans(kind) {
			fmt.Fprintf(&buf, "%s %d\n", e.Pattern, e.Expires)
		}
	}
	fmt.Fprintf(&buf, "# registrations\n")
	for _, e := range s.Registrations() {
		fmt.Fprintf(&buf, "%s %d\n", e.Nick, e.Tier)
	}
	fmt.Fprintf(&buf, "# permissions\n")
	for _, e := range s.Registrations() {
		if e.Tier == TierOperator {
			if perms := s.Permissions(e.Nick); perms != 0 {
				fmt.Fprintf(&buf, "%s %d\n", e.Nick, perms)
			}
		}
	}
	fmt.Fprintf(&buf, "# linked hubs\n")
	for _, e := range s.Links() {
		fmt.Fprintf(&buf, "%s %d\n", e.Host, e.Port)
	}
	return buf.Bytes()
}

// ArchiverConfig configures the optional S3 snapshot archiver.
type ArchiverConfig struct {
	Bucket    string
	KeyPrefix string
	Region    string
	Endpoint  string // custom endpoint for S3-compatible storage
	AccessKey string
	SecretKey string
}

// Archiver uploads list snapshots to an S3 bucket on the maintenance
// timer, giving operators an off-host backup of bans and registrations.
type Archiver struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewArchiver builds the S3 client and verifies nothing; bucket access
// failures surface on the first upload.
func NewArchiver(ctx context.Context, cfg ArchiverConfig) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archiver: bucket is required")
	}

	var options []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		options = append(options, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		provider := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		options = append(options, awsconfig.WithCredentialsProvider(provider))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("archiver: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Archiver{client: client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}, nil
}

// Upload writes one snapshot object, keyed by timestamp so older
// snapshots remain retrievable.
func (a *Archiver) Upload(ctx context.Context, snapshot []byte) error {
	key := fmt.Sprintf("%slists-%s.txt", a.keyPrefix, time.Now().UTC().Format("20060102T150405Z"))
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(snapshot),
	})
	if err != nil {
		return fmt.Errorf("archiver: upload %s: %w", key, err)
	}
	return nil
}
