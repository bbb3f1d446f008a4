package blob

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"questrail.io/questrail/pkg/concurrent"
	"questrail.io/questrail/pkg/errors"
	"questrail.io/questrail/pkg/log"
)

var (
	Client *Clients
)

func Init(bucketName, region string) {
	if bucketName == "" || region == "" {
		log.Fatalf("s3 bucket or region not present")
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(), awsconfig.WithRegion(region))
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}
	Client = &Clients{
		bucketName: bucketName,
		region:     region,
		s3Client:   s3.NewFromConfig(cfg),
		sqsClient:  sqs.NewFromConfig(cfg),
	}
}

type Clients struct {
	bucketName string
	region     string
	s3Client   *s3.Client
	sqsClient  *sqs.Client
}

// PresignedAccessURL returns a temporary GET URL for the stored media,
// used when sending point content to chat.
func (s *Clients) PresignedAccessURL(ctx context.Context, key string, expire time.Duration) (string, error) {
	request, err := s3.NewPresignClient(s.s3Client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expire))
	if err != nil {
		return "", errors.WithStackAndReport(err)
	}
	return request.URL, nil
}

// AccessURL presigns with the default day-long expiry; chat sends use
// the link right away.
func (s *Clients) AccessURL(ctx context.Context, key string) (string, error) {
	return s.PresignedAccessURL(ctx, key, 24*time.Hour)
}

func (s *Clients) PutFile(ctx context.Context, key string, file io.Reader) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   file,
	}
	_, err := s.s3Client.PutObject(ctx, input)
	return errors.WrapAndReport(err, "put object to s3")
}

func (s *Clients) DeleteFile(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	}
	_, err := s.s3Client.DeleteObject(ctx, input)
	return errors.WrapAndReport(err, "delete s3 object")
}

// DeleteFiles best-effort removes a batch of keys, logging failures.
func (s *Clients) DeleteFiles(ctx context.Context, keys []string) {
	limiter := concurrent.NewLimiter(5)
	var wg sync.WaitGroup
	for _, key := range keys {
		if key == "" {
			continue
		}
		key := key
		wg.Add(1)
		limiter.Add()
		go func() {
			defer func() {
				limiter.Done()
				wg.Done()
			}()
			if err := s.DeleteFile(ctx, key); err != nil {
				log.Error(err)
			}
		}()
	}
	wg.Wait()
}
