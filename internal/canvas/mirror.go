package canvas

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/canvai/canvai/internal/config"
	"github.com/canvai/canvai/internal/logging"
)

const mirrorWorkers = 2

// Mirror asynchronously copies persisted canvas images to an S3-compatible
// bucket. Uploads are best-effort off-host redundancy: a failed or dropped
// upload is logged, never surfaced to the persist path.
type Mirror struct {
	client *s3.Client
	bucket string
	prefix string
	log    logging.Logger

	queue chan string
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewMirror builds the S3 client from cfg and starts the upload workers.
func NewMirror(ctx context.Context, cfg config.Mirror, log logging.Logger) (*Mirror, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("mirror aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	m := &Mirror{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log,
		queue:  make(chan string, 128),
	}

	m.wg.Add(mirrorWorkers)
	for i := 0; i < mirrorWorkers; i++ {
		go m.worker()
	}
	return m, nil
}

// Enqueue schedules a local file for upload. Never blocks: when the queue
// is full the upload is dropped and logged, the local file remains the
// source of truth. A persist racing shutdown may call this after Close;
// the upload is silently dropped then, never a send on a closed channel.
func (m *Mirror) Enqueue(localPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	select {
	case m.queue <- localPath:
	default:
		m.log.Warn(context.Background(), "mirror queue full, dropping upload", "file", localPath)
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for localPath := range m.queue {
		if err := m.upload(localPath); err != nil {
			m.log.Warn(context.Background(), "mirror upload failed", "file", localPath, "error", err)
		}
	}
}

func (m *Mirror) upload(localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	key := path.Join(m.prefix, filepath.Base(localPath))
	_, err = m.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	return err
}

// Close drains the queue and stops the workers. Safe to call once; later
// Enqueue calls become no-ops.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}
