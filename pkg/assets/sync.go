// Package assets pulls the site's hand-issued files (verification file, sitemap) from S3
package assets

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// how long a whole sync may take before giving up
const syncTimeout = 30 * time.Second

// Copies objects from an S3 bucket into a local directory
type Syncer struct {
	// S3 client, an interface so tests can stand in for it
	S3 s3iface.S3API
	// bucket the objects live in
	Bucket string
	// local directory the objects are written to
	Dir string
}

// Create a Syncer backed by a fresh AWS session in region
func NewSyncer(region, bucket, dir string) (*Syncer, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return &Syncer{S3: s3.New(sess), Bucket: bucket, Dir: dir}, nil
}

// Sync downloads each named object (key == file name) into Dir.
// Objects that don't exist in the bucket are skipped and any local copy is left alone.
func (s *Syncer) Sync(ctx context.Context, names ...string) error {
	ctx, cancel := context.WithTimeout(ctx, syncTimeout)
	defer cancel()

	for _, name := range names {
		if err := s.fetch(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) fetch(ctx context.Context, name string) error {
	resp, err := s.S3.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			log.Printf("%s not found in bucket %s, skipping", name, s.Bucket)
			return nil
		}
		return fmt.Errorf("fetching %s from bucket %s: %w", name, s.Bucket, err)
	}
	defer resp.Body.Close()

	if err := writeAtomic(filepath.Join(s.Dir, name), resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	log.Printf("Synced %s from bucket %s", name, s.Bucket)
	return nil
}

// write to a temporary file in the same directory then rename over the target,
// so requests never see a half-written file
func writeAtomic(path string, body io.Reader) error {
	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
