package s3

import (
	"context"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePresigner struct {
	lastBucket string
	lastKey    string
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *awss3.GetObjectInput, _ ...func(*awss3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.lastBucket = *params.Bucket
	f.lastKey = *params.Key
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + f.lastBucket + "/" + f.lastKey}, nil
}

func newTestSigner(bucket string) (*LinkSigner, *fakePresigner) {
	fake := &fakePresigner{}
	return &LinkSigner{presigner: fake, defaultBucket: bucket, ttl: time.Minute}, fake
}

func TestSignLinkResolvesS3URI(t *testing.T) {
	signer, fake := newTestSigner("default")

	link, err := signer.SignLink(context.Background(), "s3://specs/2024/base.pdf")
	if err != nil {
		t.Fatalf("SignLink() error = %v", err)
	}
	if fake.lastBucket != "specs" || fake.lastKey != "2024/base.pdf" {
		t.Fatalf("resolved to bucket=%q key=%q", fake.lastBucket, fake.lastKey)
	}
	if !strings.HasPrefix(link, "https://signed.example/") {
		t.Fatalf("unexpected link: %s", link)
	}
}

func TestSignLinkUsesDefaultBucketForBareKeys(t *testing.T) {
	signer, fake := newTestSigner("default")

	if _, err := signer.SignLink(context.Background(), "base.pdf"); err != nil {
		t.Fatalf("SignLink() error = %v", err)
	}
	if fake.lastBucket != "default" || fake.lastKey != "base.pdf" {
		t.Fatalf("resolved to bucket=%q key=%q", fake.lastBucket, fake.lastKey)
	}
}

func TestSignLinkPassesThroughHTTPURIs(t *testing.T) {
	signer, _ := newTestSigner("default")

	link, err := signer.SignLink(context.Background(), "https://docs.example/spec.pdf")
	if err != nil {
		t.Fatalf("SignLink() error = %v", err)
	}
	if link != "https://docs.example/spec.pdf" {
		t.Fatalf("unexpected link: %s", link)
	}
}

func TestSignLinkRejectsBareKeyWithoutBucket(t *testing.T) {
	signer, _ := newTestSigner("")

	if _, err := signer.SignLink(context.Background(), "base.pdf"); err == nil {
		t.Fatalf("expected error")
	}
}
