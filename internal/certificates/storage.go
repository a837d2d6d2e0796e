package certificates

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"cert-chain/credential-portal/credential-portal-backend/pkg/storage"
)

// StorageProvider pins certificates to IPFS and optionally archives them to S3.
type StorageProvider struct {
	s3     storage.S3Client
	ipfs   storage.IPFSClient
	bucket string
}

// NewStorageProvider builds a provider. A nil s3 client or empty bucket disables archiving.
func NewStorageProvider(s3 storage.S3Client, ipfs storage.IPFSClient, bucket string) *StorageProvider {
	return &StorageProvider{
		s3:     s3,
		ipfs:   ipfs,
		bucket: bucket,
	}
}

func (p *StorageProvider) ArchiveEnabled() bool {
	return p.s3 != nil && p.bucket != ""
}

func (p *StorageProvider) UploadToS3(ctx context.Context, key string, body io.Reader) error {
	return p.s3.Upload(ctx, p.bucket, key, body)
}

func (p *StorageProvider) PinToIPFS(ctx context.Context, name string, body io.Reader) (string, error) {
	return p.ipfs.PinFile(ctx, name, body)
}

func (p *StorageProvider) UnpinFromIPFS(ctx context.Context, cid string) error {
	return p.ipfs.UnpinFile(ctx, cid)
}

func (p *StorageProvider) DeleteFromS3(ctx context.Context, key string) error {
	return p.s3.Delete(ctx, p.bucket, key)
}

func (p *StorageProvider) FetchFromIPFS(ctx context.Context, cid string) (io.ReadCloser, error) {
	return p.ipfs.Fetch(ctx, cid)
}

// GenerateS3Key returns a unique archive key for a certificate.
func (p *StorageProvider) GenerateS3Key(organizationWallet, serial string) string {
	return fmt.Sprintf("certificates/%s/%s/%s.pdf", organizationWallet, serial, uuid.NewString())
}
