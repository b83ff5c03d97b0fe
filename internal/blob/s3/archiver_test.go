package s3blob

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-wallet-ledger/internal/domain"
)

type fakeObjects struct {
	puts    map[string][]byte
	types   map[string]string
	putErr  error
	headErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{puts: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.puts[key] = body
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.headErr
}

func TestArchiveKey(t *testing.T) {
	assert.Equal(t, "ledger/walletA/1700000000000.json", ArchiveKey("walletA", 1_700_000_000_000))
}

func TestArchiver_ArchiveLedger(t *testing.T) {
	ctx := context.Background()
	fake := newFakeObjects()
	a := NewArchiver(&Client{api: fake, bucket: "archive"})

	cost := 10.0
	lots := []*domain.ClosedLot{
		{WalletID: "walletA", AssetID: "mintA", Sequence: 1, Quantity: 2, CostBasis: &cost, Proceeds: 12, RealizedPnL: 2},
		{WalletID: "walletA", AssetID: "mintA", Sequence: 2, Quantity: 1, Proceeds: 5, RealizedPnL: 5, IsPreHistory: true},
	}
	require.NoError(t, a.ArchiveLedger(ctx, "walletA", 42, lots))

	body, ok := fake.puts["archive/ledger/walletA/42.json"]
	require.True(t, ok, "object written under wallet prefix")
	assert.Equal(t, "application/json", fake.types["archive/ledger/walletA/42.json"])

	var doc LedgerArchive
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "walletA", doc.WalletID)
	assert.Equal(t, int64(42), doc.ComputedAt)
	assert.Equal(t, 2, doc.LotCount)
	require.Len(t, doc.ClosedLots, 2)
	assert.Nil(t, doc.ClosedLots[1].CostBasis)
	assert.True(t, doc.ClosedLots[1].IsPreHistory)
}

func TestArchiver_EmptyLedger(t *testing.T) {
	fake := newFakeObjects()
	a := NewArchiver(&Client{api: fake, bucket: "archive"})

	require.NoError(t, a.ArchiveLedger(context.Background(), "walletA", 1, nil))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(fake.puts["archive/ledger/walletA/1.json"], &raw))
	assert.Equal(t, "[]", string(raw["closedLots"]))
}

func TestArchiver_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeObjects()
	a := NewArchiver(&Client{api: fake, bucket: "archive"})

	assert.Error(t, a.ArchiveLedger(ctx, "", 1, nil))

	fake.putErr = errors.New("access denied")
	err := a.ArchiveLedger(ctx, "walletA", 1, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.putErr)
}

func TestClient_Health(t *testing.T) {
	fake := newFakeObjects()
	c := &Client{api: fake, bucket: "archive"}
	assert.NoError(t, c.Health(context.Background()))

	fake.headErr = errors.New("no such bucket")
	assert.ErrorIs(t, c.Health(context.Background()), fake.headErr)
}

func TestNew_RequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "archive"})
	assert.Error(t, err)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("https://s3.example.com", false))
}
