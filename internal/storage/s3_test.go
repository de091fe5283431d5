package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/backend/internal/common"
	"github.com/fintrack/backend/internal/models"
)

func testConfig(endpoint string) Config {
	return Config{
		Bucket:    "statements",
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	}
}

func TestNewS3_AppliesRegionAndCredentials(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		assert.NotNil(t, lo.Credentials)
		return aws.Config{Region: lo.Region}, nil
	}
	_, err := NewS3(context.Background(), testConfig("http://127.0.0.1:9000"))
	require.NoError(t, err)

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}
	_, err = NewS3(context.Background(), testConfig(""))
	assert.Error(t, err)

	_, err = NewS3(context.Background(), Config{})
	assert.Error(t, err)
}

func TestPresignGet(t *testing.T) {
	s, err := NewS3(context.Background(), testConfig("http://127.0.0.1:9000"))
	require.NoError(t, err)

	raw, err := s.PresignGet(context.Background(), "statements/a/b.pdf", 0)
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/statements/statements/a/b.pdf", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
}

func TestPresignGet_Error(t *testing.T) {
	orig := presignGetObject
	t.Cleanup(func() { presignGetObject = orig })
	presignGetObject = func(*s3.PresignClient, context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("no signer")
	}

	s, err := NewS3(context.Background(), testConfig("http://127.0.0.1:9000"))
	require.NoError(t, err)
	_, err = s.PresignGet(context.Background(), "k", time.Minute)
	assert.Error(t, err)
}

func TestPutGet_AgainstFakeEndpoint(t *testing.T) {
	var puts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/statements/k.pdf":
			puts++
			io.Copy(io.Discard, r.Body)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/statements/k.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 archived"))
		default:
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
		}
	}))
	defer srv.Close()

	s, err := NewS3(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, s.Put(context.Background(), "k.pdf", []byte("%PDF-1.4 archived"), "application/pdf"))
	assert.Equal(t, 1, puts)

	data, err := s.Get(context.Background(), "k.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 archived", string(data))

	_, err = s.Get(context.Background(), "missing.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestStatementKey(t *testing.T) {
	id := uuid.New()
	key := StatementKey(models.OwnedBy(id), time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))
	assert.True(t, strings.HasPrefix(key, "statements/"+id.String()+"/2024/03/"), key)
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	assert.Contains(t, StatementKey(models.Anonymous, time.Now()), "/anonymous/")
}
