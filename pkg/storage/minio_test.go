package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketBase(t *testing.T) {
	assert.Equal(t, "http://minio:9000/exports", bucketBase("", "minio:9000", "exports", false))
	assert.Equal(t, "https://minio:9000/exports", bucketBase("", "minio:9000", "exports", true))
	assert.Equal(t, "https://cdn.example.com/exports", bucketBase("https://cdn.example.com/", "minio:9000", "exports", false))
}
