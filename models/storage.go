package models

const (
	StorageProviderS3 = "s3"
)
