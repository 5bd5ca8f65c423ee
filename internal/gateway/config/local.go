package config

import (
	"strings"

	"bizdiag/internal/kv"
)

// localConfig keeps everything on disk next to the process, with the
// docker-compose MinIO as the optional export bucket.
func localConfig(getenv func(string) string) Config {
	return Config{
		Storage: kv.Config{
			Backend: kv.BackendSQLite,
			Path:    "tmp/bizdiag.db",
		},
		Export: ExportConfig{
			Sink: "disk",
			Dir:  "tmp/exports",
			S3: S3Config{
				Endpoint:  firstNonEmpty(strings.TrimSpace(getenv("EXPORT_MINIO_ENDPOINT")), "minio:9000"),
				Region:    firstNonEmpty(strings.TrimSpace(getenv("EXPORT_S3_REGION")), "us-east-1"),
				AccessKey: firstNonEmpty(strings.TrimSpace(getenv("EXPORT_S3_ACCESS_KEY")), strings.TrimSpace(getenv("MINIO_ROOT_USER"))),
				SecretKey: firstNonEmpty(strings.TrimSpace(getenv("EXPORT_S3_SECRET_KEY")), strings.TrimSpace(getenv("MINIO_ROOT_PASSWORD"))),
				Bucket:    firstNonEmpty(strings.TrimSpace(getenv("EXPORT_S3_BUCKET")), "bizdiag-exports"),
				UseSSL:    false,
			},
		},
	}
}
