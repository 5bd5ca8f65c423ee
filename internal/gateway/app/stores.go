package app

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bizdiag/internal/export"
	"bizdiag/internal/gateway/config"
	"bizdiag/internal/kv"
)

type gatewayStores struct {
	kv   kv.Store
	sink export.Sink
}

func initStores(cfg *config.Config, log *zap.Logger) (*gatewayStores, error) {
	store, err := kv.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Backend, err)
	}
	log.Info("storage", zap.String("backend", cfg.Storage.Backend), zap.Int("cache_entries", cfg.Storage.CacheEntries))

	sink, err := chooseExportSink(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &gatewayStores{kv: store, sink: sink}, nil
}

func chooseExportSink(cfg *config.Config, log *zap.Logger) (export.Sink, error) {
	disk := export.DiskSink{Dir: cfg.Export.Dir}
	switch strings.ToLower(strings.TrimSpace(cfg.Export.Sink)) {
	case "", "disk":
		return disk, nil
	case "none":
		return nil, nil
	case "s3":
		if !cfg.Export.S3.CanUse() {
			log.Warn("export sink: using disk fallback (s3 config incomplete)", zap.String("dir", disk.Dir))
			return disk, nil
		}
		s3 := cfg.Export.S3
		sink, err := export.NewS3Sink(export.S3Config{
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Bucket:    s3.Bucket,
			UseSSL:    s3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize export s3 sink: %w", err)
		}
		log.Info("export sink: s3", zap.String("bucket", s3.Bucket), zap.String("endpoint", s3.Endpoint))
		return sink, nil
	}
	return nil, fmt.Errorf("unknown export sink %q", cfg.Export.Sink)
}
