package handler

import (
	"campushub/internal/app/rtc"
	"campushub/internal/app/storage"
	"campushub/internal/app/store"
	"campushub/internal/configs"
)

// AppDeps bundles the shared dependencies every handler needs. StorageService
// is nil when no S3 backend is configured; file endpoints check for that.
type AppDeps struct {
	Hub            *rtc.Hub
	Config         *configs.AppConfig
	Store          *store.Store
	StorageService storage.StorageService
}
