package main

import (
	"net/http"

	"go.uber.org/zap"

	"geopin/api"
	"geopin/config"
	"geopin/extract"
	"geopin/geo"
	"geopin/geocode"
	"geopin/ocr"
	"geopin/storage"
)

func main() {
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	store, err := storage.Open(cfg.DatabasePath, log)
	if err != nil {
		log.Fatal("opening database failed", zap.String("path", cfg.DatabasePath), zap.Error(err))
	}

	var blobs storage.BlobStore
	if cfg.MinioEndpoint != "" {
		blobs, err = storage.NewMinioBlobStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, log)
		if err != nil {
			log.Fatal("connecting to MinIO failed", zap.String("endpoint", cfg.MinioEndpoint), zap.Error(err))
		}
	} else {
		blobs, err = storage.NewLocalBlobStore(cfg.UploadDir)
		if err != nil {
			log.Fatal("preparing upload directory failed", zap.String("dir", cfg.UploadDir), zap.Error(err))
		}
	}

	var cache geocode.Cache = geocode.NewMemoryCache()
	if cfg.MongoCacheURI != "" {
		mc, err := geocode.ConnectMongoCache(cfg.MongoCacheURI, cfg.MongoCacheDatabase, "addresses", log)
		if err != nil {
			log.Fatal("connecting to MongoDB cache failed", zap.Error(err))
		}
		defer mc.Close()
		cache = mc
	}

	hint := geo.RegionHint{}
	if cfg.RegionHint {
		hint = geo.SouthernAfrica
	}

	// A nil recognizer disables the OCR tier; EXIF and overlay still run.
	var recognizer ocr.Recognizer
	if t := ocr.NewTesseractRecognizer(cfg.TesseractPath, log); t != nil {
		recognizer = t
	}

	handlers := &api.Handlers{
		Store:          store,
		Blobs:          blobs,
		Extractor:      extract.New(hint, recognizer, cfg.OCRTimeout, log),
		Resolver:       geocode.NewResolver(cfg.NominatimURL, cfg.GeocoderUserAgent, cache, log),
		Hint:           hint,
		SecretKey:      cfg.SecretKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            log,
	}

	log.Info("starting server", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handlers.Router()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
