// Точка входа NFT Store — сервиса хранения NFT в IPFS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/arturkryukov/nftstore/internal/api/handlers"
	"github.com/arturkryukov/nftstore/internal/api/middleware"
	"github.com/arturkryukov/nftstore/internal/config"
	"github.com/arturkryukov/nftstore/internal/ipfs"
	"github.com/arturkryukov/nftstore/internal/server"
	"github.com/arturkryukov/nftstore/internal/service"
	"github.com/arturkryukov/nftstore/internal/storage/index"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("NFT Store запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("ipfs_api_url", cfg.IPFSAPIURL),
		slog.String("metadata_dir", cfg.MetadataDir),
	)

	// --- Инициализация компонентов ---

	// 1. In-memory индекс NFT-записей, источник истины — *.nft.json на диске
	idx := index.New(cfg.MetadataDir, logger)
	if err := idx.BuildFromDir(); err != nil {
		logger.Error("Ошибка построения индекса", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middleware.RecordsTotal.Set(float64(idx.Count()))

	// 2. Клиент IPFS RPC API
	ipfsClient := ipfs.New(cfg.IPFSAPIURL, cfg.IPFSTimeout, logger)

	// 3. Сервисы
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)
	nftSvc := service.NewNFTService(ipfsClient, idx, cache, logger)
	qrSvc := service.NewQRService(cfg.IPFSGateway)

	// 4. topologymetrics — мониторинг IPFS-узла
	ctx := context.Background()
	dephealthSvc, dephealthErr := service.NewDephealthService(
		cfg.ServiceID,
		cfg.DephealthGroup,
		cfg.DephealthDepName,
		cfg.IPFSAPIURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("dep_name", cfg.DephealthDepName),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 5. Handlers
	nftHandler := handlers.NewNFTHandler(nftSvc, qrSvc, cfg.MaxUploadSize)
	healthHandler := handlers.NewHealthHandler(ipfsClient, cfg.IPFSPingTimeout, cfg.MetadataDir, idx)
	apiHandler := handlers.NewAPIHandler(nftHandler, healthHandler)

	// 6. JWT middleware — только если задан NFT_JWKS_URL
	var authMw func(http.Handler) http.Handler
	if cfg.JWKSUrl != "" {
		jwtAuth, jwtErr := middleware.NewJWTAuth(cfg.JWKSUrl, cfg.JWTLeeway, logger)
		if jwtErr != nil {
			// JWKS недоступен — запускаем без аутентификации (для разработки)
			logger.Warn("JWT JWKS недоступен, запуск без аутентификации",
				slog.String("jwks_url", cfg.JWKSUrl),
				slog.String("error", jwtErr.Error()),
			)
		} else {
			authMw = jwtAuth.Middleware()
			logger.Info("JWT аутентификация настроена",
				slog.String("jwks_url", cfg.JWKSUrl),
			)
		}
	}

	// 7. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, authMw,
		middleware.RequestLogger(logger),
		middleware.Metrics(),
	)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("NFT Store остановлен")
}
