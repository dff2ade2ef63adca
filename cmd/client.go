package cmd

import (
	"context"

	"note-sync/app/config"
	"note-sync/app/gateway"
	"note-sync/app/logger"
	"note-sync/app/store"
)

// clientApp 命令行使用的客户端组件
type clientApp struct {
	cfg     *config.Config
	log     *logger.Logger
	client  *gateway.Client
	history *gateway.HistoryGateway
	store   *store.Store
}

func newClientApp() *clientApp {
	cfg := config.Load()
	log := logger.New(cfg.Log)

	client := gateway.NewClient(cfg.Remote, log)
	history := gateway.NewHistoryGateway(client)
	st := store.New(
		history,
		gateway.NewFolderGateway(client),
		gateway.NewGenerationBackend(client),
		log,
		store.WithPageSize(cfg.Remote.PageSize),
	)

	return &clientApp{cfg: cfg, log: log, client: client, history: history, store: st}
}

// initialize 加载远端数据，失败只记录日志
func (a *clientApp) initialize(ctx context.Context) {
	if err := a.store.Initialize(ctx); err != nil {
		a.log.Warnf("加载远端数据未完全成功: %v", err)
	}
}

func (a *clientApp) Close() {
	a.store.Dispose()
	_ = a.client.Close()
	_ = a.log.Close()
}
