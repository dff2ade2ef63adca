package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"note-sync/app/migration"

	"github.com/spf13/cobra"
)

var (
	migrateDecline bool
	migrateForce   bool
	migrateWatch   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "把旧版本地历史记录迁移到远端",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newClientApp()
		defer app.Close()

		legacy := migration.OpenLegacyStore(app.cfg.Legacy, app.log)
		coord := migration.NewCoordinator(legacy, app.history, app.store, app.log)

		if migrateDecline {
			if err := coord.Decline(); err != nil {
				return err
			}
			fmt.Println("已记录：不再提示迁移")
			return nil
		}

		has, count := coord.CheckLegacyData()
		if !has {
			fmt.Println("旧版存储中没有历史记录")
			if !migrateWatch {
				return nil
			}
		} else if coord.HasDeclinedMigration() && !migrateForce {
			fmt.Printf("发现 %d 条旧版历史记录，但之前已选择不迁移（使用 --force 强制迁移）\n", count)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if has {
			if err := runMigration(ctx, coord); err != nil {
				return err
			}
		}

		if !migrateWatch {
			return nil
		}
		fmt.Println("正在监控旧版存储，按 Ctrl+C 退出")
		return legacy.Watch(ctx, func() {
			if err := runMigration(ctx, coord); err != nil {
				app.log.Warnf("重新迁移失败: %v", err)
			}
		})
	},
}

func runMigration(ctx context.Context, coord *migration.Coordinator) error {
	result, err := coord.Migrate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("迁移完成: 共 %d 条，成功 %d 条，跳过 %d 条，失败 %d 条\n",
		result.Total, result.Imported, result.Skipped, result.Failed)
	for _, e := range result.Errors {
		fmt.Printf("  %v\n", e)
	}
	if !result.OK() {
		return fmt.Errorf("历史记录迁移失败，请稍后重试")
	}
	return nil
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDecline, "decline", false, "记录不迁移，之后不再提示")
	migrateCmd.Flags().BoolVar(&migrateForce, "force", false, "忽略之前的不迁移选择")
	migrateCmd.Flags().BoolVarP(&migrateWatch, "watch", "w", false, "迁移后继续监控旧版存储的变化")
	rootCmd.AddCommand(migrateCmd)
}
