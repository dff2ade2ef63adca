package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"note-sync/app/model"

	"github.com/spf13/cobra"
)

var treeFollow bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "以树形结构显示文件夹和任务",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := newClientApp()
		defer app.Close()

		if !treeFollow {
			app.initialize(cmd.Context())
			folders, tasks := app.store.Tree()
			printTree(os.Stdout, folders, tasks, 0)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// 每次加载完成后重新输出
		var mu sync.Mutex
		unsubscribe := app.store.Subscribe(func() {
			if app.store.IsLoading() || !app.store.IsInitialized() {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			folders, tasks := app.store.Tree()
			fmt.Println("----")
			printTree(os.Stdout, folders, tasks, 0)
		})
		defer unsubscribe()

		cancel := app.store.InitializeAfter(ctx, app.cfg.Sync.InitDelay())
		defer cancel()
		if err := app.store.StartAutoRefresh(app.cfg.Sync.RefreshSchedule); err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	},
}

func printTree(w io.Writer, folders []model.FolderNode, tasks []model.Task, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range folders {
		mark := "▸"
		if f.Folder.IsExpanded {
			mark = "▾"
		}
		fmt.Fprintf(w, "%s%s %s/\n", indent, mark, f.Folder.Name)
		printTree(w, f.Children, f.Tasks, depth+1)
	}
	for _, t := range tasks {
		fmt.Fprintf(w, "%s- %s [%s] %s\n", indent, t.Title(), t.Status, t.ID)
	}
}

func init() {
	treeCmd.Flags().BoolVarP(&treeFollow, "follow", "f", false, "持续运行，按 sync.refresh_schedule 定时刷新并重新输出")
	rootCmd.AddCommand(treeCmd)
}
