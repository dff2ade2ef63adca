package cmd

import (
	"fmt"
	"os"
	"strings"

	"note-sync/app/search"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [关键词]",
	Short: "按标题模糊搜索任务",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		app := newClientApp()
		defer app.Close()

		app.initialize(cmd.Context())

		index := search.NewIndex(app.cfg.Search.Threshold, app.cfg.Search.CacheTTL())
		searcher := search.NewSearcher(index, app.store.Tasks, app.cfg.Search.Debounce(), nil)
		defer searcher.Close()

		searcher.SetQuery(strings.Join(args, " "))
		results := searcher.Flush()

		folders, tasks := app.store.TreeWith(results)
		printTree(os.Stdout, folders, tasks, 0)
		fmt.Printf("共 %d 条\n", len(results))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
