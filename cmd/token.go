package cmd

import (
	"fmt"

	"note-sync/app/auth"
	"note-sync/app/config"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [客户端名称]",
	Short: "生成访问远端存储的令牌",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		subject := "client"
		if len(args) == 1 {
			subject = args[0]
		}

		token, err := auth.NewJWTService(cfg.JWT).GenerateToken(subject)
		if err != nil {
			return fmt.Errorf("生成令牌失败: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}
