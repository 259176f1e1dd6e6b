package cli

import (
	"errors"
	"fmt"

	"quiz-funnel-service/internal/admin"
	"quiz-funnel-service/internal/config"
	"quiz-funnel-service/internal/templates"
	"github.com/spf13/cobra"
)

// NewTemplatesCmd groups template maintenance subcommands.
func NewTemplatesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect quiz templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate YAML templates in dir (defaults to quiz.templates_dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := config.Load(*configPath)
				if err != nil {
					return err
				}
				dir = cfg.Quiz.TemplatesDir
			}
			if dir == "" {
				return errors.New("no templates directory given")
			}
			tpls, err := templates.LoadDir(dir)
			if err != nil {
				return err
			}
			for _, tpl := range tpls {
				fmt.Fprintf(cmd.OutOrStdout(), "ok  %s (%d steps)\n", tpl.Slug, tpl.TotalSteps())
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List builtin and configured templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			registry := templates.NewBuiltinRegistry()
			if cfg.Quiz.TemplatesDir != "" {
				if _, err := templates.RegisterDir(registry, cfg.Quiz.TemplatesDir); err != nil {
					return err
				}
			}
			for _, tpl := range registry.All() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d steps\t%s\n", tpl.Slug, tpl.TotalSteps(), tpl.Title)
			}
			return nil
		},
	})
	return cmd
}

// NewHashPasswordCmd prints a bcrypt hash for admin.password_hash.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Hash an admin password for the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
