package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"monodash/internal/app"
	"monodash/internal/credential"
	"monodash/internal/execx"
	"monodash/internal/fetch"
	"monodash/internal/model"
	"monodash/internal/source"
	"monodash/internal/source/github"
	"monodash/internal/source/gitlab"
	"monodash/internal/source/jira"
	"monodash/internal/source/todoist"
	"monodash/internal/store"
)

var (
	version    = "0.3.0"
	configFlag string

	rootCmd = &cobra.Command{
		Use:   "monodash",
		Short: "monodash - One terminal dashboard for your merge requests, pull requests, and work items.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(configPath())
			if err != nil {
				return err
			}

			// Bubble Tea owns the terminal; everything logged via the
			// standard logger goes to a file instead (or nowhere).
			if os.Getenv("MONODASH_DEBUG") != "" {
				f, err := tea.LogToFile("monodash-debug.log", "monodash")
				if err != nil {
					return fmt.Errorf("opening debug log: %w", err)
				}
				defer f.Close()
			} else {
				log.SetOutput(io.Discard)
			}

			s, err := store.NewSQLiteStore(store.DefaultDBPath())
			if err != nil {
				return err
			}
			defer s.Close()

			registry, orchestrator := buildPipeline(cfg)
			defer orchestrator.Close()

			m := app.New(s, registry, orchestrator, cfg.Cache.TTL())
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}

	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Store the Todoist API token in the system keyring",
		Long: `Prompt for a Todoist API token and store it in the system keyring.
The GitLab, GitHub, and Jira sources authenticate through their own CLIs
(glab auth login, gh auth login, acli jira auth login) and need no setup here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Todoist API token").
						Description("From Todoist: Settings → Integrations → Developer").
						EchoMode(huh.EchoModePassword).
						Value(&token),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
			if token == "" {
				return credential.Delete(credential.KeyTodoistToken)
			}
			if err := credential.Set(credential.KeyTodoistToken, token); err != nil {
				return err
			}
			fmt.Println("Todoist token stored.")
			return nil
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Probe every source and report whether it is usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := model.LoadConfig(configPath())
			if err != nil {
				return err
			}
			log.SetOutput(io.Discard)

			registry, orchestrator := buildPipeline(cfg)
			defer orchestrator.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			results := registry.DetectAll(ctx)
			for _, sec := range model.Sections {
				fmt.Printf("%s:\n", sec.Title())
				for _, src := range registry.Sources(sec) {
					d := results[src.Name()]
					switch {
					case !d.Installed:
						fmt.Printf("  %-10s not available\n", src.Name())
					case !d.Authenticated:
						fmt.Printf("  %-10s not authenticated\n", src.Name())
					default:
						fmt.Printf("  %-10s ok\n", src.Name())
					}
				}
			}
			return nil
		},
	}

	errorsCmd = &cobra.Command{
		Use:   "errors",
		Short: "Show recent fetch failures from the local log",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.NewSQLiteStore(store.DefaultDBPath())
			if err != nil {
				return err
			}
			defer s.Close()

			errs, err := s.RecentFetchErrors(context.Background(), 20)
			if err != nil {
				return err
			}
			if len(errs) == 0 {
				fmt.Println("No recorded fetch failures.")
				return nil
			}
			for _, e := range errs {
				fmt.Printf("%s  %-8s %-8s %s\n",
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					e.Section, e.Source, e.Message,
				)
			}
			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of monodash",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("monodash version %s\n", version)
		},
	}
)

// buildPipeline wires the executor, the source adapters, the detection
// registry, and the fetch orchestrator from the loaded configuration.
func buildPipeline(cfg *model.AppConfig) (*source.Registry, *fetch.Orchestrator) {
	pool := execx.NewPool(cfg.Fetch.MaxConcurrent)
	runner := execx.NewRunner(pool, cfg.Fetch.FetchTimeout())

	registry := source.NewRegistry()
	registry.Register(gitlab.New(runner, cfg.GitLab))
	registry.Register(github.New(runner))
	registry.Register(jira.New(runner, cfg.Jira))

	token, err := credential.Get(credential.KeyTodoistToken)
	if err != nil {
		log.Printf("main: reading todoist token: %v", err)
	}
	registry.Register(todoist.New("", token, pool, cfg.Fetch.FetchTimeout(), cfg.Todoist))

	return registry, fetch.NewOrchestrator(registry)
}

func configPath() string {
	if configFlag != "" {
		return configFlag
	}
	return model.DefaultConfigPath()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"Path to the config file (default ~/.config/monodash/config.yaml)")
	rootCmd.AddCommand(setupCmd, statusCmd, errorsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
