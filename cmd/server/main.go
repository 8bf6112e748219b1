package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/roomchat-server/internal/app"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/log"
	"github.com/vovakirdan/roomchat-server/internal/store/sqlite"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        config.Config
		overrides  config.Config
	)

	root := &cobra.Command{
		Use:          "roomchat-server",
		Short:        "Multi-room real-time chat server",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			bootLogger := log.New("info", "console")
			loaded, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}
			loaded.UpdateFrom(overrides)
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting roomchat server")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	serve.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	serve.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	serve.Flags().DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	root.AddCommand(serve, newRoomsCmd(&cfg))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())
	return root
}

func newRoomsCmd(cfg *config.Config) *cobra.Command {
	rooms := &cobra.Command{
		Use:   "rooms",
		Short: "Manage persisted rooms",
	}

	rooms.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List rooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := st.ListRooms(cmd.Context())
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"ID", "Name", "Created"})
			table.SetAutoWrapText(false)
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetBorder(false)
			for _, r := range list {
				table.Append([]string{r.ID, r.Name, r.CreatedAt.Format("2006-01-02 15:04")})
			}
			table.Render()
			return nil
		},
	})

	rooms.AddCommand(&cobra.Command{
		Use:   "create <id> <name>",
		Short: "Create a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close()

			room, err := st.CreateRoom(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("create room %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created room %s (%s)\n", room.ID, room.Name)
			return nil
		},
	})

	return rooms
}
