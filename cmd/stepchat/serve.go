package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/mcpserver"
	"github.com/hammamikhairi/stepchat/internal/telegram"
)

func newTelegramCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Run the Telegram bot",
		Long:  "Long-poll Telegram for messages. The bot token comes from TELEGRAM_BOT_TOKEN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags, true, false, "")
		},
	}
}

func newMCPCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the conversation as MCP tools over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags, false, true, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newServeCmd(flags *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the MCP endpoint together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags, true, true, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "MCP listen address (overrides config)")
	return cmd
}

// serve runs the requested transports plus the reaper until interrupted
// or until one of them fails.
func serve(parent context.Context, flags *rootFlags, withTelegram, withMCP bool, addr string) error {
	a, err := newApp(flags, appOptions{defaultLogFile: "stderr"})
	if err != nil {
		return err
	}
	defer a.Close()

	if withTelegram {
		if err := a.cfg.RequireTelegram(); err != nil {
			return err
		}
	}
	if addr == "" {
		addr = a.cfg.MCP.Addr
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	var bot *telegram.Bot
	if withTelegram {
		bot, err = telegram.New(a.cfg.Telegram.Token, a.router, a.log.Named("telegram"),
			telegram.WithPollTimeout(a.cfg.Telegram.PollTimeout),
		)
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.Run(gctx) })
	}
	if withMCP {
		srv := mcpserver.New(addr, version, a.engine, a.router, a.log.Named("mcp"))
		g.Go(func() error { return srv.Run(gctx) })
	}

	var onExpire []func(context.Context, *domain.Session)
	if bot != nil {
		onExpire = append(onExpire, bot.SessionExpired)
	}
	r := a.newReaper(onExpire...)
	g.Go(func() error { return r.Run(gctx) })

	a.log.Info("stepchat %s serving (telegram=%t, mcp=%t)", version, withTelegram, withMCP)
	err = g.Wait()
	a.log.Info("stepchat stopped")
	return err
}
