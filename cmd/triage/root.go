package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/comigor/triage-go/internal/config"
	"github.com/comigor/triage-go/internal/logger"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "triage",
		Short:         "Healthcare triage chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger.SetLevel(cfg.Log.Level)
			// stdout belongs to the REPL and to admin output
			logger.SetOutput(cfg.Log.Format, os.Stderr)
			a.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("log.level", "", "log level: debug, info, warn, error")
	pf.String("log.format", "", "log format: json, console")
	pf.String("backend.kind", "", "conversation backend: webhook, llm")
	pf.String("backend.url", "", "webhook endpoint of the conversation server")
	pf.Duration("backend.timeout", 0, "timeout of a single backend exchange")
	pf.String("history.db_path", "", "sqlite file for transcripts (empty keeps them in memory)")
	pf.String("calendar.timezone", "", "IANA timezone used by the booking calendar")
	pf.String("store.base_url", "", "document store base URL")

	chat := newChatCmd(a)
	root.RunE = chat.RunE
	root.AddCommand(chat, newAdminCmd(a))
	return root
}
