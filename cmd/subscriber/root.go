package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/juhojo/blabbermouth/internal/logging"
	"github.com/juhojo/blabbermouth/pkg/client"
	"github.com/spf13/cobra"
)

var (
	serverAddr string
	configKey  string
	once       bool
	asEnv      bool
)

var rootCmd = &cobra.Command{
	Use:   "subscriber [url]",
	Short: "Stream live config updates from a blabbermouth server",
	Long: `subscriber connects to the blabbermouth WebSocket endpoint with a
config's capability key and prints every update as it arrives.

Pass either a full URL (ws://localhost:3001/?ck=<key>) or --server and --ck.
BLABBERMOUTH_WS and BLABBERMOUTH_CK are read from the environment or a .env file.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := subscriptionURL(args)
		if err != nil {
			return err
		}

		log := logging.NewWithWriter(cmd.ErrOrStderr(), false)
		c, err := client.New(raw, client.WithLogger(log))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		emit := func(u client.Update) {
			if err := writeUpdate(out, u, asEnv); err != nil {
				log.Error("failed to print update", "error", err)
			}
		}

		if once {
			return c.Subscribe(ctx, emit)
		}
		log.Info("subscribed", slog.String("url", raw))
		return c.Run(ctx, emit)
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.Flags().StringVarP(&serverAddr, "server", "s", envOr("BLABBERMOUTH_WS", "ws://localhost:3001"), "WebSocket server address")
	rootCmd.Flags().StringVarP(&configKey, "ck", "k", os.Getenv("BLABBERMOUTH_CK"), "config capability key")
	rootCmd.Flags().BoolVar(&once, "once", false, "exit when the connection drops instead of reconnecting")
	rootCmd.Flags().BoolVar(&asEnv, "env", false, "print updates as KEY=value lines instead of JSON")
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func subscriptionURL(args []string) (string, error) {
	if len(args) == 1 {
		if _, err := client.ParseURL(args[0]); err != nil {
			return "", err
		}
		return args[0], nil
	}
	if configKey == "" {
		return "", errors.New("a url argument or --ck is required")
	}
	return client.BuildURL(serverAddr, configKey)
}

func writeUpdate(w io.Writer, u client.Update, env bool) error {
	if !env {
		return json.NewEncoder(w).Encode(u)
	}
	if _, err := fmt.Fprintf(w, "# config %d\n", u.ID); err != nil {
		return err
	}
	for _, f := range u.Fields {
		if _, err := fmt.Fprintf(w, "%s=%s\n", f.Key, shellQuote(f.Value)); err != nil {
			return err
		}
	}
	return nil
}

// shellQuote wraps v in single quotes so the --env output can be sourced by
// a POSIX shell whatever the value contains.
func shellQuote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
