// Package cli implements the talkback command line client.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spatalkback/talkback/internal/config"
	"github.com/spatalkback/talkback/pkg/client"
)

type globalFlags struct {
	env       string
	baseURL   string
	tokenFile string
	debug     bool
}

// NewRootCommand builds the talkback command tree.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "talkback",
		Short:         "Command line client for the talk back board",
		Long:          "Read and write posts and comments on a talk back server from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.env, "env", os.Getenv("APP_ENV"), "Deployment to talk to (production selects the hosted API)")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "API base URL, overrides --env")
	root.PersistentFlags().StringVar(&flags.tokenFile, "token-file", defaultTokenFile(), "Where login stores its tokens")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Dump HTTP traffic to stderr")

	root.AddCommand(
		newEndpointsCommand(flags),
		newCaptchaCommand(flags),
		newLoginCommand(flags),
		newLogoutCommand(flags),
		newRegisterCommand(flags),
		newPostsCommand(flags),
		newCommentsCommand(flags),
	)

	return root
}

func (f *globalFlags) apiBaseURL() string {
	if f.baseURL != "" {
		return f.baseURL
	}
	return config.ResolveAPIBaseURL(f.env)
}

func (f *globalFlags) newClient(cmd *cobra.Command) (*client.Client, error) {
	opts := []client.Option{
		client.WithTokenStore(client.NewFileTokenStore(f.tokenFile)),
	}
	if f.debug {
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, client.WithDebugLogging(logger))
	}
	return client.New(f.apiBaseURL(), opts...)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".talkback-tokens.json"
	}
	return filepath.Join(dir, "talkback", "tokens.json")
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}

func openAttachment(path string) (*client.Attachment, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return &client.Attachment{Filename: filepath.Base(path), Content: f}, func() { f.Close() }, nil
}
