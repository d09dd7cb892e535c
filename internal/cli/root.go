// Package cli implements sitectl, the command-line host of the Document
// Store. Every command opens a session from the config file, runs one
// operation and closes the session again.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-archive/tessera/internal/config"
	"github.com/tessera-archive/tessera/internal/session"
)

// Version is the sitectl release.
const Version = "2.0.0"

const defaultConfigPath = "tessera.yaml"

type app struct {
	cfgFile string
	mode    string

	cfg      *config.Config
	sessOpts []session.Option
	sess     *session.Session
}

// Option customizes the root command.
type Option func(*app)

// WithConfig skips config file loading and uses cfg.
func WithConfig(cfg *config.Config) Option {
	return func(a *app) { a.cfg = cfg }
}

// WithSessionOptions forwards opts to session.Open.
func WithSessionOptions(opts ...session.Option) Option {
	return func(a *app) { a.sessOpts = append(a.sessOpts, opts...) }
}

// Execute runs sitectl with os.Args.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// NewRootCommand builds the command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "sitectl",
		Short:         "Edit and publish a Tessera site document",
		Long:          `sitectl edits the site document in the local cache and synchronizes it with the GitHub repository that publishes it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is $TESSERA_CONFIG or ./"+defaultConfigPath+")")
	root.PersistentFlags().StringVar(&a.mode, "mode", "",
		"session mode: authoring or visitor (overrides the config file)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sitectl version %s\n", Version)
		},
	})

	root.AddCommand(
		a.sessionCommand(newStatusCommand),
		a.sessionCommand(newSetCommand),
		a.sessionCommand(newTokenCommand),
		a.sessionCommand(newPullCommand),
		a.sessionCommand(newPushCommand),
		a.sessionCommand(newUploadCommand),
		a.sessionCommand(newArchiveCommand),
		a.sessionCommand(newHistoryCommand),
		a.sessionCommand(newRestoreCommand),
		a.sessionCommand(newEnhanceCommand),
		a.sessionCommand(newPostCommand),
		a.sessionCommand(newAnnouncementCommand),
		a.sessionCommand(newMessageCommand),
	)

	return root
}

// sessionCommand opens the session before cmd and its children run and
// closes it afterwards, whether or not the command failed.
func (a *app) sessionCommand(build func(*app) *cobra.Command) *cobra.Command {
	cmd := build(a)
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.open(cmd.Context())
	}
	a.closeAfterRun(cmd)
	return cmd
}

// closeAfterRun wraps every RunE under cmd. cobra skips post-run hooks
// when RunE fails, so the close cannot live in PersistentPostRunE.
func (a *app) closeAfterRun(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args)
			return errors.Join(err, a.close())
		}
	}
	for _, child := range cmd.Commands() {
		a.closeAfterRun(child)
	}
}

func (a *app) open(ctx context.Context) error {
	cfg := a.cfg
	if cfg == nil {
		var err error
		path := a.cfgFile
		if path == "" {
			path = config.GetConfigPath(defaultConfigPath)
		}
		if cfg, err = config.LoadFile(path); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	if a.mode != "" {
		cfg.Session.Mode = config.SessionMode(a.mode)
	}

	sess, err := session.Open(ctx, cfg, a.sessOpts...)
	if err != nil {
		return err
	}
	a.sess = sess
	return nil
}

func (a *app) close() error {
	if a.sess == nil {
		return nil
	}
	err := a.sess.Close()
	a.sess = nil
	return err
}
