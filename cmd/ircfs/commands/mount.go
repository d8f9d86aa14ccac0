package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/irc.v4"

	"github.com/marmos91/ircfs/internal/adapter/ircfuse"
	"github.com/marmos91/ircfs/internal/logger"
	"github.com/marmos91/ircfs/pkg/bridge"
	"github.com/marmos91/ircfs/pkg/config"
	"github.com/marmos91/ircfs/pkg/metrics"
	"github.com/marmos91/ircfs/pkg/tree"
)

var (
	flagServer      string
	flagPort        uint16
	flagNick        string
	flagRealname    string
	flagPasswordEnv string
	flagSSL         bool
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Connect to the IRC server and mount the filesystem",
	Long: `Connect to the configured IRC server and expose the session at the
given mountpoint. The command runs in the foreground until the
filesystem is unmounted or the process receives SIGINT/SIGTERM.

Examples:
  # Mount with a config file
  ircfs mount ~/irc

  # Flags override the config file
  ircfs mount --server irc.libera.chat --ssl --nick mynick ~/irc

  # Read the server password from the environment
  IRC_PASS=secret ircfs mount --password-env IRC_PASS ~/irc`,
	Args: cobra.ExactArgs(1),
	RunE: runMount,
}

func init() {
	mountCmd.Flags().StringVar(&flagServer, "server", "", "IRC server host")
	mountCmd.Flags().Uint16Var(&flagPort, "port", 0, "IRC server port")
	mountCmd.Flags().StringVar(&flagNick, "nick", "", "nickname")
	mountCmd.Flags().StringVar(&flagRealname, "realname", "", "real name")
	mountCmd.Flags().StringVar(&flagPasswordEnv, "password-env", "", "environment variable holding the server password")
	mountCmd.Flags().BoolVar(&flagSSL, "ssl", false, "connect with TLS")
}

// applyFlags folds the mount command's flags over the loaded file
// configuration. Flags win.
func applyFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if flagServer != "" {
			cfg.IRC.Server = flagServer
		}
		if flagPort != 0 {
			cfg.IRC.Port = flagPort
		}
		if flagNick != "" {
			cfg.IRC.Nickname = flagNick
		}
		if flagRealname != "" {
			cfg.IRC.Realname = flagRealname
		}
		if flagPasswordEnv != "" {
			cfg.IRC.PasswordEnv = flagPasswordEnv
		}
		if cmd.Flags().Changed("ssl") {
			cfg.IRC.UseSSL = flagSSL
		}
	}
}

func runMount(cmd *cobra.Command, args []string) error {
	mountpoint := args[0]

	cfg, err := config.MustLoad(GetConfigFile(), applyFlags(cmd))
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	sessionID := uuid.NewString()[:8]
	log := logger.With(logger.KeySession, sessionID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The tree is owned by the mounting user; every node inherits these
	// ids.
	tr := tree.New(uint32(os.Getuid()), uint32(os.Getgid()))

	// The handler closure runs on the session's read loop; the bridge is
	// in place before Run starts it.
	var b *bridge.Bridge
	handler := irc.HandlerFunc(func(c *irc.Client, m *irc.Message) {
		b.HandleMessage(m)
	})

	session, err := bridge.Dial(ctx, &cfg.IRC, handler)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.IRC.Addr(), err)
	}
	defer session.Close()

	b = bridge.New(tr, session, &cfg.IRC)
	b.Start(ctx)

	fs := ircfuse.NewFileSystem(tr, b, cfg.IRC.Channels)
	server, err := ircfuse.Mount(mountpoint, fs)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(cfg.Metrics.ListenAddress); err != nil {
				log.Warn("metrics listener failed", logger.KeyError, err)
			}
		}()
	}

	go func() {
		if err := session.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("connection lost", logger.KeyError, err)
		}
		stop()
	}()

	// Unmount when the context ends so Serve returns.
	go func() {
		<-ctx.Done()
		if err := server.Unmount(); err != nil {
			log.Warn("unmount failed, still serving", logger.KeyError, err)
		}
	}()

	log.Info("mounted",
		logger.KeyServer, cfg.IRC.Addr(),
		logger.KeyNick, cfg.IRC.Nickname,
		logger.KeyPath, mountpoint)

	server.Serve()
	stop()
	b.Wait()

	log.Info("unmounted", logger.KeyPath, mountpoint)
	return nil
}
