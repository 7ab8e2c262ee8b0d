package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/teemow/inboxshelf/internal/config"
	"github.com/teemow/inboxshelf/internal/google"
	"github.com/teemow/inboxshelf/internal/imapmail"
	"github.com/teemow/inboxshelf/internal/instrumentation"
	"github.com/teemow/inboxshelf/internal/logging"
)

func newAuthCmd(opts *globalOptions) *cobra.Command {
	var (
		clientID     string
		clientSecret string
		redirectURL  string
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Obtain a Gmail refresh token",
		Long: `Run the OAuth consent flow for Gmail and print the refresh token.

Open the printed URL in a browser and grant access. The command listens on
the redirect URL for the callback and prints a line to add to your .env:

  GMAIL_REFRESH_TOKEN=...

The client id and secret default to GMAIL_CLIENT_ID and GMAIL_CLIENT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			if clientID == "" {
				clientID = cfg.Gmail.ClientID
			}
			if clientSecret == "" {
				clientSecret = cfg.Gmail.ClientSecret
			}
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("%w: GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET", config.ErrMissingCredentials)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return runGmailAuth(ctx, google.Config(clientID, clientSecret, redirectURL), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client id")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "OAuth client secret")
	cmd.Flags().StringVar(&redirectURL, "redirect-url", google.DefaultRedirectURL, "OAuth redirect URL registered for the client")

	cmd.AddCommand(newAuthIMAPCmd(opts))
	return cmd
}

func runGmailAuth(ctx context.Context, conf *oauth2.Config, out io.Writer) error {
	provider, _, stopInstrumentation, err := startInstrumentation(ctx, slog.Default())
	if err != nil {
		return err
	}
	defer stopInstrumentation()

	flow := &google.AuthFlow{
		Config:  conf,
		Timeout: google.DefaultAuthTimeout,
		OnAuthURL: func(authURL string) {
			fmt.Fprintf(out, "Open this URL in your browser to authorize Gmail access:\n\n  %s\n\n", authURL)
		},
		Logger: slog.Default(),
	}
	token, err := flow.Run(ctx)
	if err != nil {
		provider.Metrics().RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return err
	}
	provider.Metrics().RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	fmt.Fprintln(out, "Authorization complete. Add this line to your .env:")
	fmt.Fprintf(out, "\nGMAIL_REFRESH_TOKEN=%s\n", token.RefreshToken)
	return nil
}

func newAuthIMAPCmd(opts *globalOptions) *cobra.Command {
	var (
		addr     string
		username string
		remove   bool
	)

	cmd := &cobra.Command{
		Use:   "imap",
		Short: "Store the IMAP password in the system keyring",
		Long: `Store the IMAP password in the system keyring so IMAP_PASSWORD can be
left unset. The password is read from the terminal without echo, or from
the first line of stdin when it is not a terminal.

The address and username default to IMAP_ADDR and IMAP_USERNAME.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.IMAP.Addr
			}
			if username == "" {
				username = cfg.IMAP.Username
			}
			if addr == "" || username == "" {
				return fmt.Errorf("%w: IMAP_ADDR, IMAP_USERNAME", config.ErrMissingCredentials)
			}

			out := cmd.OutOrStdout()
			if remove {
				if err := imapmail.DeletePassword(username, addr); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed password for %s\n", imapmail.KeyringAccount(username, addr))
				return nil
			}

			fmt.Fprintf(out, "Password for %s: ", imapmail.KeyringAccount(username, addr))
			password, err := readPassword(cmd.InOrStdin())
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			if err := imapmail.StorePassword(username, addr, password); err != nil {
				return err
			}
			slog.Info("stored IMAP password", logging.UserHash(username))
			fmt.Fprintln(out, "Password stored in the system keyring.")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "IMAP server address (host:port)")
	cmd.Flags().StringVar(&username, "username", "", "IMAP username")
	cmd.Flags().BoolVar(&remove, "delete", false, "Remove the stored password instead")
	return cmd
}

// readPassword reads without echo from a terminal, otherwise one line from in.
func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password")
	}
	return password, nil
}
