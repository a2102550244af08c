package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/teemow/calgateway/internal/logging"
	"github.com/teemow/calgateway/internal/token"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Acquire a credential and show its status",
		Long: `Authenticate against the upstream API with the configured client id and
secret and print the credential type and expiry. The token itself is never
printed, only its length.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := clientsForCommand(cmd)
			if err != nil {
				return err
			}
			return runToken(cmd, c.tokens, time.Now)
		},
	}
}

func runToken(cmd *cobra.Command, cache *token.Cache, now func() time.Time) error {
	tok, err := cache.TokenSource(cmd.Context()).Token()
	if err != nil {
		return err
	}
	printTokenStatus(cmd.OutOrStdout(), tok, now())
	return nil
}

func printTokenStatus(w io.Writer, tok *oauth2.Token, now time.Time) {
	fmt.Fprintf(w, "Token:      %s\n", logging.SanitizeToken(tok.AccessToken))
	fmt.Fprintf(w, "Type:       %s\n", tok.Type())
	fmt.Fprintf(w, "Expires at: %s (in %s)\n", tok.Expiry.Format(time.RFC3339), tok.Expiry.Sub(now).Round(time.Second))
}
