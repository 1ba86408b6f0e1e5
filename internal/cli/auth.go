package cli

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth <login|logout|status|whoami>",
		Short: "Bearer token for the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usage("usage: todo auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(
		&cobra.Command{Use: "login", Short: "Store a token", Args: cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error { return authLogin(a) }},
		&cobra.Command{Use: "logout", Short: "Forget the stored token", Args: cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error { return authLogout(a) }},
		&cobra.Command{Use: "status", Short: "Show where the token comes from", Args: cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error { return authStatus(a) }},
		&cobra.Command{Use: "whoami", Short: "Decode the token payload", Args: cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error { return authWhoAmI(a) }},
	)
	return cmd
}

func authLogin(a *app) error {
	fmt.Fprint(a.io.Out, "Paste your token: ")
	line, err := bufio.NewReader(a.io.In).ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		return failed(fmt.Errorf("read token: %w", err))
	}
	fmt.Fprintln(a.io.Out)
	if err := a.cfg.Credentials().SetToken(line, nil); err != nil {
		return failed(fmt.Errorf("save token: %w", err))
	}
	ui.OK(a.io.Out, "logged in")
	return nil
}

func authLogout(a *app) error {
	creds := a.cfg.Credentials()
	ti, _ := creds.Token()
	if ti != nil && ti.Source == "env" {
		ui.OK(a.io.Out, "token is provided by TADA_TOKEN env var (nothing to delete)")
		return nil
	}
	if err := creds.DeleteToken(); err != nil {
		return failed(fmt.Errorf("logout: %w", err))
	}
	ui.OK(a.io.Out, "logged out")
	return nil
}

func authStatus(a *app) error {
	ti, err := a.cfg.Credentials().Token()
	if err != nil {
		return failed(err)
	}
	w := a.io.Out
	if ti == nil {
		fmt.Fprintln(w, a.theme.Muted.Render("not logged in"))
		fmt.Fprintln(w, "Run: todo auth login")
		return nil
	}
	fmt.Fprintf(w, "source: %s\n", ti.Source)
	if ti.ExpiresAt != nil {
		fmt.Fprintf(w, "expires: %s\n", ti.ExpiresAt.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintln(w, "expires: (unknown)")
	}
	fmt.Fprintln(w, "env override: TADA_TOKEN")
	return nil
}

// whoami decodes a JWT payload locally (unverified); opaque tokens print basic info.
func authWhoAmI(a *app) error {
	ti, _ := a.cfg.Credentials().Token()
	if ti == nil {
		return usage("not logged in. Run: todo auth login")
	}
	w := a.io.Out
	if parts := strings.Split(ti.Token, "."); len(parts) == 3 {
		if p, err := decodeB64URL(parts[1]); err == nil {
			fmt.Fprintln(w, "JWT payload:")
			fmt.Fprintln(w, p)
			return nil
		}
	}
	fmt.Fprintln(w, "Opaque token (cannot introspect locally).")
	fmt.Fprintln(w, "source:", ti.Source)
	return nil
}

func decodeB64URL(s string) (string, error) {
	dec, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(dec), nil
}
