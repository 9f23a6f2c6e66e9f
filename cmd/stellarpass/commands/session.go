package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stellarpass/stellarpass/internal/identity"
)

func (c *cli) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register [username]",
		Short: "Create an account secured by a passkey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := c.core.Manager.Register(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printIdentity(cmd, id)
			return nil
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with the stored passkey",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := c.core.Manager.Login(cmd.Context())
			if err != nil {
				return err
			}
			printIdentity(cmd, id)
			return nil
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.core.Manager.Logout(cmd.Context())
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.core.Manager.Session()
			out := cmd.OutOrStdout()
			if s.CurrentIdentity == nil {
				fmt.Fprintln(out, "not signed in")
				return nil
			}
			printIdentity(cmd, *s.CurrentIdentity)
			fmt.Fprintf(out, "passkeys supported: %t\n", s.CredentialSupported)
			return nil
		},
	}
}

func printIdentity(cmd *cobra.Command, id identity.Identity) {
	out := cmd.OutOrStdout()
	kind := "simulated"
	if id.IsPasskeyEnabled {
		kind = "platform"
	}
	fmt.Fprintf(out, "username: %s\n", id.Username)
	fmt.Fprintf(out, "address:  %s\n", id.StellarAddress)
	fmt.Fprintf(out, "passkey:  %s (%s)\n", id.CredentialID, kind)
}
