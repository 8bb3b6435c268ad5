package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	taskhubsdk "taskhub/sdk/go"
)

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in to the server and store the session token in the workspace .env",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				s, err := c.Login(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := setEnvValue(envPath(viper.GetString("workspace")), sessionEnvKey, s.Token); err != nil {
					return err
				}
				if err := os.Setenv(sessionEnvKey, s.Token); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, s)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s) until %s\n", s.User.Username, s.User.Role, s.ExpiresAt)
				return nil
			})
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setEnvValue(envPath(viper.GetString("workspace")), sessionEnvKey, ""); err != nil {
				return err
			}
			if err := os.Unsetenv(sessionEnvKey); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *taskhubsdk.Client) error {
				s, err := c.Me(cmd.Context())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd, s.User)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", s.User.Username, s.User.FullName, s.User.Role)
				if len(s.Permissions) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "permissions: %s\n", strings.Join(s.Permissions, ", "))
				}
				return nil
			})
		},
	}
}
