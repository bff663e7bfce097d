package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goliatone/go-accountlink/core"
	"github.com/goliatone/go-accountlink/migrations"
	"github.com/spf13/cobra"
)

func newRootCmd(env map[string]string) *cobra.Command {
	flags := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "accountlink",
		Short: "Inspect and manage platform user to remote account links",
		Long: `accountlink manages the identity link store shared by bridge services.

The database is selected with --db or ACCOUNTLINK_DB_PATH. A bare path or
sqlite:// URL selects sqlite, a postgres:// URL selects postgres. Without
either, the per-user sqlite database under $XDG_DATA_HOME is used.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.database, "db", "", "database URL or sqlite path")
	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "log SQL statements")

	rootCmd.AddCommand(migrateCmd(env, flags))
	rootCmd.AddCommand(registerCmd(env, flags))
	rootCmd.AddCommand(listCmd(env, flags))
	rootCmd.AddCommand(lookupCmd(env, flags))
	rootCmd.AddCommand(registeredCmd(env, flags))
	rootCmd.AddCommand(statsCmd(env, flags))
	return rootCmd
}

func withApp(env map[string]string, flags *globalFlags, run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), env, *flags)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return run(cmd, args, a)
	}
}

func migrateCmd(env map[string]string, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the link schema",
		Args:  cobra.NoArgs,
		RunE: withApp(env, flags, func(cmd *cobra.Command, _ []string, a *app) error {
			versions, err := migrations.Versions(a.dialect)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s schema is up to date\n", color.New(color.FgGreen).Sprint("OK"), a.dialect)
			for _, version := range versions {
				fmt.Fprintf(out, "  applied %s\n", version)
			}
			return nil
		}),
	}
}

func registerCmd(env map[string]string, flags *globalFlags) *cobra.Command {
	var account core.RemoteAccount
	cmd := &cobra.Command{
		Use:   "register <platform-user-id>",
		Short: "Link a remote account to a platform user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(env, flags, func(cmd *cobra.Command, args []string, a *app) error {
			result, err := a.service.RegisterLink(cmd.Context(), account, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := color.New(color.FgBlue).Sprint("EXISTS ")
			if result.LinkCreated {
				status = color.New(color.FgGreen).Sprint("LINKED ")
			}
			fmt.Fprintf(out, "%s %s -> %s\n", status, args[0], core.TokenFingerprint(account.Token))
			fmt.Fprintf(out, "  remote account: %s\n", createdLabel(result.RemoteAccountCreated))
			fmt.Fprintf(out, "  platform user:  %s\n", createdLabel(result.PlatformUserCreated))
			return nil
		}),
	}
	cmd.Flags().StringVar(&account.Token, "token", "", "remote account token (required)")
	cmd.Flags().StringVar(&account.RemoteUserID, "remote-user-id", "", "remote user id")
	cmd.Flags().StringVar(&account.RemoteUserName, "remote-user-name", "", "remote user display name")
	cmd.Flags().StringVar(&account.RemoteInstance, "remote-instance", "", "remote instance host")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func listCmd(env map[string]string, flags *globalFlags) *cobra.Command {
	var showTokens bool
	cmd := &cobra.Command{
		Use:   "list <platform-user-id>",
		Short: "List the remote accounts linked to a platform user",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(env, flags, func(cmd *cobra.Command, args []string, a *app) error {
			accounts, err := a.service.ListRemoteAccounts(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				fmt.Fprintln(out, color.New(color.FgYellow).Sprint("(no linked accounts)"))
				return nil
			}
			writeAccounts(out, accounts, showTokens)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&showTokens, "show-tokens", false, "print raw tokens instead of fingerprints")
	return cmd
}

func lookupCmd(env map[string]string, flags *globalFlags) *cobra.Command {
	var instance string
	cmd := &cobra.Command{
		Use:   "lookup <remote-user-id>",
		Short: "Resolve the platform user linked to a remote user id",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(env, flags, func(cmd *cobra.Command, args []string, a *app) error {
			platformUserID, err := a.service.LookupPlatformUserOnInstance(cmd.Context(), instance, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), platformUserID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&instance, "instance", "", "restrict the lookup to one remote instance")
	return cmd
}

func registeredCmd(env map[string]string, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "registered <remote-user-id>",
		Short: "Report whether any remote account carries the remote user id",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(env, flags, func(cmd *cobra.Command, args []string, a *app) error {
			registered, err := a.service.IsRemoteUserRegistered(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if registered {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("yes"))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgRed).Sprint("no"))
			}
			return nil
		}),
	}
}

func statsCmd(env map[string]string, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show row counts",
		Args:  cobra.NoArgs,
		RunE: withApp(env, flags, func(cmd *cobra.Command, _ []string, a *app) error {
			stats, err := a.service.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "remote accounts: %d\n", stats.RemoteAccounts)
			fmt.Fprintf(out, "platform users:  %d\n", stats.PlatformUsers)
			fmt.Fprintf(out, "links:           %d\n", stats.Links)
			return nil
		}),
	}
}

func writeAccounts(out io.Writer, accounts []core.LinkedAccount, showTokens bool) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tINSTANCE\tTOKEN\tUSER NAME")
	for _, account := range accounts {
		token := core.TokenFingerprint(account.Token)
		if showTokens {
			token = account.Token
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			placeholder(account.RemoteUserID),
			placeholder(account.RemoteInstance),
			token,
			placeholder(account.RemoteUserName),
		)
	}
	_ = w.Flush()
}

func createdLabel(created bool) string {
	if created {
		return color.New(color.FgGreen).Sprint("created")
	}
	return "existing"
}

func placeholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
