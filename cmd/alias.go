package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/NitronPlus/hostpilot/cmd/utils"
	"github.com/NitronPlus/hostpilot/internal/transfer"
	"github.com/NitronPlus/hostpilot/pkg/config"
	"github.com/NitronPlus/hostpilot/pkg/models"
	utilpool "github.com/NitronPlus/hostpilot/pkg/utils"
	"github.com/spf13/cobra"
)

// newCmdAlias is the flat alias -> (host, identity) registry command,
// replacing the teacher's separate node/host/identity trio with a single
// named entry since hostpilot's only user of the registry is ts's alias:path
// addressing.
func newCmdAlias() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alias",
		Aliases: []string{"host"},
		Short:   "Manage the remote host alias registry",
		Long:    `alias stores the host, port, and credentials behind a short name so ts can reference a remote as alias:path.`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.AddCommand(newCmdAliasAdd())
	cmd.AddCommand(newCmdAliasList())
	cmd.AddCommand(newCmdAliasDelete())
	cmd.AddCommand(newCmdAliasCheck())

	return cmd
}

func openConfigStore() (config.Store, *config.Configuration, error) {
	store := config.NewDefaultStore(utils.GetConfigFilePath())
	cfg, err := store.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading alias registry: %w", err)
	}
	return store, cfg, nil
}

func newCmdAliasAdd() *cobra.Command {
	var (
		user     string
		host     string
		port     int
		password bool
		keyPath  string
		keyPass  string
	)

	cmd := &cobra.Command{
		Use:   "add <alias>",
		Short: "Add a new alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]
			if host == "" {
				return fmt.Errorf("--host is required")
			}

			store, cfg, err := openConfigStore()
			if err != nil {
				return err
			}
			provider := config.NewProvider(cfg)
			if _, ok := provider.GetNode(alias); ok {
				return fmt.Errorf("alias %q already exists", alias)
			}

			if user == "" {
				user = utils.GetCurrentUser()
			}
			if port == 0 {
				port = 22
			}

			identity := models.Identity{User: user}
			if keyPath != "" {
				identity.KeyPath = keyPath
				identity.Passphrase = keyPass
				identity.AuthType = "key"
			} else if password {
				pw, err := utils.ReadPasswordFromTerminal("Password: ")
				if err != nil {
					return fmt.Errorf("reading password: %w", err)
				}
				identity.Password = pw
				identity.AuthType = "password"
			} else {
				identity.AuthType = "key"
			}

			provider.AddHost(alias, models.Host{Address: host, Port: port})
			provider.AddIdentity(alias, identity)
			provider.AddNode(alias, models.Node{HostRef: alias, IdentityRef: alias})

			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("added alias %s (%s@%s:%d)\n", alias, identity.User, host, port)
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "remote username (defaults to the current OS user)")
	cmd.Flags().StringVar(&host, "host", "", "remote address or hostname")
	cmd.Flags().IntVarP(&port, "port", "p", 22, "remote SSH port")
	cmd.Flags().BoolVar(&password, "password", false, "prompt for a password instead of using key auth")
	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "path to a private key file")
	cmd.Flags().StringVarP(&keyPass, "key-pass", "w", "", "passphrase for the private key")

	return cmd
}

func newCmdAliasList() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := openConfigStore()
			if err != nil {
				return err
			}
			provider := config.NewProvider(cfg)
			nodes := provider.ListNodes()
			if len(nodes) == 0 {
				fmt.Println("no aliases configured")
				return nil
			}

			keys := make([]string, 0, len(nodes))
			for k := range nodes {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tUSER\tHOST\tPORT\tAUTH")
			for _, alias := range keys {
				host, _ := provider.GetHost(alias)
				identity, _ := provider.GetIdentity(alias)
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", alias, identity.User, host.Address, host.Port, identity.AuthType)
			}
			return w.Flush()
		},
	}
}

func newCmdAliasDelete() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <alias>",
		Short: "Delete a stored alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[0]
			store, cfg, err := openConfigStore()
			if err != nil {
				return err
			}
			provider := config.NewProvider(cfg)
			if _, ok := provider.GetNode(alias); !ok {
				return fmt.Errorf("alias %q not found", alias)
			}
			provider.DeleteNode(alias)
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("deleted alias %s\n", alias)
			return nil
		},
	}
}

// newCmdAliasCheck dials every stored alias concurrently, bounded by a
// worker pool, and reports which ones are reachable.
func newCmdAliasCheck() *cobra.Command {
	var concurrency uint

	cmd := &cobra.Command{
		Use:   "check [alias...]",
		Short: "Check reachability of one, several, or all stored aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := openConfigStore()
			if err != nil {
				return err
			}
			provider := config.NewProvider(cfg)
			registry := transfer.NewProviderRegistry(provider)

			var aliases []string
			if len(args) > 0 {
				aliases = args
			} else {
				for alias := range provider.ListNodes() {
					aliases = append(aliases, alias)
				}
			}
			sort.Strings(aliases)
			if len(aliases) == 0 {
				fmt.Println("no aliases configured")
				return nil
			}

			type result struct {
				alias string
				ok    bool
				err   error
			}
			results := make(chan result, len(aliases))

			pool := utilpool.NewWorkerPool(concurrency)
			for _, alias := range aliases {
				alias := alias
				pool.Execute(func() {
					entry, ok := registry.Lookup(alias)
					if !ok {
						results <- result{alias: alias, err: fmt.Errorf("not found")}
						return
					}
					ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
					defer cancel()
					client, err := transfer.BuildSession(ctx, entry)
					if err != nil {
						results <- result{alias: alias, err: err}
						return
					}
					client.Close()
					results <- result{alias: alias, ok: true}
				})
			}
			pool.Wait()
			close(results)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ALIAS\tSTATUS")
			failed := 0
			byAlias := map[string]result{}
			for r := range results {
				byAlias[r.alias] = r
			}
			for _, alias := range aliases {
				r := byAlias[alias]
				if r.ok {
					fmt.Fprintf(w, "%s\tok\n", alias)
					continue
				}
				failed++
				fmt.Fprintf(w, "%s\tfailed: %v\n", alias, r.err)
			}
			w.Flush()

			if failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().UintVarP(&concurrency, "concurrency", "c", 5, "max concurrent dial attempts")
	return cmd
}

func init() {
	rootCmd.AddCommand(newCmdAlias())
}
