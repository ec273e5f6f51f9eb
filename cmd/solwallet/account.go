package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Klingon-tech/solwallet/config"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/urfave/cli/v2"
)

var accountCmd = cli.Command{
	Name:  "account",
	Usage: "manage accounts",
	Subcommands: []*cli.Command{
		{
			Name:  "new",
			Usage: "derive a new account",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "name", Usage: "display name"},
			},
			Action: accountNewAction,
		},
		{
			Name:   "list",
			Usage:  "list accounts",
			Action: accountListAction,
		},
		{
			Name:      "rename",
			Usage:     "rename an account",
			ArgsUsage: "<uuid> <name>",
			Action:    accountRenameAction,
		},
		{
			Name:      "remove",
			Usage:     "remove an inactive account and its tokens",
			ArgsUsage: "<uuid>",
			Action:    accountRemoveAction,
		},
		{
			Name:      "use",
			Usage:     "make an account active",
			ArgsUsage: "<uuid>",
			Action:    accountUseAction,
		},
	},
}

func accountNewAction(c *cli.Context) error {
	n, cleanup, err := openNode()
	if err != nil {
		return err
	}
	defer cleanup()

	pw, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	defer wallet.Wipe(pw)

	a, err := n.CreateAccount(pw, c.String("name"))
	if err != nil {
		return err
	}
	printJSON(a)
	return nil
}

func accountListAction(c *cli.Context) error {
	n, cleanup, err := openNode()
	if err != nil {
		return err
	}
	defer cleanup()

	active, _ := n.ActiveAccount()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tINDEX\tADDRESS\tUUID")
	for _, a := range n.Store().Accounts() {
		mark := ""
		if a.UUID == active.UUID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", mark, a.Name, a.DeriveIndex, a.Address, a.UUID)
	}
	return w.Flush()
}

func accountRenameAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: account rename <uuid> <name>")
	}
	n, cleanup, err := openNode()
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := n.RenameAccount(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	printJSON(a)
	return nil
}

func accountRemoveAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: account remove <uuid>")
	}
	n, cleanup, err := openNode()
	if err != nil {
		return err
	}
	defer cleanup()

	if !confirm("Remove the account and its token list?") {
		return nil
	}
	return n.RemoveAccount(c.Args().First())
}

func accountUseAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: account use <uuid>")
	}
	n, cleanup, err := openNode()
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := n.SwitchAccount(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Printf("Active account: %s (%s)\n", a.Name, a.Address)
	return nil
}

var networkCmd = cli.Command{
	Name:      "network",
	Usage:     "show or set the active network",
	ArgsUsage: "[main|test|dev]",
	Action: func(c *cli.Context) error {
		if c.NArg() == 0 {
			for _, nw := range types.Networks() {
				mark := " "
				if nw == cfg.Network {
					mark = "*"
				}
				ep := cfg.Endpoints.For(nw)
				fmt.Printf("%s %-5s %s\n", mark, nw, ep.RPC)
			}
			return nil
		}
		nw, err := types.ParseNetwork(c.Args().First())
		if err != nil {
			return err
		}
		path := c.String("config")
		if path == "" {
			path = cfg.ConfigFile()
		}
		if err := config.EnsureDataDirs(cfg); err != nil {
			return err
		}
		if err := config.SaveNetwork(path, nw); err != nil {
			return err
		}
		fmt.Printf("Active network: %s\n", nw)
		return nil
	},
}
