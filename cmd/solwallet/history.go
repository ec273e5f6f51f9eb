package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/Klingon-tech/solwallet/internal/node"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/urfave/cli/v2"
)

var historyCmd = cli.Command{
	Name:  "history",
	Usage: "list or re-check sent transactions",
	Subcommands: []*cli.Command{
		{
			Name:  "list",
			Usage: "list the transactions of the active network",
			Action: func(c *cli.Context) error {
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()
				return listHistory(n)
			},
		},
		{
			Name:  "refresh",
			Usage: "re-check pending and failed transactions",
			Action: func(c *cli.Context) error {
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				if err := n.RefreshHistory(c.Context); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				}
				return listHistory(n)
			},
		},
	},
}

func listHistory(n *node.Node) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSTATUS\tAMOUNT\tSIGNATURE")
	for _, h := range n.Store().HistoryFor(n.Network()) {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			h.Timestamp.Local().Format("2006-01-02 15:04"), h.Status, h.AmountLabel, h.Signature)
	}
	return w.Flush()
}

var bookCmd = cli.Command{
	Name:  "book",
	Usage: "manage the address book",
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "save a named address",
			ArgsUsage: "<name> <address>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return fmt.Errorf("usage: book add <name> <address>")
				}
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				b, err := n.AddAddress(c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}
				printJSON(b)
				return nil
			},
		},
		{
			Name:  "list",
			Usage: "list saved addresses",
			Action: func(c *cli.Context) error {
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tADDRESS\tUUID")
				for _, b := range n.Store().AddressBook() {
					fmt.Fprintf(w, "%s\t%s\t%s\n", b.Name, b.Address, b.UUID)
				}
				return w.Flush()
			},
		},
		{
			Name:      "rename",
			Usage:     "rename a saved address",
			ArgsUsage: "<uuid> <name>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 2 {
					return fmt.Errorf("usage: book rename <uuid> <name>")
				}
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				b, err := n.RenameAddress(c.Args().Get(0), c.Args().Get(1))
				if err != nil {
					return err
				}
				printJSON(b)
				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "delete a saved address",
			ArgsUsage: "<uuid>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return fmt.Errorf("usage: book remove <uuid>")
				}
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()
				return n.RemoveAddress(c.Args().First())
			},
		},
	},
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "follow balance changes and prices until interrupted",
	Action: func(c *cli.Context) error {
		n, cleanup, err := openNode()
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := n.Start(ctx); err != nil {
			return err
		}
		if err := n.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-n.Events():
				printEvent(e)
			}
		}
	},
}

func printEvent(e node.Event) {
	switch {
	case !e.OK:
		fmt.Printf("%-12s failed: %s\n", e.Kind, e.Reason)
	case e.Token != nil:
		t := e.Token
		fmt.Printf("%-12s %s %s (%s)\n", e.Kind, types.FormatWithCommas(t.FormattedBalance()), t.Symbol, types.FormatQuote(t.BalanceInQuote))
	case e.History != nil:
		fmt.Printf("%-12s %s %s %s\n", e.Kind, e.History.Status, e.History.AmountLabel, e.History.Signature)
	default:
		fmt.Printf("%-12s ok\n", e.Kind)
	}
}
