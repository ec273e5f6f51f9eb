package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/Klingon-tech/solwallet/internal/node"
	"github.com/Klingon-tech/solwallet/internal/state"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/urfave/cli/v2"
)

var balanceCmd = cli.Command{
	Name:  "balance",
	Usage: "show the balances of the active account",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "cached", Usage: "do not refresh from the network"},
	},
	Action: func(c *cli.Context) error {
		n, cleanup, err := openNode()
		if err != nil {
			return err
		}
		defer cleanup()

		account, err := n.ActiveAccount()
		if err != nil {
			return err
		}
		if !c.Bool("cached") {
			if err := n.Refresh(c.Context); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}

		fmt.Printf("%s  %s  (%s)\n\n", account.Name, account.Address, n.Network())
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tBALANCE\tVALUE\tMINT\tUUID")
		for _, t := range n.Store().TokensFor(n.Network(), account.Address) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.Symbol, types.FormatWithCommas(t.FormattedBalance()),
				types.FormatQuote(t.BalanceInQuote), t.MintAddress, t.UUID)
		}
		return w.Flush()
	},
}

var tokenCmd = cli.Command{
	Name:  "token",
	Usage: "manage the token list of the active account",
	Subcommands: []*cli.Command{
		{
			Name:      "add",
			Usage:     "add a token by mint address",
			ArgsUsage: "<mint>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "feed", Usage: "price feed id"},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return fmt.Errorf("usage: token add <mint>")
				}
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				t, err := n.AddToken(c.Context, c.Args().First(), c.String("feed"))
				if err != nil {
					return err
				}
				printJSON(t)
				return nil
			},
		},
		{
			Name:  "discover",
			Usage: "add every token the active account holds",
			Action: func(c *cli.Context) error {
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				added, err := n.DiscoverTokens(c.Context)
				if err != nil {
					return err
				}
				printJSON(added)
				return nil
			},
		},
		{
			Name:      "remove",
			Usage:     "remove a token entry",
			ArgsUsage: "<uuid>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return fmt.Errorf("usage: token remove <uuid>")
				}
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()
				return n.RemoveToken(c.Args().First())
			},
		},
		{
			Name:      "holders",
			Usage:     "count the token accounts of a mint",
			ArgsUsage: "<mint>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return fmt.Errorf("usage: token holders <mint>")
				}
				n, cleanup, err := openNode()
				if err != nil {
					return err
				}
				defer cleanup()

				count, err := n.TokenHolders(c.Context, c.Args().First())
				if err != nil {
					return err
				}
				fmt.Println(count)
				return nil
			},
		},
	},
}

var transferFlags = []cli.Flag{
	&cli.StringFlag{Name: "to", Usage: "recipient address", Required: true},
	&cli.StringFlag{Name: "amount", Usage: "amount in display units, e.g. 1.5", Required: true},
	&cli.StringFlag{Name: "token", Usage: "token entry uuid (default: native)"},
	&cli.StringFlag{Name: "memo", Usage: "memo attached to the transfer"},
	&cli.StringFlag{Name: "priority", Usage: "prioritization fee level: none, low, medium, high", Value: "none"},
}

// transferRequest builds a SendRequest from the transfer flags, looking up
// the priority fee level when one is asked for.
func transferRequest(ctx context.Context, c *cli.Context, n *node.Node) (node.SendRequest, error) {
	req := node.SendRequest{
		TokenID:   c.String("token"),
		Recipient: c.String("to"),
		Amount:    c.String("amount"),
		Memo:      c.String("memo"),
	}
	level := c.String("priority")
	if level == "none" || level == "" {
		return req, nil
	}
	fees, err := n.RefreshFees(ctx)
	if err != nil {
		return req, err
	}
	switch level {
	case "low":
		req.PriorityFee = fees.Low
	case "medium":
		req.PriorityFee = fees.Medium
	case "high":
		req.PriorityFee = fees.High
	default:
		return req, fmt.Errorf("unknown priority %q", level)
	}
	return req, nil
}

var feeCmd = cli.Command{
	Name:  "fee",
	Usage: "estimate the fee of a transfer",
	Flags: transferFlags,
	Action: func(c *cli.Context) error {
		n, cleanup, err := openNode()
		if err != nil {
			return err
		}
		defer cleanup()

		req, err := transferRequest(c.Context, c, n)
		if err != nil {
			return err
		}
		est, err := n.EstimateFee(c.Context, req)
		if err != nil {
			return err
		}
		printFee(est)
		return nil
	},
}

func printFee(est node.FeeEstimate) {
	fmt.Printf("Fee:   %s SOL (%d lamports)\n", types.FormatNativeAmount(est.Fee), est.Fee)
	if est.AccountRent > 0 {
		fmt.Printf("Rent:  %s SOL for the recipient's token account\n", types.FormatNativeAmount(est.AccountRent))
		fmt.Printf("Total: %s SOL\n", types.FormatNativeAmount(est.Total()))
	}
}

var sendCmd = cli.Command{
	Name:  "send",
	Usage: "send native currency or a token from the active account",
	Flags: append([]cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	}, transferFlags...),
	Action: func(c *cli.Context) error {
		n, cleanup, err := openNode()
		if err != nil {
			return err
		}
		defer cleanup()

		req, err := transferRequest(c.Context, c, n)
		if err != nil {
			return err
		}
		est, err := n.EstimateFee(c.Context, req)
		if err != nil {
			return err
		}
		printFee(est)
		if !c.Bool("yes") && !confirm(fmt.Sprintf("Send %s to %s on %s?", req.Amount, req.Recipient, n.Network())) {
			return nil
		}

		pw, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		defer wallet.Wipe(pw)

		h, err := n.Send(c.Context, pw, req)
		printHistory(n.Network(), h)
		return err
	},
}

var airdropCmd = cli.Command{
	Name:      "airdrop",
	Usage:     "request test currency on the test or dev network",
	ArgsUsage: "[amount]",
	Action: func(c *cli.Context) error {
		amount := "1"
		if c.NArg() > 0 {
			amount = c.Args().First()
		}
		n, cleanup, err := openNode()
		if err != nil {
			return err
		}
		defer cleanup()

		h, err := n.RequestAirdrop(c.Context, amount)
		printHistory(n.Network(), h)
		return err
	},
}

func printHistory(network types.Network, h state.HistoryEntry) {
	if h.Signature == "" {
		return
	}
	fmt.Printf("%s  %s  %s\n", h.Status, h.AmountLabel, h.Signature)
	fmt.Println(network.ExplorerTxURL(h.Signature))
}
