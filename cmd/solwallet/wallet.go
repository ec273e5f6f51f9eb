package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Klingon-tech/solwallet/config"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/urfave/cli/v2"
)

var initCmd = cli.Command{
	Name:  "init",
	Usage: "create a new wallet or restore one from its recovery phrase",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "words",
			Usage: "length of a generated recovery phrase (12 or 24)",
			Value: wallet.Words12,
		},
		&cli.BoolFlag{
			Name:  "restore",
			Usage: "enter an existing recovery phrase instead of generating one",
		},
	},
	Action: initAction,
}

func initAction(c *cli.Context) error {
	if err := config.WriteDefault(cfg.ConfigFile(), cfg.Network); err != nil && !errors.Is(err, config.ErrConfigExists) {
		return err
	}

	n, cleanup, err := openNode()
	if err != nil {
		return err
	}
	defer cleanup()
	if n.IsSetup() {
		return fmt.Errorf("wallet already exists in %s", cfg.DataDir)
	}

	var phrase string
	if c.Bool("restore") {
		raw, err := readPassword("Recovery phrase: ")
		if err != nil {
			return err
		}
		phrase = string(raw)
		wallet.Wipe(raw)
	} else {
		if phrase, err = n.NewMnemonic(c.Int("words")); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Write down your recovery phrase and keep it offline:")
		fmt.Fprintf(os.Stderr, "\n  %s\n\n", phrase)
	}

	pw, err := readNewPassword()
	if err != nil {
		return err
	}
	defer wallet.Wipe(pw)

	a, err := n.Setup(pw, phrase)
	if err != nil {
		return err
	}
	fmt.Printf("Wallet created. %s: %s\n", a.Name, a.Address)
	return nil
}

var mnemonicCmd = cli.Command{
	Name:  "mnemonic",
	Usage: "show the recovery phrase",
	Action: func(c *cli.Context) error {
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
		phrase, err := n.RevealMnemonic(pw)
		if err != nil {
			return err
		}
		fmt.Println(phrase)
		return nil
	},
}

var passwdCmd = cli.Command{
	Name:  "passwd",
	Usage: "change the wallet password",
	Action: func(c *cli.Context) error {
		n, cleanup, err := openNode()
		if err != nil {
			return err
		}
		defer cleanup()

		old, err := readPassword("Current password: ")
		if err != nil {
			return err
		}
		defer wallet.Wipe(old)
		pw, err := readNewPassword()
		if err != nil {
			return err
		}
		defer wallet.Wipe(pw)

		if err := n.ChangePassword(old, pw); err != nil {
			return err
		}
		fmt.Println("Password changed.")
		return nil
	},
}
