// derive_key.go prints the derivation path and address for each account
// index of a mnemonic phrase file.
// Usage: go run scripts/derive_key.go <phrasefile> [index...]
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Klingon-tech/solwallet/internal/wallet"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: derive_key <phrasefile> [index...]")
		os.Exit(1)
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	phrase, err := wallet.ParseMnemonic(string(data))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	seed, err := wallet.WalletSeed(phrase)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer wallet.Wipe(seed)

	indices := []uint32{0}
	if len(os.Args) > 2 {
		indices = indices[:0]
		for _, arg := range os.Args[2:] {
			n, err := strconv.ParseUint(arg, 10, 32)
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad index %q: %v\n", arg, err)
				os.Exit(1)
			}
			indices = append(indices, uint32(n))
		}
	}

	for _, idx := range indices {
		pub, err := wallet.DerivePublicKey(seed, idx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("path=%s address=%s\n", wallet.DerivationPath(idx), pub)
	}
}
