package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/associatedtoken"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/token"
)

func cmdAccount(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	fs.SetOutput(errOut)
	conn := addConnFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: nftmint account <address>")
		return 2
	}
	addr, err := address.Parse(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid address: %v\n", err)
		return 2
	}
	c, err := conn.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer c.Close()
	acct, found, err := c.Account(context.Background(), addr)
	if err != nil {
		return reportError(errOut, "account", nil, err)
	}
	describe(out, addr, acct, found)
	return 0
}

func cmdPDA(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("pda", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var signerStr, mintStr, keysDir string
	fs.StringVar(&signerStr, "signer", "", "Signer address or key name")
	fs.StringVar(&mintStr, "mint", "", "Mint address")
	fs.StringVar(&keysDir, "keys-dir", "", "Key store directory (default ~/.xdao/nftmint/keys)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if signerStr == "" || mintStr == "" {
		fmt.Fprintln(errOut, "usage: nftmint pda --signer <address|key> --mint <address>")
		return 2
	}
	mint, err := address.Parse(mintStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --mint: %v\n", err)
		return 2
	}
	ks, err := (&connFlags{keysDir: keysDir}).keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signer, err := resolveAddress(ks, signerStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --signer: %v\n", err)
		return 2
	}

	holding, hb, err := associatedtoken.FindAddress(signer, mint)
	if err != nil {
		fmt.Fprintf(errOut, "derive holding: %v\n", err)
		return 1
	}
	md, mb, err := metadata.FindMetadataAddress(mint)
	if err != nil {
		fmt.Fprintf(errOut, "derive metadata: %v\n", err)
		return 1
	}
	ed, eb, err := metadata.FindEditionAddress(mint)
	if err != nil {
		fmt.Fprintf(errOut, "derive edition: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "holding\t%s\tbump %d\n", holding, hb)
	fmt.Fprintf(out, "metadata\t%s\tbump %d\n", md, mb)
	fmt.Fprintf(out, "edition\t%s\tbump %d\n", ed, eb)
	return 0
}

// describe prints an account summary and, for records it recognizes, the
// decoded state.
func describe(w io.Writer, addr address.Address, acct ledger.Account, found bool) {
	fmt.Fprintf(w, "Account %s\n", addr)
	if !found {
		fmt.Fprintln(w, "  (no state)")
		return
	}
	fmt.Fprintf(w, "  lamports:   %d (%s SOL)\n", acct.Lamports, formatSOL(acct.Lamports))
	fmt.Fprintf(w, "  owner:      %s\n", acct.Owner)
	fmt.Fprintf(w, "  executable: %t\n", acct.Executable)
	fmt.Fprintf(w, "  data:       %d bytes\n", len(acct.Data))

	switch acct.Owner {
	case address.TokenProgram:
		switch len(acct.Data) {
		case token.MintSize:
			if m, err := token.DecodeMint(acct.Data); err == nil {
				fmt.Fprintln(w, "  token mint:")
				fmt.Fprintf(w, "    supply:           %d\n", m.Supply)
				fmt.Fprintf(w, "    decimals:         %d\n", m.Decimals)
				fmt.Fprintf(w, "    mint authority:   %s\n", optional(m.MintAuthority))
				fmt.Fprintf(w, "    freeze authority: %s\n", optional(m.FreezeAuthority))
			}
		case token.AccountSize:
			if a, err := token.DecodeAccount(acct.Data); err == nil {
				fmt.Fprintln(w, "  token account:")
				fmt.Fprintf(w, "    mint:   %s\n", a.Mint)
				fmt.Fprintf(w, "    owner:  %s\n", a.Owner)
				fmt.Fprintf(w, "    amount: %d\n", a.Amount)
			}
		}
	case address.MetadataProgram:
		if len(acct.Data) == 0 {
			return
		}
		switch metadata.Key(acct.Data[0]) {
		case metadata.KeyMetadataV1:
			if md, err := metadata.DecodeMetadata(acct.Data); err == nil {
				fmt.Fprintln(w, "  metadata:")
				fmt.Fprintf(w, "    name:             %s\n", md.Data.Name())
				fmt.Fprintf(w, "    symbol:           %s\n", md.Data.Symbol())
				fmt.Fprintf(w, "    uri:              %s\n", md.Data.URI())
				fmt.Fprintf(w, "    mint:             %s\n", md.Mint)
				fmt.Fprintf(w, "    update authority: %s\n", md.UpdateAuthority)
				fmt.Fprintf(w, "    mutable:          %t\n", md.IsMutable)
			}
		case metadata.KeyMasterEditionV2:
			if ed, err := metadata.DecodeMasterEdition(acct.Data); err == nil {
				fmt.Fprintln(w, "  master edition:")
				fmt.Fprintf(w, "    supply:     %d\n", ed.Supply)
				if ed.MaxSupply == nil {
					fmt.Fprintln(w, "    max supply: unlimited")
				} else {
					fmt.Fprintf(w, "    max supply: %d\n", *ed.MaxSupply)
				}
			}
		}
	}
}

func optional(a *address.Address) string {
	if a == nil {
		return "none"
	}
	return a.String()
}
