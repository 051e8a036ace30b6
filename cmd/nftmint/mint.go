package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"xdao.co/nftmint/address"
	"xdao.co/nftmint/keys"
	"xdao.co/nftmint/ledger"
	"xdao.co/nftmint/nft"
)

type signerFlags struct {
	name    string
	role    string
	seedHex string
	keyFile string
}

func addSignerFlags(fs *flag.FlagSet) *signerFlags {
	s := &signerFlags{}
	fs.StringVar(&s.name, "signer", "", "Signer key name in the key store")
	fs.StringVar(&s.role, "signer-role", "", "Optional role of --signer")
	fs.StringVar(&s.seedHex, "seed-hex", "", "Signer ed25519 seed as 64 hex chars")
	fs.StringVar(&s.keyFile, "key-file", "", "Signer seed file")
	return s
}

func (s *signerFlags) load(ks *keys.KeyStore) (*keys.Keypair, error) {
	return ks.LoadSigner(s.seedHex, s.keyFile, s.name, s.role)
}

// resolveAddress accepts a base58 address or a key store name.
func resolveAddress(ks *keys.KeyStore, s string) (address.Address, error) {
	if a, err := address.Parse(s); err == nil {
		return a, nil
	}
	kp, err := ks.Load(s, "")
	if err != nil {
		return address.Address{}, fmt.Errorf("%q is neither an address nor a stored key: %w", s, err)
	}
	return kp.Address(), nil
}

// reportError prints a ledger failure with its stable identifiers and
// returns the exit code.
func reportError(errOut io.Writer, what string, receipt *ledger.Receipt, err error) int {
	fmt.Fprintf(errOut, "%s failed: %v\n", what, err)
	var le *ledger.Error
	if errors.As(err, &le) {
		fmt.Fprintf(errOut, "  kind:  %s\n", le.Kind)
		fmt.Fprintf(errOut, "  check: %s\n", le.Check)
		if le.Step != "" {
			fmt.Fprintf(errOut, "  step:  %s\n", le.Step)
		}
	}
	if receipt != nil {
		for _, l := range receipt.Logs {
			fmt.Fprintf(errOut, "  log: %s\n", l)
		}
	}
	return 1
}

func cmdAirdrop(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("airdrop", flag.ContinueOnError)
	fs.SetOutput(errOut)
	conn := addConnFlags(fs)
	var to, sol string
	var lamports uint64
	fs.StringVar(&to, "to", "", "Recipient address or key name")
	fs.StringVar(&sol, "sol", "", "Amount in SOL")
	fs.Uint64Var(&lamports, "lamports", 0, "Amount in lamports")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if to == "" || (sol == "") == (lamports == 0) {
		fmt.Fprintln(errOut, "usage: nftmint airdrop --to <address|key> (--sol <amount> | --lamports <n>)")
		return 2
	}
	if sol != "" {
		var err error
		if lamports, err = parseSOL(sol); err != nil {
			fmt.Fprintf(errOut, "invalid --sol: %v\n", err)
			return 2
		}
	}
	ks, err := conn.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	addr, err := resolveAddress(ks, to)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --to: %v\n", err)
		return 2
	}

	c, err := conn.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer c.Close()
	ctx := context.Background()
	receipt, err := c.Airdrop(ctx, addr, lamports)
	if err != nil {
		return reportError(errOut, "airdrop", nil, err)
	}
	acct, _, err := c.Account(ctx, addr)
	if err != nil {
		fmt.Fprintf(errOut, "read balance: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "Airdropped %s SOL to %s (slot %d)\n", formatSOL(lamports), addr, receipt.Slot)
	fmt.Fprintf(out, "Balance: %s SOL\n", formatSOL(acct.Lamports))
	return 0
}

func cmdMint(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("mint", flag.ContinueOnError)
	fs.SetOutput(errOut)
	conn := addConnFlags(fs)
	signer := addSignerFlags(fs)
	var nftArgs nft.InitNFTArgs
	var mintSeedHex string
	fs.StringVar(&nftArgs.Name, "name", "", "Asset name (at most 32 bytes)")
	fs.StringVar(&nftArgs.Symbol, "symbol", "", "Asset symbol (at most 10 bytes)")
	fs.StringVar(&nftArgs.URI, "uri", "", "Off-chain metadata URI (at most 200 bytes)")
	fs.StringVar(&mintSeedHex, "mint-seed-hex", "", "Seed of the mint keypair (default: random)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ks, err := conn.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	payer, err := signer.load(ks)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 2
	}
	var mint *keys.Keypair
	if mintSeedHex != "" {
		seed, err := keys.ParseSeedHex(mintSeedHex)
		if err == nil {
			mint, err = keys.NewKeypairFromSeed(seed)
		}
		if err != nil {
			fmt.Fprintf(errOut, "invalid --mint-seed-hex: %v\n", err)
			return 2
		}
	} else if mint, err = keys.GenerateKeypair(nil); err != nil {
		fmt.Fprintf(errOut, "generate mint key: %v\n", err)
		return 1
	}
	programID, err := conn.program()
	if err != nil {
		fmt.Fprintf(errOut, "invalid --program-id: %v\n", err)
		return 2
	}

	accts, err := nft.DeriveAccounts(payer.Address(), mint.Address())
	if err != nil {
		fmt.Fprintf(errOut, "derive accounts: %v\n", err)
		return 1
	}
	ix, err := nft.NewInitNFTInstruction(programID, accts, nftArgs)
	if err != nil {
		fmt.Fprintf(errOut, "build instruction: %v\n", err)
		return 2
	}

	c, err := conn.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer c.Close()
	ctx := context.Background()
	_, receipt, err := send(ctx, c, payer, []ledger.Instruction{ix}, mint)
	if err != nil {
		return reportError(errOut, "init_nft", receipt, err)
	}

	fmt.Fprintf(out, "Signature: %s\n", receipt.Signature)
	fmt.Fprintf(out, "Slot:      %d\n", receipt.Slot)
	fmt.Fprintf(out, "Fee:       %s SOL\n", formatSOL(receipt.Fee))
	fmt.Fprintf(out, "Mint:      %s\n", accts.Mint)
	fmt.Fprintf(out, "Holding:   %s\n", accts.Holding)
	fmt.Fprintf(out, "Metadata:  %s\n", accts.Metadata)
	fmt.Fprintf(out, "Edition:   %s\n", accts.Edition)
	for _, a := range []address.Address{accts.Mint, accts.Holding, accts.Metadata, accts.Edition} {
		acct, found, err := c.Account(ctx, a)
		if err != nil {
			fmt.Fprintf(errOut, "read %s: %v\n", a, err)
			return 1
		}
		fmt.Fprintln(out)
		describe(out, a, acct, found)
	}
	return 0
}

func cmdRevoke(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("revoke-mint-authority", flag.ContinueOnError)
	fs.SetOutput(errOut)
	conn := addConnFlags(fs)
	signer := addSignerFlags(fs)
	var mintStr string
	fs.StringVar(&mintStr, "mint", "", "Mint address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	mint, err := address.Parse(mintStr)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --mint: %v\n", err)
		return 2
	}
	ks, err := conn.keyStore()
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	authority, err := signer.load(ks)
	if err != nil {
		fmt.Fprintf(errOut, "signer: %v\n", err)
		return 2
	}

	c, err := conn.open()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer c.Close()
	ctx := context.Background()
	_, receipt, err := send(ctx, c, authority, []ledger.Instruction{nft.RevokeMintAuthority(mint, authority.Address())})
	if err != nil {
		return reportError(errOut, "revoke-mint-authority", receipt, err)
	}
	fmt.Fprintf(out, "Signature: %s\n", receipt.Signature)
	fmt.Fprintf(out, "Mint authority of %s revoked; supply is now fixed\n", mint)
	return 0
}
