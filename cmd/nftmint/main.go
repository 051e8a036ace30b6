package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "account":
		return cmdAccount(args[1:], out, errOut)
	case "airdrop":
		return cmdAirdrop(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "mint":
		return cmdMint(args[1:], out, errOut)
	case "pda":
		return cmdPDA(args[1:], out, errOut)
	case "revoke-mint-authority":
		return cmdRevoke(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "nftmint: issue single-edition NFTs through the init_nft program")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  nftmint key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  nftmint key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  nftmint key list")
	fmt.Fprintln(w, "  nftmint key show --name <name> [--role <role>]")
	fmt.Fprintln(w, "  nftmint airdrop --to <address|key> (--sol <amount> | --lamports <n>)")
	fmt.Fprintln(w, "  nftmint mint (--signer <key> [--signer-role <role>] | --seed-hex <64hex> | --key-file <path>) --name <n> --symbol <s> --uri <u> [--mint-seed-hex <64hex>]")
	fmt.Fprintln(w, "  nftmint revoke-mint-authority (--signer <key> | --seed-hex <64hex> | --key-file <path>) --mint <address>")
	fmt.Fprintln(w, "  nftmint account <address>")
	fmt.Fprintln(w, "  nftmint pda --signer <address|key> --mint <address>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Connection (all ledger commands):")
	fmt.Fprintln(w, "  --rpc <host:port>       mintd address (default $NFTMINT_RPC or 127.0.0.1:7788)")
	fmt.Fprintln(w, "  --store <backend>       run against a local account store instead of mintd")
	fmt.Fprintln(w, "  --sqlite-path <file>    database for --store=sqlite")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - keys live under ~/.xdao/nftmint/keys/<name> (0600 seed files); --keys-dir overrides")
	fmt.Fprintln(w, "  - mint generates a throwaway mint keypair unless --mint-seed-hex is given")
	fmt.Fprintln(w, "  - failures print the error kind, check and step reported by the ledger")
}
