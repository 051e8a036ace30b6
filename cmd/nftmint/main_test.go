package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"xdao.co/nftmint/keys"
	"xdao.co/nftmint/metadata"
	"xdao.co/nftmint/nft"
)

const (
	payerSeed = "0101010101010101010101010101010101010101010101010101010101010101"
	mintSeed  = "0202020202020202020202020202020202020202020202020202020202020202"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func keypair(t *testing.T, seedHex string) *keys.Keypair {
	t.Helper()
	seed, err := keys.ParseSeedHex(seedHex)
	require.NoError(t, err)
	kp, err := keys.NewKeypairFromSeed(seed)
	require.NoError(t, err)
	return kp
}

func TestRunUsage(t *testing.T) {
	code, _, errOut := runCLI(t)
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "Usage:")

	code, out, _ := runCLI(t, "help")
	require.Equal(t, 0, code)
	require.Contains(t, out, "nftmint mint")

	code, _, errOut = runCLI(t, "burn")
	require.Equal(t, 2, code)
	require.Contains(t, errOut, "unknown command: burn")
}

func TestKeyInitAndShow(t *testing.T) {
	dir := t.TempDir()
	want := keypair(t, payerSeed).Address().String()

	code, out, errOut := runCLI(t, "key", "init", "--keys-dir", dir, "--name", "alice", "--seed-hex", payerSeed)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, want)

	code, out, errOut = runCLI(t, "key", "show", "--keys-dir", dir, "--name", "alice")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, want, strings.TrimSpace(out))

	code, _, _ = runCLI(t, "key", "init", "--keys-dir", dir, "--name", "alice", "--seed-hex", payerSeed)
	require.Equal(t, 1, code, "existing key must not be overwritten without --force")

	code, out, errOut = runCLI(t, "key", "list", "--keys-dir", dir)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "alice\t"+want)
}

func TestSOLAmounts(t *testing.T) {
	l, err := parseSOL("1.5")
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000_000), l)

	l, err = parseSOL("0.000000001")
	require.NoError(t, err)
	require.Equal(t, uint64(1), l)

	for _, bad := range []string{"0", "-1", "0.0000000001", "abc", "20000000000"} {
		_, err := parseSOL(bad)
		require.Error(t, err, bad)
	}

	require.Equal(t, "0.000005", formatSOL(5000))
	require.Equal(t, "2", formatSOL(2_000_000_000))
	require.Equal(t, "18446744073.709551615", formatSOL(^uint64(0)))
}

func TestPDA(t *testing.T) {
	signer := keypair(t, payerSeed).Address()
	mint := keypair(t, mintSeed).Address()
	accts, err := nft.DeriveAccounts(signer, mint)
	require.NoError(t, err)

	code, out, errOut := runCLI(t, "pda", "--keys-dir", t.TempDir(), "--signer", signer.String(), "--mint", mint.String())
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "holding\t"+accts.Holding.String())
	require.Contains(t, out, "metadata\t"+accts.Metadata.String())
	require.Contains(t, out, "edition\t"+accts.Edition.String())

	code, _, _ = runCLI(t, "pda", "--mint", mint.String())
	require.Equal(t, 2, code)
}

func TestMintAgainstLocalStore(t *testing.T) {
	keysDir := t.TempDir()
	db := filepath.Join(t.TempDir(), "ledger.db")
	local := []string{"--keys-dir", keysDir, "--store", "sqlite", "--sqlite-path", db}
	payer := keypair(t, payerSeed).Address()
	mint := keypair(t, mintSeed).Address()
	accts, err := nft.DeriveAccounts(payer, mint)
	require.NoError(t, err)

	code, out, errOut := runCLI(t, append([]string{"airdrop", "--to", payer.String(), "--sol", "2"}, local...)...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Balance: 2 SOL")

	code, out, errOut = runCLI(t, append([]string{"mint",
		"--seed-hex", payerSeed, "--mint-seed-hex", mintSeed,
		"--name", "Sunrise #1", "--symbol", "SUN", "--uri", "https://example.com/sunrise.json",
	}, local...)...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "Mint:      "+mint.String())
	require.Contains(t, out, "Holding:   "+accts.Holding.String())
	require.Contains(t, out, "token mint:")
	require.Contains(t, out, "amount: 1")
	require.Contains(t, out, "name:             Sunrise #1")
	require.Contains(t, out, "max supply: unlimited")

	code, out, errOut = runCLI(t, append([]string{"account"}, append(local, mint.String())...)...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "supply:           1")
	require.Contains(t, out, "mint authority:   "+payer.String())

	code, _, errOut = runCLI(t, append([]string{"mint",
		"--seed-hex", payerSeed, "--mint-seed-hex", mintSeed,
		"--name", "Sunrise #1", "--symbol", "SUN", "--uri", "https://example.com/sunrise.json",
	}, local...)...)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "check: nft.mint.uninitialized")

	code, out, errOut = runCLI(t, append([]string{"revoke-mint-authority", "--seed-hex", payerSeed, "--mint", mint.String()}, local...)...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "revoked")

	code, out, errOut = runCLI(t, append([]string{"account"}, append(local, mint.String())...)...)
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "mint authority:   none")
}

func TestMintRejectsOversizedName(t *testing.T) {
	code, _, errOut := runCLI(t, "mint", "--keys-dir", t.TempDir(), "--store", "memory",
		"--seed-hex", payerSeed, "--name", strings.Repeat("x", metadata.MaxNameLength+1), "--symbol", "S", "--uri", "u")
	require.NotEqual(t, 0, code)
	require.NotEmpty(t, errOut)
}

func TestAccountNotFound(t *testing.T) {
	mint := keypair(t, mintSeed).Address()
	code, out, errOut := runCLI(t, "account", "--keys-dir", t.TempDir(), "--store", "memory", mint.String())
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "(no state)")
}
