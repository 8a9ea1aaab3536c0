// tokenctl is a command-line client for operating an authorized token ledger.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-token/config"
	"github.com/Klingon-tech/klingnet-token/internal/auth"
	"github.com/Klingon-tech/klingnet-token/internal/keys"
	"github.com/Klingon-tech/klingnet-token/internal/log"
	"github.com/Klingon-tech/klingnet-token/internal/storage"
	"github.com/Klingon-tech/klingnet-token/internal/token"
	"github.com/Klingon-tech/klingnet-token/pkg/crypto"
	"github.com/Klingon-tech/klingnet-token/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	dataDir := ""
	network := "mainnet"
	tokenName := ""

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		case args[0] == "--token" && len(args) > 1:
			tokenName = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--token="):
			tokenName = args[0][len("--token="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(dataDir, config.NetworkType(network))
	if err != nil {
		fatal("load config: %v", err)
	}
	if tokenName != "" {
		cfg.Token.Name = tokenName
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}

	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "init":
		cmdInit(cfg, cmdArgs)
	case "mint":
		cmdMint(cfg, cmdArgs)
	case "burn":
		cmdBurn(cfg, cmdArgs)
	case "transfer":
		cmdTransfer(cfg, cmdArgs)
	case "transfer-from":
		cmdTransferFrom(cfg, cmdArgs)
	case "approve":
		cmdApprove(cfg, cmdArgs)
	case "freeze":
		cmdSetFrozen(cfg, cmdArgs, true)
	case "unfreeze":
		cmdSetFrozen(cfg, cmdArgs, false)
	case "set-admin":
		cmdSetAdmin(cfg, cmdArgs)
	case "balance":
		cmdBalance(cfg, cmdArgs)
	case "allowance":
		cmdAllowance(cfg, cmdArgs)
	case "nonce":
		cmdNonce(cfg, cmdArgs)
	case "frozen":
		cmdFrozen(cfg, cmdArgs)
	case "meta":
		cmdMeta(cfg)
	case "contract-id":
		fmt.Println(token.DeriveContractID(string(cfg.Network), []byte(cfg.Token.Name)))
	case "wallet":
		cmdWallet(cfg, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: tokenctl [global flags] <command> [flags]

Global flags:
  --datadir <path>    Data directory (default: ~/.klingnet-token)
  --network <net>     mainnet (default) or testnet
  --token <name>      Token instance name (default: from config file)

Signing flags (shared by all mutating commands):
  --wallet <w> --identity <name>        Sign with one wallet key
  --group <hex> --wallet <w> --signers <a,b>
                                        Sign for an account group with the
                                        named wallet identities

Commands:
  init --admin <identity> --decimals <n> --name <n> --symbol <SYM>
                                  Initialize the token (once per contract)
  mint --to <identity> --amount <n> [signing flags]
                                  Mint tokens (admin only)
  burn --from <identity> --amount <n> [signing flags]
                                  Burn tokens (admin only)
  transfer --to <identity> --amount <n> [signing flags]
                                  Transfer from the signing identity
  approve --spender <identity> --amount <n> [signing flags]
                                  Set an allowance (replaces any previous)
  transfer-from --from <identity> --to <identity> --amount <n> [signing flags]
                                  Spend an allowance granted to the signer
  freeze --id <identity> [signing flags]
                                  Freeze an identity (admin only)
  unfreeze --id <identity> [signing flags]
                                  Unfreeze an identity (admin only)
  set-admin --new-admin <identity> [signing flags]
                                  Hand the admin role over (admin only)

  balance <identity>              Show an identity's balance
  allowance <owner> <spender>     Show an allowance
  nonce <identity>                Show an identity's current nonce
  frozen <identity>               Show an identity's frozen flag
  meta                            Show token metadata and admin
  contract-id                     Show the derived contract ID

  wallet create --name <n>        Create a new wallet
  wallet import --name <n> --mnemonic "..."
                                  Import wallet from mnemonic
  wallet list                     List wallets
  wallet identities --wallet <w>  List a wallet's signing identities
  wallet new-identity --wallet <w> --name <n>
                                  Derive a new signing identity
  wallet delete --name <n>        Delete a wallet file

Identities are written as "pubkey:<hex>", "group:<hex>", or "contract:<hex>".
`)
}

// ── contract plumbing ───────────────────────────────────────────────────

// openToken opens the ledger database and binds a contract instance to it.
// The returned close function must be called before exit.
func openToken(cfg *config.Config) (*token.Token, *token.LocalHost, func()) {
	db, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		fatal("open ledger: %v", err)
	}

	groups, err := config.LoadGroups(cfg.GroupsFile())
	if err != nil {
		fatal("load groups: %v", err)
	}

	host := &token.LocalHost{
		NetworkID: string(cfg.Network),
		Contract:  token.DeriveContractID(string(cfg.Network), []byte(cfg.Token.Name)),
	}
	return token.New(host, groups, db), host, func() {
		if err := db.Close(); err != nil {
			log.CLI.Error().Err(err).Msg("close ledger")
		}
	}
}

// ── signing ─────────────────────────────────────────────────────────────

// signingFlags are the shared flags that select who signs an operation.
type signingFlags struct {
	wallet   *string
	identity *string
	group    *string
	signers  *string
}

func addSigningFlags(fs *flag.FlagSet) *signingFlags {
	return &signingFlags{
		wallet:   fs.String("wallet", "", "Wallet name"),
		identity: fs.String("identity", "", "Wallet identity name (default: default)"),
		group:    fs.String("group", "", "Account-group ID (hex) to sign for"),
		signers:  fs.String("signers", "", "Comma-separated wallet identity names (group signing)"),
	}
}

// signer wraps everything needed to authorize one operation: the identity
// the contract will see, and a function producing the proof for a payload.
type signer struct {
	identity types.Identity
	prove    func(payload *auth.Payload) (auth.Proof, error)
}

// resolveSigner loads keys from the wallet per the signing flags. It prompts
// for the wallet password.
func resolveSigner(cfg *config.Config, sf *signingFlags) *signer {
	if *sf.wallet == "" {
		fatal("--wallet is required for signing")
	}

	ks, err := keys.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}

	seed, err := ks.Load(*sf.wallet, password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	defer zero(seed)

	master, err := keys.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}

	// Group signing: gather one key per named identity.
	if *sf.group != "" {
		if *sf.signers == "" {
			fatal("--signers is required with --group")
		}
		groupID, err := parse32(*sf.group)
		if err != nil {
			fatal("invalid group ID: %v", err)
		}

		var groupKeys []crypto.Signer
		for _, name := range strings.Split(*sf.signers, ",") {
			key := deriveNamedKey(ks, master, *sf.wallet, strings.TrimSpace(name))
			groupKeys = append(groupKeys, key)
		}

		return &signer{
			identity: types.AccountGroupIdentity(groupID),
			prove: func(payload *auth.Payload) (auth.Proof, error) {
				return auth.GroupSign(groupID, payload, groupKeys...)
			},
		}
	}

	// Single-key signing.
	name := *sf.identity
	if name == "" {
		name = "default"
	}
	key := deriveNamedKey(ks, master, *sf.wallet, name)
	return &signer{
		identity: auth.KeyIdentity(key.PublicKey()),
		prove: func(payload *auth.Payload) (auth.Proof, error) {
			return auth.Sign(key, payload)
		},
	}
}

// deriveNamedKey re-derives the private key behind a named wallet identity.
func deriveNamedKey(ks *keys.Keystore, master *keys.HDKey, walletName, identityName string) *crypto.PrivateKey {
	entry, err := ks.FindIdentity(walletName, identityName)
	if err != nil {
		fatal("%v", err)
	}
	hdKey, err := master.DeriveSigningKey(entry.Account, entry.Index)
	if err != nil {
		fatal("derive key: %v", err)
	}
	key, err := hdKey.Signer()
	if err != nil {
		fatal("derive key: %v", err)
	}

	// Guard against a wallet edited by hand.
	got := auth.KeyIdentity(key.PublicKey()).String()
	if entry.Identity != "" && entry.Identity != got {
		fatal("identity %q derives to %s, wallet records %s", identityName, got, entry.Identity)
	}
	return key
}

// authorize builds the canonical payload for an operation, reads the
// signer's current nonce, and produces the proof. The payload binds the
// operation name, contract, network, authorizing identity, and nonce, so a
// signature is valid for exactly one execution of one operation.
func authorize(tok *token.Token, host *token.LocalHost, s *signer, function string, args ...auth.Arg) (auth.Proof, uint64) {
	nonce, err := tok.Nonce(s.identity)
	if err != nil {
		fatal("read nonce: %v", err)
	}

	payloadArgs := append([]auth.Arg{auth.IdentityArg(s.identity), auth.UintArg(nonce)}, args...)
	payload := auth.NewPayload(function, host.ContractID(), host.Network(), payloadArgs...)
	proof, err := s.prove(payload)
	if err != nil {
		fatal("sign: %v", err)
	}
	return proof, nonce
}

// ── mutating commands ───────────────────────────────────────────────────

func cmdInit(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	adminStr := fs.String("admin", "", "Admin identity")
	decimals := fs.Uint("decimals", 0, "Decimal places")
	name := fs.String("name", "", "Token name")
	symbol := fs.String("symbol", "", "Token symbol")
	fs.Parse(args)

	if *adminStr == "" || *name == "" || *symbol == "" {
		fatal("Usage: tokenctl init --admin <identity> --decimals <n> --name <n> --symbol <SYM>")
	}
	admin, err := types.ParseIdentity(*adminStr)
	if err != nil {
		fatal("invalid admin identity: %v", err)
	}

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	if err := tok.Initialize(admin, uint32(*decimals), []byte(*name), []byte(*symbol)); err != nil {
		fatal("initialize: %v", err)
	}
	fmt.Printf("Initialized %s (%s) with %d decimals\n", *name, *symbol, *decimals)
	fmt.Printf("Contract: %s\n", host.ContractID())
	fmt.Printf("Admin:    %s\n", admin)
}

func cmdMint(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mint", flag.ExitOnError)
	toStr := fs.String("to", "", "Recipient identity")
	amountStr := fs.String("amount", "", "Amount to mint")
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *toStr == "" || *amountStr == "" {
		fatal("Usage: tokenctl mint --to <identity> --amount <n> [signing flags]")
	}
	to := parseIdentity(*toStr)
	amount := parseAmount(*amountStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, "mint", auth.IdentityArg(to), auth.AmountArg(amount))
	if err := tok.Mint(proof, nonce, to, amount); err != nil {
		fatal("mint: %v", err)
	}
	fmt.Printf("Minted %s to %s\n", amount, to)
}

func cmdBurn(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("burn", flag.ExitOnError)
	fromStr := fs.String("from", "", "Identity to burn from")
	amountStr := fs.String("amount", "", "Amount to burn")
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *fromStr == "" || *amountStr == "" {
		fatal("Usage: tokenctl burn --from <identity> --amount <n> [signing flags]")
	}
	from := parseIdentity(*fromStr)
	amount := parseAmount(*amountStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, "burn", auth.IdentityArg(from), auth.AmountArg(amount))
	if err := tok.Burn(proof, nonce, from, amount); err != nil {
		fatal("burn: %v", err)
	}
	fmt.Printf("Burned %s from %s\n", amount, from)
}

func cmdTransfer(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	toStr := fs.String("to", "", "Recipient identity")
	amountStr := fs.String("amount", "", "Amount to transfer")
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *toStr == "" || *amountStr == "" {
		fatal("Usage: tokenctl transfer --to <identity> --amount <n> [signing flags]")
	}
	to := parseIdentity(*toStr)
	amount := parseAmount(*amountStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, "transfer", auth.IdentityArg(to), auth.AmountArg(amount))
	if err := tok.Transfer(proof, nonce, to, amount); err != nil {
		fatal("transfer: %v", err)
	}
	fmt.Printf("Transferred %s from %s to %s\n", amount, s.identity, to)
}

func cmdTransferFrom(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("transfer-from", flag.ExitOnError)
	fromStr := fs.String("from", "", "Source identity (allowance owner)")
	toStr := fs.String("to", "", "Recipient identity")
	amountStr := fs.String("amount", "", "Amount to transfer")
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *fromStr == "" || *toStr == "" || *amountStr == "" {
		fatal("Usage: tokenctl transfer-from --from <identity> --to <identity> --amount <n> [signing flags]")
	}
	from := parseIdentity(*fromStr)
	to := parseIdentity(*toStr)
	amount := parseAmount(*amountStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, "transfer_from",
		auth.IdentityArg(from), auth.IdentityArg(to), auth.AmountArg(amount))
	if err := tok.TransferFrom(proof, nonce, from, to, amount); err != nil {
		fatal("transfer-from: %v", err)
	}
	fmt.Printf("Transferred %s from %s to %s (spender %s)\n", amount, from, to, s.identity)
}

func cmdApprove(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("approve", flag.ExitOnError)
	spenderStr := fs.String("spender", "", "Spender identity")
	amountStr := fs.String("amount", "", "Allowance amount")
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *spenderStr == "" || *amountStr == "" {
		fatal("Usage: tokenctl approve --spender <identity> --amount <n> [signing flags]")
	}
	spender := parseIdentity(*spenderStr)
	amount := parseAmount(*amountStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, "approve", auth.IdentityArg(spender), auth.AmountArg(amount))
	if err := tok.Approve(proof, nonce, spender, amount); err != nil {
		fatal("approve: %v", err)
	}
	fmt.Printf("Approved %s for %s (owner %s)\n", amount, spender, s.identity)
}

func cmdSetFrozen(cfg *config.Config, args []string, frozen bool) {
	verb := "unfreeze"
	if frozen {
		verb = "freeze"
	}

	fs := flag.NewFlagSet(verb, flag.ExitOnError)
	idStr := fs.String("id", "", "Identity to "+verb)
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *idStr == "" {
		fatal("Usage: tokenctl %s --id <identity> [signing flags]", verb)
	}
	id := parseIdentity(*idStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, verb, auth.IdentityArg(id))

	var err error
	if frozen {
		err = tok.Freeze(proof, nonce, id)
	} else {
		err = tok.Unfreeze(proof, nonce, id)
	}
	if err != nil {
		fatal("%s: %v", verb, err)
	}
	if frozen {
		fmt.Printf("Froze %s\n", id)
	} else {
		fmt.Printf("Unfroze %s\n", id)
	}
}

func cmdSetAdmin(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("set-admin", flag.ExitOnError)
	newAdminStr := fs.String("new-admin", "", "New admin identity")
	sf := addSigningFlags(fs)
	fs.Parse(args)

	if *newAdminStr == "" {
		fatal("Usage: tokenctl set-admin --new-admin <identity> [signing flags]")
	}
	newAdmin := parseIdentity(*newAdminStr)

	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	s := resolveSigner(cfg, sf)
	proof, nonce := authorize(tok, host, s, "set_admin", auth.IdentityArg(newAdmin))
	if err := tok.SetAdmin(proof, nonce, newAdmin); err != nil {
		fatal("set-admin: %v", err)
	}
	fmt.Printf("Admin is now %s\n", newAdmin)
}

// ── read commands ───────────────────────────────────────────────────────

func cmdBalance(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenctl balance <identity>")
	}
	id := parseIdentity(args[0])

	tok, _, closeDB := openToken(cfg)
	defer closeDB()

	balance, err := tok.Balance(id)
	if err != nil {
		fatal("balance: %v", err)
	}
	fmt.Printf("Identity: %s\n", id)
	fmt.Printf("Balance:  %s\n", balance)
}

func cmdAllowance(cfg *config.Config, args []string) {
	if len(args) < 2 {
		fatal("Usage: tokenctl allowance <owner> <spender>")
	}
	owner := parseIdentity(args[0])
	spender := parseIdentity(args[1])

	tok, _, closeDB := openToken(cfg)
	defer closeDB()

	allowance, err := tok.Allowance(owner, spender)
	if err != nil {
		fatal("allowance: %v", err)
	}
	fmt.Printf("Owner:     %s\n", owner)
	fmt.Printf("Spender:   %s\n", spender)
	fmt.Printf("Allowance: %s\n", allowance)
}

func cmdNonce(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenctl nonce <identity>")
	}
	id := parseIdentity(args[0])

	tok, _, closeDB := openToken(cfg)
	defer closeDB()

	nonce, err := tok.Nonce(id)
	if err != nil {
		fatal("nonce: %v", err)
	}
	fmt.Printf("Identity: %s\n", id)
	fmt.Printf("Nonce:    %d\n", nonce)
}

func cmdFrozen(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenctl frozen <identity>")
	}
	id := parseIdentity(args[0])

	tok, _, closeDB := openToken(cfg)
	defer closeDB()

	frozen, err := tok.IsFrozen(id)
	if err != nil {
		fatal("frozen: %v", err)
	}
	fmt.Printf("Identity: %s\n", id)
	fmt.Printf("Frozen:   %v\n", frozen)
}

func cmdMeta(cfg *config.Config) {
	tok, host, closeDB := openToken(cfg)
	defer closeDB()

	fmt.Printf("Contract: %s\n", host.ContractID())
	fmt.Printf("Network:  %s\n", host.Network())

	name, err := tok.Name()
	if err != nil {
		fatal("metadata: %v", err)
	}
	symbol, err := tok.Symbol()
	if err != nil {
		fatal("metadata: %v", err)
	}
	decimals, err := tok.Decimals()
	if err != nil {
		fatal("metadata: %v", err)
	}
	admin, err := tok.Admin()
	if err != nil {
		fatal("metadata: %v", err)
	}

	fmt.Printf("Name:     %s\n", name)
	fmt.Printf("Symbol:   %s\n", symbol)
	fmt.Printf("Decimals: %d\n", decimals)
	fmt.Printf("Admin:    %s\n", admin)
}

// ── wallet commands ─────────────────────────────────────────────────────

func cmdWallet(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatal("Usage: tokenctl wallet <create|import|list|identities|new-identity|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdWalletCreate(cfg, args[1:])
	case "import":
		cmdWalletImport(cfg, args[1:])
	case "list":
		cmdWalletList(cfg)
	case "identities":
		cmdWalletIdentities(cfg, args[1:])
	case "new-identity":
		cmdWalletNewIdentity(cfg, args[1:])
	case "delete":
		cmdWalletDelete(cfg, args[1:])
	default:
		fatal("Unknown wallet command: %s\nUsage: tokenctl wallet <create|import|list|identities|new-identity|delete> [flags]", args[0])
	}
}

func cmdWalletCreate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet create", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: tokenctl wallet create --name <name>")
	}

	mnemonic, err := keys.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	createWalletFromMnemonic(cfg, *name, mnemonic)
	fmt.Printf("\nWallet created: %s\n", *name)
}

func cmdWalletImport(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet import", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: tokenctl wallet import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !keys.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	createWalletFromMnemonic(cfg, *name, *mnemonic)
	fmt.Printf("Wallet imported: %s\n", *name)
}

// createWalletFromMnemonic prompts for a password, encrypts the seed, and
// records the default identity at account 0 index 0.
func createWalletFromMnemonic(cfg *config.Config, name, mnemonic string) {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	seed, err := keys.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive seed: %v", err)
	}
	defer zero(seed)

	master, err := keys.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	hdKey, err := master.DeriveSigningKey(0, 0)
	if err != nil {
		fatal("derive key: %v", err)
	}
	identity, err := hdKey.Identity()
	if err != nil {
		fatal("derive identity: %v", err)
	}

	ks, err := keys.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("create keystore: %v", err)
	}
	if err := ks.Create(name, seed, password, keys.DefaultParams()); err != nil {
		fatal("create wallet: %v", err)
	}
	if err := ks.AddIdentity(name, keys.IdentityEntry{
		Account:  0,
		Index:    0,
		Name:     "default",
		Identity: identity.String(),
	}); err != nil {
		fatal("add identity: %v", err)
	}

	fmt.Printf("Identity: %s\n", identity)
}

func cmdWalletList(cfg *config.Config) {
	ks, err := keys.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No wallets. Create one with: tokenctl wallet create --name <name>")
		return
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdWalletIdentities(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet identities", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	fs.Parse(args)

	if *walletName == "" {
		fatal("Usage: tokenctl wallet identities --wallet <name>")
	}

	ks, err := keys.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	entries, err := ks.ListIdentities(*walletName)
	if err != nil {
		fatal("list identities: %v", err)
	}
	for _, e := range entries {
		fmt.Printf("%-16s %s\n", e.Name, e.Identity)
	}
}

func cmdWalletNewIdentity(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet new-identity", flag.ExitOnError)
	walletName := fs.String("wallet", "", "Wallet name")
	name := fs.String("name", "", "Identity name")
	fs.Parse(args)

	if *walletName == "" || *name == "" {
		fatal("Usage: tokenctl wallet new-identity --wallet <w> --name <n>")
	}

	ks, err := keys.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	seed, err := ks.Load(*walletName, password)
	if err != nil {
		fatal("unlock wallet: %v", err)
	}
	defer zero(seed)

	index, err := ks.NextIndex(*walletName)
	if err != nil {
		fatal("next index: %v", err)
	}

	master, err := keys.NewMasterKey(seed)
	if err != nil {
		fatal("derive master key: %v", err)
	}
	hdKey, err := master.DeriveSigningKey(0, index)
	if err != nil {
		fatal("derive key: %v", err)
	}
	identity, err := hdKey.Identity()
	if err != nil {
		fatal("derive identity: %v", err)
	}

	if err := ks.AddIdentity(*walletName, keys.IdentityEntry{
		Account:  0,
		Index:    index,
		Name:     *name,
		Identity: identity.String(),
	}); err != nil {
		fatal("add identity: %v", err)
	}

	fmt.Printf("Identity %s: %s\n", *name, identity)
}

func cmdWalletDelete(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("wallet delete", flag.ExitOnError)
	name := fs.String("name", "", "Wallet name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: tokenctl wallet delete --name <name>")
	}

	ks, err := keys.NewKeystore(cfg.KeystoreDir())
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Delete(*name); err != nil {
		fatal("delete wallet: %v", err)
	}
	fmt.Printf("Wallet deleted: %s\n", *name)
}

// ── parsing helpers ─────────────────────────────────────────────────────

func parseIdentity(s string) types.Identity {
	id, err := types.ParseIdentity(s)
	if err != nil {
		fatal("invalid identity %q: %v", s, err)
	}
	return id
}

func parseAmount(s string) types.Amount {
	amount, err := types.ParseAmount(s)
	if err != nil {
		fatal("invalid amount %q: %v", s, err)
	}
	return amount
}

func parse32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("need 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
